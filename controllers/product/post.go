package productcontroller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/treatnaturally-api/apperr"
	"github.com/junaidrashid-git/treatnaturally-api/controllers/render"
	"github.com/junaidrashid-git/treatnaturally-api/database"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var maxPrice = decimal.NewFromInt(1000000)

type ProductInput struct {
	Name             string              `json:"name" binding:"required"`
	Slug             string              `json:"slug"`
	SKU              *string             `json:"sku"`
	ShortDescription string              `json:"short_description"`
	FullDescription  string              `json:"full_description"`
	Price            decimal.Decimal     `json:"price"`
	Discount         decimal.NullDecimal `json:"discount"`
	New              bool                `json:"new"`
	Stock            int                 `json:"stock" binding:"min=0"`
	CategoryID       uint                `json:"category_id" binding:"required"`
}

func (in ProductInput) validate() error {
	if in.Price.IsNegative() || in.Price.GreaterThanOrEqual(maxPrice) || !in.Price.Equal(in.Price.Round(2)) {
		return apperr.Validationf("price must be between 0 and 999999.99 with at most 2 decimal places")
	}
	if in.Discount.Valid && (in.Discount.Decimal.IsNegative() || in.Discount.Decimal.GreaterThan(in.Price)) {
		return apperr.Validationf("discount must be between 0 and the price")
	}
	return nil
}

func (in ProductInput) apply(p *models.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Slug = in.Slug
	if p.Slug == "" {
		p.Slug = slugify(p.Name)
	}
	p.SKU = in.SKU
	p.ShortDescription = in.ShortDescription
	p.FullDescription = in.FullDescription
	p.Price = in.Price
	p.Discount = in.Discount
	p.New = in.New
	p.Stock = in.Stock
	p.CategoryID = in.CategoryID
}

// CreateProduct adds a product to the catalog.
func CreateProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ProductInput
		if err := c.ShouldBindJSON(&input); err != nil {
			render.BadRequest(c, "Invalid input: "+err.Error())
			return
		}
		if err := input.validate(); err != nil {
			render.Error(c, err)
			return
		}

		var product models.Product
		input.apply(&product)
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if err := categoryExists(tx, input.CategoryID); err != nil {
				return err
			}
			return saveProduct(tx.Omit(clause.Associations).Create(&product).Error)
		})
		if err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

func categoryExists(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.Validationf("category %d does not exist", id)
	}
	return nil
}

func saveProduct(err error) error {
	if database.IsUniqueViolation(err) {
		return apperr.Conflictf("a product with this sku already exists")
	}
	return err
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
