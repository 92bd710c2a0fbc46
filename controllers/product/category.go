package productcontroller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/treatnaturally-api/apperr"
	"github.com/junaidrashid-git/treatnaturally-api/controllers/render"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type categoryWithCount struct {
	models.Category
	ProductsCount int64 `json:"products_count"`
}

// GetAllCategories returns every category with the number of products in it.
func GetAllCategories(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var categories []categoryWithCount
		if err := db.WithContext(c.Request.Context()).
			Model(&models.Category{}).
			Select("categories.*, (SELECT COUNT(*) FROM products WHERE products.category_id = categories.id) AS products_count").
			Order("categories.id").
			Scan(&categories).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
			return
		}
		c.JSON(http.StatusOK, categories)
	}
}

func GetCategoryByID(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := render.UintParam(c, "id")
		if !ok {
			return
		}

		var category models.Category
		if err := db.WithContext(c.Request.Context()).First(&category, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch category"})
			return
		}

		var products []models.Product
		if err := db.WithContext(c.Request.Context()).Where("category_id = ?", id).Order("id").Find(&products).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch category products"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"category": category, "products": products})
	}
}

// GetMemberships lists the membership tiers with their discounts.
func GetMemberships(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var memberships []models.Membership
		if err := db.WithContext(c.Request.Context()).Order("discount_percentage").Find(&memberships).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch memberships"})
			return
		}
		c.JSON(http.StatusOK, memberships)
	}
}

type CategoryInput struct {
	Title             string `json:"title" binding:"required"`
	FeaturedProductID *uint  `json:"featured_product_id"`
}

func (in CategoryInput) apply(tx *gorm.DB, category *models.Category) error {
	category.Title = strings.TrimSpace(in.Title)
	if category.Title == "" {
		return apperr.Validationf("title is required")
	}
	category.FeaturedProductID = in.FeaturedProductID
	if in.FeaturedProductID == nil {
		return nil
	}
	var count int64
	if err := tx.Model(&models.Product{}).Where("id = ?", *in.FeaturedProductID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.Validationf("product %d does not exist", *in.FeaturedProductID)
	}
	return nil
}

// POST /admin/categories
func CreateCategory(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CategoryInput
		if err := c.ShouldBindJSON(&input); err != nil {
			render.BadRequest(c, "Invalid input: "+err.Error())
			return
		}

		var category models.Category
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if err := input.apply(tx, &category); err != nil {
				return err
			}
			return tx.Omit(clause.Associations).Create(&category).Error
		})
		if err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, category)
	}
}

// PUT /admin/categories/:id
func UpdateCategory(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := render.UintParam(c, "id")
		if !ok {
			return
		}
		var input CategoryInput
		if err := c.ShouldBindJSON(&input); err != nil {
			render.BadRequest(c, "Invalid input: "+err.Error())
			return
		}

		var category models.Category
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&category, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFoundf("Category not found")
				}
				return err
			}
			if err := input.apply(tx, &category); err != nil {
				return err
			}
			return tx.Omit(clause.Associations).Save(&category).Error
		})
		if err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, category)
	}
}

// DELETE /admin/categories/:id
// A category is only removed once no product is filed under it.
func DeleteCategory(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := render.UintParam(c, "id")
		if !ok {
			return
		}

		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			var products int64
			if err := tx.Model(&models.Product{}).Where("category_id = ?", id).Count(&products).Error; err != nil {
				return err
			}
			if products > 0 {
				return apperr.Conflictf("category %d still has %d products", id, products)
			}

			target := "target_kind = '" + string(models.TargetCategory) + "' AND target_id = ?"
			if err := tx.Where(target, id).Delete(&models.TaggedItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where(target, id).Delete(&models.AilmentItem{}).Error; err != nil {
				return err
			}

			res := tx.Delete(&models.Category{}, id)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.NotFoundf("Category not found")
			}
			return nil
		})
		if err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
	}
}
