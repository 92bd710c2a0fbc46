package productcontroller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/treatnaturally-api/apperr"
	"github.com/junaidrashid-git/treatnaturally-api/controllers/render"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpdateProduct replaces the editable fields of an existing product.
func UpdateProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := render.UintParam(c, "id")
		if !ok {
			return
		}
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
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&product, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFoundf("Product not found")
				}
				return err
			}
			if err := categoryExists(tx, input.CategoryID); err != nil {
				return err
			}
			input.apply(&product)
			return saveProduct(tx.Omit(clause.Associations).Save(&product).Error)
		})
		if err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}
