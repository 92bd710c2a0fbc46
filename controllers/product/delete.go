package productcontroller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/treatnaturally-api/apperr"
	"github.com/junaidrashid-git/treatnaturally-api/controllers/render"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"gorm.io/gorm"
)

// DeleteProduct removes a product that no order refers to. Its variations,
// images, reviews, cart lines, tags and ailment links go with it.
func DeleteProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := render.UintParam(c, "id")
		if !ok {
			return
		}

		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			var ordered int64
			if err := tx.Model(&models.OrderItem{}).Where("product_id = ?", id).Count(&ordered).Error; err != nil {
				return err
			}
			if ordered > 0 {
				return apperr.Conflictf("product %d appears in orders and cannot be deleted", id)
			}

			for _, dep := range []struct {
				model any
				where string
			}{
				{&models.ProductVariation{}, "product_id = ?"},
				{&models.ProductImage{}, "product_id = ?"},
				{&models.Review{}, "product_id = ?"},
				{&models.CartItem{}, "product_id = ?"},
				{&models.TaggedItem{}, "target_kind = '" + string(models.TargetProduct) + "' AND target_id = ?"},
				{&models.AilmentItem{}, "target_kind = '" + string(models.TargetProduct) + "' AND target_id = ?"},
			} {
				if err := tx.Where(dep.where, id).Delete(dep.model).Error; err != nil {
					return err
				}
			}

			res := tx.Delete(&models.Product{}, id)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.NotFoundf("Product not found")
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, gorm.ErrForeignKeyViolated) {
				err = apperr.Conflictf("product %d is still referenced", id)
			}
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
	}
}
