package productcontroller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"gorm.io/gorm"
)

// GetProducts lists the catalog, newest changes first.
func GetProducts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var products []models.Product
		if err := db.WithContext(c.Request.Context()).
			Preload("Category").
			Preload("Variations", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
			Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
			Order("updated_at desc").
			Order("id").
			Find(&products).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
			return
		}
		c.JSON(http.StatusOK, products)
	}
}
