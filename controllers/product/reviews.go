package productcontroller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/treatnaturally-api/controllers/render"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"gorm.io/gorm"
)

type ReviewInput struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description" binding:"required"`
}

// GET /store/products/:id/reviews
func GetProductReviews(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := render.UintParam(c, "id")
		if !ok {
			return
		}
		var reviews []models.Review
		if err := db.WithContext(c.Request.Context()).
			Where("product_id = ?", id).
			Order("created_at desc").
			Order("id desc").
			Find(&reviews).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reviews"})
			return
		}
		c.JSON(http.StatusOK, reviews)
	}
}

// POST /store/products/:id/reviews
func CreateProductReview(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := render.UintParam(c, "id")
		if !ok {
			return
		}
		var input ReviewInput
		if err := c.ShouldBindJSON(&input); err != nil {
			render.BadRequest(c, "Invalid input: "+err.Error())
			return
		}
		review := models.Review{
			ProductID:   id,
			Name:        strings.TrimSpace(input.Name),
			Description: strings.TrimSpace(input.Description),
		}
		if review.Name == "" || review.Description == "" {
			render.BadRequest(c, "name and description are required")
			return
		}

		ctx := c.Request.Context()
		if err := db.WithContext(ctx).First(&models.Product{}, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
				return
			}
			render.Error(c, err)
			return
		}
		if err := db.WithContext(ctx).Create(&review).Error; err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, review)
	}
}
