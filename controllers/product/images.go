package productcontroller

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/treatnaturally-api/controllers/render"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"gorm.io/gorm"
)

// ImagesPath is where main mounts the upload directory.
const ImagesPath = "/uploads"

var unsafeFileChars = regexp.MustCompile(`[^\w\-.]`)

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// ImageStore saves uploads under Dir and builds public URLs from BaseURL.
type ImageStore struct {
	Dir     string
	BaseURL string
}

// GET /store/products/:id/images
func GetProductImages(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := render.UintParam(c, "id")
		if !ok {
			return
		}
		var images []models.ProductImage
		if err := db.WithContext(c.Request.Context()).Where("product_id = ?", id).Order("id").Find(&images).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch images"})
			return
		}
		c.JSON(http.StatusOK, images)
	}
}

// POST /admin/products/:id/images (multipart field "image")
func UploadProductImage(db *gorm.DB, store ImageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := render.UintParam(c, "id")
		if !ok {
			return
		}
		if err := db.WithContext(c.Request.Context()).First(&models.Product{}, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
				return
			}
			render.Error(c, err)
			return
		}

		file, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No image uploaded"})
			return
		}
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !imageExtensions[ext] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported image type"})
			return
		}
		base := unsafeFileChars.ReplaceAllString(strings.TrimSuffix(filepath.Base(file.Filename), filepath.Ext(file.Filename)), "_")
		name := fmt.Sprintf("%d_%d_%s%s", id, time.Now().UnixNano(), base, ext)

		if err := os.MkdirAll(store.Dir, 0o755); err != nil {
			render.Error(c, fmt.Errorf("create upload dir: %w", err))
			return
		}
		path := filepath.Join(store.Dir, name)
		if err := c.SaveUploadedFile(file, path); err != nil {
			render.Error(c, fmt.Errorf("save upload: %w", err))
			return
		}

		image := models.ProductImage{
			ProductID: id,
			FileName:  name,
			URL:       store.BaseURL + ImagesPath + "/" + name,
		}
		if err := db.WithContext(c.Request.Context()).Create(&image).Error; err != nil {
			_ = os.Remove(path)
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, image)
	}
}

// DELETE /admin/products/:id/images/:image_id
// Removes both the record and the file.
func DeleteProductImage(db *gorm.DB, store ImageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := render.UintParam(c, "id")
		if !ok {
			return
		}
		imageID, ok := render.UintParam(c, "image_id")
		if !ok {
			return
		}
		var image models.ProductImage
		err := db.WithContext(c.Request.Context()).Where("id = ? AND product_id = ?", imageID, id).First(&image).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
			return
		}
		if err != nil {
			render.Error(c, err)
			return
		}
		if err := os.Remove(filepath.Join(store.Dir, image.FileName)); err != nil && !os.IsNotExist(err) {
			render.Error(c, fmt.Errorf("delete image file: %w", err))
			return
		}
		if err := db.WithContext(c.Request.Context()).Delete(&image).Error; err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Image deleted"})
	}
}
