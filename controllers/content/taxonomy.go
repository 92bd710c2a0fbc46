package contentControllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/treatnaturally-api/controllers/render"
	"github.com/junaidrashid-git/treatnaturally-api/database"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"gorm.io/gorm"
)

type TagInput struct {
	Label string `json:"label" binding:"required,max=255"`
}

type LinkInput struct {
	TargetKind string `json:"target_kind" binding:"required"`
	TargetID   uint   `json:"target_id" binding:"required"`
}

// GET /tags
func GetTags(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tags []models.Tag
		if err := db.WithContext(c.Request.Context()).Order("label").Find(&tags).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
			return
		}
		c.JSON(http.StatusOK, tags)
	}
}

// GET /tags/:id
func GetTag(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := render.UintParam(c, "id")
		if !ok {
			return
		}
		var tag models.Tag
		if err := db.WithContext(c.Request.Context()).Preload("Items").First(&tag, id).Error; err != nil {
			notFoundOr500(c, err, "Tag not found")
			return
		}
		c.JSON(http.StatusOK, tag)
	}
}

// GET /ailments
func GetAilments(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ailments []models.Ailment
		if err := db.WithContext(c.Request.Context()).Order("title").Find(&ailments).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch ailments"})
			return
		}
		c.JSON(http.StatusOK, ailments)
	}
}

// GET /ailments/:id
func GetAilment(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := render.UintParam(c, "id")
		if !ok {
			return
		}
		var ailment models.Ailment
		if err := db.WithContext(c.Request.Context()).Preload("Items").First(&ailment, id).Error; err != nil {
			notFoundOr500(c, err, "Ailment not found")
			return
		}
		c.JSON(http.StatusOK, ailment)
	}
}

// GET /store/products/:id/tags
func GetProductTags(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := render.UintParam(c, "id")
		if !ok {
			return
		}
		var tags []models.Tag
		if err := db.WithContext(c.Request.Context()).
			Joins("JOIN tagged_items ON tagged_items.tag_id = tags.id").
			Where("tagged_items.target_kind = ? AND tagged_items.target_id = ?", models.TargetProduct, id).
			Order("tags.label").
			Find(&tags).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
			return
		}
		c.JSON(http.StatusOK, tags)
	}
}

// GET /store/products/:id/ailments
func GetProductAilments(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := render.UintParam(c, "id")
		if !ok {
			return
		}
		var ailments []models.Ailment
		if err := db.WithContext(c.Request.Context()).
			Joins("JOIN ailment_items ON ailment_items.ailment_id = ailments.id").
			Where("ailment_items.target_kind = ? AND ailment_items.target_id = ?", models.TargetProduct, id).
			Order("ailments.title").
			Find(&ailments).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch ailments"})
			return
		}
		c.JSON(http.StatusOK, ailments)
	}
}

// POST /admin/tags
func CreateTag(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input TagInput
		if err := c.ShouldBindJSON(&input); err != nil {
			render.BadRequest(c, err.Error())
			return
		}
		tag := models.Tag{Label: strings.TrimSpace(input.Label)}
		if err := db.WithContext(c.Request.Context()).Create(&tag).Error; err != nil {
			if database.IsUniqueViolation(err) {
				c.JSON(http.StatusConflict, gin.H{"error": "Tag already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create tag"})
			return
		}
		c.JSON(http.StatusCreated, tag)
	}
}

// POST /admin/tags/:id/items
func LinkTag(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := render.UintParam(c, "id")
		if !ok {
			return
		}
		kind, targetID, ok := bindLink(c)
		if !ok {
			return
		}
		item := models.TaggedItem{TagID: id, TargetKind: kind, TargetID: targetID}
		createLink(c, db, &models.Tag{}, id, &item)
	}
}

// POST /admin/ailments/:id/items
func LinkAilment(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := render.UintParam(c, "id")
		if !ok {
			return
		}
		kind, targetID, ok := bindLink(c)
		if !ok {
			return
		}
		item := models.AilmentItem{AilmentID: id, TargetKind: kind, TargetID: targetID}
		createLink(c, db, &models.Ailment{}, id, &item)
	}
}

func bindLink(c *gin.Context) (models.TargetKind, uint, bool) {
	var input LinkInput
	if err := c.ShouldBindJSON(&input); err != nil {
		render.BadRequest(c, err.Error())
		return "", 0, false
	}
	kind, err := models.ParseTargetKind(input.TargetKind)
	if err != nil {
		render.BadRequest(c, err.Error())
		return "", 0, false
	}
	return kind, input.TargetID, true
}

// createLink stores item after checking the owning tag or ailment exists.
func createLink(c *gin.Context, db *gorm.DB, owner any, ownerID uint, item any) {
	ctx := c.Request.Context()
	if err := db.WithContext(ctx).First(owner, ownerID).Error; err != nil {
		notFoundOr500(c, err, "Not found")
		return
	}
	if err := db.WithContext(ctx).Create(item).Error; err != nil {
		if database.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "Already linked"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to link"})
		return
	}
	c.JSON(http.StatusCreated, item)
}
