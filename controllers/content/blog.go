package contentControllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/treatnaturally-api/controllers/render"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"gorm.io/gorm"
)

type BlogPostInput struct {
	Title   string `json:"title" binding:"required,max=255"`
	Content string `json:"content"`
}

// GET /blog
func GetBlogPosts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var posts []models.BlogPost
		if err := db.WithContext(c.Request.Context()).Order("updated_at desc").Find(&posts).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch blog posts"})
			return
		}
		c.JSON(http.StatusOK, posts)
	}
}

// GET /blog/:id
func GetBlogPost(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := render.UintParam(c, "id")
		if !ok {
			return
		}
		var post models.BlogPost
		if err := db.WithContext(c.Request.Context()).First(&post, id).Error; err != nil {
			notFoundOr500(c, err, "Blog post not found")
			return
		}
		c.JSON(http.StatusOK, post)
	}
}

// POST /admin/blog
func CreateBlogPost(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input BlogPostInput
		if err := c.ShouldBindJSON(&input); err != nil {
			render.BadRequest(c, err.Error())
			return
		}
		post := models.BlogPost{Title: strings.TrimSpace(input.Title), Content: input.Content}
		if err := db.WithContext(c.Request.Context()).Create(&post).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create blog post"})
			return
		}
		c.JSON(http.StatusCreated, post)
	}
}

// PUT /admin/blog/:id
func UpdateBlogPost(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := render.UintParam(c, "id")
		if !ok {
			return
		}
		var input BlogPostInput
		if err := c.ShouldBindJSON(&input); err != nil {
			render.BadRequest(c, err.Error())
			return
		}
		var post models.BlogPost
		if err := db.WithContext(c.Request.Context()).First(&post, id).Error; err != nil {
			notFoundOr500(c, err, "Blog post not found")
			return
		}
		post.Title = strings.TrimSpace(input.Title)
		post.Content = input.Content
		if err := db.WithContext(c.Request.Context()).Save(&post).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update blog post"})
			return
		}
		c.JSON(http.StatusOK, post)
	}
}

// DELETE /admin/blog/:id
// Tag and ailment links to the post go with it.
func DeleteBlogPost(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := render.UintParam(c, "id")
		if !ok {
			return
		}
		var deleted int64
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if err := unlinkTarget(tx, models.TargetBlogPost, id); err != nil {
				return err
			}
			res := tx.Delete(&models.BlogPost{}, id)
			deleted = res.RowsAffected
			return res.Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete blog post"})
			return
		}
		if deleted == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Blog post not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Blog post deleted"})
	}
}

func notFoundOr500(c *gin.Context, err error, msg string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": msg})
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
}

func unlinkTarget(tx *gorm.DB, kind models.TargetKind, id uint) error {
	if err := tx.Where("target_kind = ? AND target_id = ?", kind, id).Delete(&models.TaggedItem{}).Error; err != nil {
		return err
	}
	return tx.Where("target_kind = ? AND target_id = ?", kind, id).Delete(&models.AilmentItem{}).Error
}
