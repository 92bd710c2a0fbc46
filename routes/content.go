package routes

import (
	"github.com/gin-gonic/gin"
	contentControllers "github.com/junaidrashid-git/treatnaturally-api/controllers/content"
)

func SetupContentRoutes(r *gin.Engine, d Deps) {
	r.GET("/blog", contentControllers.GetBlogPosts(d.DB))
	r.GET("/blog/:id", contentControllers.GetBlogPost(d.DB))
	r.GET("/tags", contentControllers.GetTags(d.DB))
	r.GET("/tags/:id", contentControllers.GetTag(d.DB))
	r.GET("/ailments", contentControllers.GetAilments(d.DB))
	r.GET("/ailments/:id", contentControllers.GetAilment(d.DB))
}
