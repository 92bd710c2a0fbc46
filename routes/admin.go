package routes

import (
	"github.com/gin-gonic/gin"
	contentControllers "github.com/junaidrashid-git/treatnaturally-api/controllers/content"
	customerControllers "github.com/junaidrashid-git/treatnaturally-api/controllers/customer"
	orderControllers "github.com/junaidrashid-git/treatnaturally-api/controllers/order"
	productcontroller "github.com/junaidrashid-git/treatnaturally-api/controllers/product"
	"github.com/junaidrashid-git/treatnaturally-api/middleware"
)

// SetupAdminRoutes registers all "/admin/*" endpoints. Requires API-Key middleware.
func SetupAdminRoutes(r *gin.Engine, d Deps) {
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.ValidateAPIKey(d.AdminAPIKey))
	{
		adminGroup.GET("/customers", customerControllers.GetAllCustomers(d.DB))

		// ─────────── Product Management ───────────
		productAdmin := adminGroup.Group("/products")
		{
			productAdmin.POST("", productcontroller.CreateProduct(d.DB))
			productAdmin.PUT("/:id", productcontroller.UpdateProduct(d.DB))
			productAdmin.GET("", productcontroller.GetProducts(d.DB))
			productAdmin.DELETE("/:id", productcontroller.DeleteProduct(d.DB))
			productAdmin.POST("/import-excel", productcontroller.ImportProductsFromExcel(d.DB))
			productAdmin.GET("/export-excel", productcontroller.ExportProductsToExcel(d.DB))
			productAdmin.POST("/:id/images", productcontroller.UploadProductImage(d.DB, d.Images))
			productAdmin.DELETE("/:id/images/:image_id", productcontroller.DeleteProductImage(d.DB, d.Images))
		}

		// ─────────── Categories ───────────
		categoryAdmin := adminGroup.Group("/categories")
		{
			categoryAdmin.POST("", productcontroller.CreateCategory(d.DB))
			categoryAdmin.PUT("/:id", productcontroller.UpdateCategory(d.DB))
			categoryAdmin.DELETE("/:id", productcontroller.DeleteCategory(d.DB))
		}

		// ─────────── Orders ───────────
		orderAdmin := adminGroup.Group("/orders")
		{
			orderAdmin.GET("", orderControllers.GetAllOrders(d.DB))
			orderAdmin.GET("/export-excel", orderControllers.ExportOrdersToExcel(d.DB))
			orderAdmin.GET("/ws", orderControllers.OrderWebSocketHandler(d.OrderFeed))
			orderAdmin.GET("/:id", orderControllers.GetOrderByID(d.DB))
			orderAdmin.PATCH("/:id/payment-status", orderControllers.UpdatePaymentStatus(d.Reconciler))
		}

		// ─────────── Content ───────────
		blogAdmin := adminGroup.Group("/blog")
		{
			blogAdmin.POST("", contentControllers.CreateBlogPost(d.DB))
			blogAdmin.PUT("/:id", contentControllers.UpdateBlogPost(d.DB))
			blogAdmin.DELETE("/:id", contentControllers.DeleteBlogPost(d.DB))
		}
		adminGroup.POST("/tags", contentControllers.CreateTag(d.DB))
		adminGroup.POST("/tags/:id/items", contentControllers.LinkTag(d.DB))
		adminGroup.POST("/ailments/:id/items", contentControllers.LinkAilment(d.DB))
	}
}
