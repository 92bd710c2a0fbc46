package routes

import (
	"github.com/gin-gonic/gin"
	cartControllers "github.com/junaidrashid-git/treatnaturally-api/controllers/cart"
	contentControllers "github.com/junaidrashid-git/treatnaturally-api/controllers/content"
	customerControllers "github.com/junaidrashid-git/treatnaturally-api/controllers/customer"
	orderControllers "github.com/junaidrashid-git/treatnaturally-api/controllers/order"
	productcontroller "github.com/junaidrashid-git/treatnaturally-api/controllers/product"
	"github.com/junaidrashid-git/treatnaturally-api/middleware"
)

// SetupStoreRoutes registers all "/store/*" endpoints.
func SetupStoreRoutes(r *gin.Engine, d Deps) {
	store := r.Group("/store")
	store.Use(middleware.OptionalToken(d.JWTSecret))
	{
		// ─────────── Catalog ───────────
		store.GET("/products", productcontroller.GetProducts(d.DB))
		store.GET("/products/:id", productcontroller.GetProductByID(d.DB))
		store.GET("/products/:id/images", productcontroller.GetProductImages(d.DB))
		store.GET("/products/:id/reviews", productcontroller.GetProductReviews(d.DB))
		store.POST("/products/:id/reviews", productcontroller.CreateProductReview(d.DB))
		store.GET("/products/:id/tags", contentControllers.GetProductTags(d.DB))
		store.GET("/products/:id/ailments", contentControllers.GetProductAilments(d.DB))
		store.GET("/categories", productcontroller.GetAllCategories(d.DB))
		store.GET("/categories/:id", productcontroller.GetCategoryByID(d.DB))
		store.GET("/memberships", productcontroller.GetMemberships(d.DB))
		store.GET("/interests", customerControllers.GetInterests(d.DB))

		// ─────────── Carts ───────────
		cart := store.Group("/carts")
		{
			cart.POST("", cartControllers.CreateCart(d.Carts))
			cart.GET("/:id", cartControllers.GetCart(d.Carts))
			cart.DELETE("/:id", cartControllers.DeleteCart(d.Carts))
			cart.POST("/:id/items", cartControllers.AddCartItem(d.Carts))
			cart.PATCH("/:id/items/:item_id", cartControllers.UpdateCartItem(d.Carts))
			cart.DELETE("/:id/items/:item_id", cartControllers.DeleteCartItem(d.Carts))
		}

		// ─────────── Orders ───────────
		store.POST("/orders", orderControllers.CreateOrder(d.Checkout))
		store.GET("/orders", orderControllers.GetMyOrders(d.DB))
		store.GET("/orders/:id", orderControllers.GetMyOrder(d.DB))

		// ─────────── Customers & addresses ───────────
		store.POST("/customers", customerControllers.Register(d.Customers))
		store.GET("/customers/me", customerControllers.GetMe(d.Customers))
		store.PATCH("/customers/me", customerControllers.UpdateMe(d.Customers))

		addresses := store.Group("/addresses/:kind")
		{
			addresses.POST("", customerControllers.CreateAddress(d.Customers))
			addresses.GET("/me", customerControllers.GetMyAddress(d.Customers))
			addresses.PUT("/me", customerControllers.ReplaceMyAddress(d.Customers))
			addresses.DELETE("/me", customerControllers.DeleteMyAddress(d.Customers))
		}
	}
}
