package cartControllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/treatnaturally-api/controllers/render"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"github.com/junaidrashid-git/treatnaturally-api/services/carts"
	"github.com/shopspring/decimal"
)

type CartItemInput struct {
	ProductID               uint                `json:"product_id" binding:"required"`
	Quantity                int                 `json:"quantity" binding:"required,min=1"`
	Variation               *string             `json:"variation"`
	FinalPriceAfterDiscount decimal.NullDecimal `json:"final_price_after_discount"`
}

type UpdateCartItemInput struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type cartItemView struct {
	models.CartItem
	TotalPrice decimal.Decimal `json:"total_price"`
}

type cartView struct {
	ID         string          `json:"id"`
	Items      []cartItemView  `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func present(cart *models.Cart) cartView {
	view := cartView{ID: cart.ID, Items: make([]cartItemView, 0, len(cart.Items)), TotalPrice: cart.Total()}
	for _, item := range cart.Items {
		view.Items = append(view.Items, cartItemView{CartItem: item, TotalPrice: item.LineTotal()})
	}
	return view
}

// POST /store/carts
func CreateCart(svc *carts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, err := svc.Create(c.Request.Context())
		if err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, present(cart))
	}
}

// GET /store/carts/:id
func GetCart(svc *carts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, present(cart))
	}
}

// DELETE /store/carts/:id
func DeleteCart(svc *carts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			render.Error(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// POST /store/carts/:id/items
func AddCartItem(svc *carts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CartItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			render.BadRequest(c, "Invalid input: "+err.Error())
			return
		}
		cart, err := svc.AddItem(c.Request.Context(), c.Param("id"), carts.ItemInput{
			ProductID:               input.ProductID,
			Quantity:                input.Quantity,
			Variation:               input.Variation,
			FinalPriceAfterDiscount: input.FinalPriceAfterDiscount,
		})
		if err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, present(cart))
	}
}

// PATCH /store/carts/:id/items/:item_id
func UpdateCartItem(svc *carts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, ok := render.UintParam(c, "item_id")
		if !ok {
			return
		}
		var input UpdateCartItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			render.BadRequest(c, "Invalid input: "+err.Error())
			return
		}
		cart, err := svc.UpdateItem(c.Request.Context(), c.Param("id"), itemID, input.Quantity)
		if err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, present(cart))
	}
}

// DELETE /store/carts/:id/items/:item_id
func DeleteCartItem(svc *carts.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, ok := render.UintParam(c, "item_id")
		if !ok {
			return
		}
		cart, err := svc.RemoveItem(c.Request.Context(), c.Param("id"), itemID)
		if err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, present(cart))
	}
}
