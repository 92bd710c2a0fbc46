package customerControllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/treatnaturally-api/controllers/render"
	"github.com/junaidrashid-git/treatnaturally-api/middleware"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"github.com/junaidrashid-git/treatnaturally-api/services/customers"
)

type AddressRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Country        string `json:"country"`
	City           string `json:"city"`
	StreetAddress1 string `json:"street_address_1"`
	StreetAddress2 string `json:"street_address_2"`
	Zipcode        string `json:"zipcode"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	OrderNotes     string `json:"order_notes"`
}

func (r AddressRequest) input() customers.AddressInput {
	return customers.AddressInput{
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Country:        r.Country,
		City:           r.City,
		StreetAddress1: r.StreetAddress1,
		StreetAddress2: r.StreetAddress2,
		Zipcode:        r.Zipcode,
		Email:          r.Email,
		Phone:          r.Phone,
		OrderNotes:     r.OrderNotes,
	}
}

func addressKind(c *gin.Context) (models.AddressKind, bool) {
	kind, ok := models.ParseAddressKind(c.Param("kind"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown address kind"})
	}
	return kind, ok
}

// POST /store/addresses/:kind
// Guests get an unlinked address for checkout; customers get their new
// current address.
func CreateAddress(svc *customers.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := addressKind(c)
		if !ok {
			return
		}
		var req AddressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			render.BadRequest(c, err.Error())
			return
		}
		var accountID *uint
		if id, ok := middleware.AccountID(c); ok {
			accountID = &id
		}
		addr, err := svc.CreateAddress(c.Request.Context(), accountID, kind, req.input())
		if err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, addr)
	}
}

// GET /store/addresses/:kind/me
func GetMyAddress(svc *customers.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := addressKind(c)
		if !ok {
			return
		}
		accountID, ok := requireAccount(c)
		if !ok {
			return
		}
		addr, err := svc.Address(c.Request.Context(), accountID, kind)
		if err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, addr)
	}
}

// PUT /store/addresses/:kind/me
func ReplaceMyAddress(svc *customers.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := addressKind(c)
		if !ok {
			return
		}
		accountID, ok := requireAccount(c)
		if !ok {
			return
		}
		var req AddressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			render.BadRequest(c, err.Error())
			return
		}
		addr, err := svc.ReplaceAddress(c.Request.Context(), accountID, kind, req.input())
		if err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, addr)
	}
}

// DELETE /store/addresses/:kind/me
func DeleteMyAddress(svc *customers.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := addressKind(c)
		if !ok {
			return
		}
		accountID, ok := requireAccount(c)
		if !ok {
			return
		}
		if err := svc.RemoveAddress(c.Request.Context(), accountID, kind); err != nil {
			render.Error(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
