package customerControllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/treatnaturally-api/controllers/render"
	"github.com/junaidrashid-git/treatnaturally-api/middleware"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"github.com/junaidrashid-git/treatnaturally-api/services/customers"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type InterestRequest struct {
	Label string `json:"label" binding:"required"`
}

type UpdateProfileRequest struct {
	Phone     *string            `json:"phone"`
	BirthDate *string            `json:"birth_date"` // YYYY-MM-DD
	Interests *[]InterestRequest `json:"interests" binding:"omitempty,dive"`
}

func requireAccount(c *gin.Context) (uint, bool) {
	id, ok := middleware.AccountID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	}
	return id, ok
}

// POST /store/customers
func Register(svc *customers.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			render.BadRequest(c, err.Error())
			return
		}
		customer, err := svc.Register(c.Request.Context(), customers.RegisterInput{
			Username:  req.Username,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		})
		if err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, customer)
	}
}

// GET /store/customers/me
func GetMe(svc *customers.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := requireAccount(c)
		if !ok {
			return
		}
		customer, err := svc.Me(c.Request.Context(), accountID)
		if err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, customer)
	}
}

// PATCH /store/customers/me
func UpdateMe(svc *customers.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := requireAccount(c)
		if !ok {
			return
		}
		var req UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			render.BadRequest(c, err.Error())
			return
		}
		in := customers.ProfileInput{Phone: req.Phone}
		if req.BirthDate != nil {
			d, err := time.Parse(time.DateOnly, *req.BirthDate)
			if err != nil {
				render.BadRequest(c, "birth_date must be formatted as YYYY-MM-DD")
				return
			}
			in.BirthDate = &d
		}
		if req.Interests != nil {
			labels := make([]string, 0, len(*req.Interests))
			for _, i := range *req.Interests {
				labels = append(labels, i.Label)
			}
			in.Interests = &labels
		}
		customer, err := svc.UpdateProfile(c.Request.Context(), accountID, in)
		if err != nil {
			render.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, customer)
	}
}

// GET /store/interests
func GetInterests(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := customers.Interests(c.Request.Context(), db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch interests"})
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// GET /admin/customers
func GetAllCustomers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var list []models.Customer
		if err := db.WithContext(c.Request.Context()).
			Preload("Account").
			Preload("Membership").
			Order("created_at desc").
			Find(&list).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch customers"})
			return
		}
		c.JSON(http.StatusOK, list)
	}
}
