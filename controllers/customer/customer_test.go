package customerControllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/treatnaturally-api/database/dbtest"
	"github.com/junaidrashid-git/treatnaturally-api/events"
	"github.com/junaidrashid-git/treatnaturally-api/logging"
	"github.com/junaidrashid-git/treatnaturally-api/middleware"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"github.com/junaidrashid-git/treatnaturally-api/services/customers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// asAccount stands in for the token middleware; the X-Account header carries
// the account id.
func asAccount(c *gin.Context) {
	if raw := c.GetHeader("X-Account"); raw != "" {
		id, _ := strconv.ParseUint(raw, 10, 64)
		c.Set(middleware.ContextAccountID, uint(id))
	}
}

func router(db *gorm.DB) *gin.Engine {
	bus := events.NewBus(logging.Discard())
	svc := customers.NewService(db, bus, logging.Discard())
	events.On(bus, svc.LinkAddress)

	r := gin.New()
	r.Use(asAccount)
	r.POST("/customers", Register(svc))
	r.GET("/customers/me", GetMe(svc))
	r.PATCH("/customers/me", UpdateMe(svc))
	r.GET("/admin/customers", GetAllCustomers(db))
	r.GET("/interests", GetInterests(db))
	r.POST("/addresses/:kind", CreateAddress(svc))
	r.GET("/addresses/:kind/me", GetMyAddress(svc))
	r.PUT("/addresses/:kind/me", ReplaceMyAddress(svc))
	r.DELETE("/addresses/:kind/me", DeleteMyAddress(svc))
	return r
}

func send(r *gin.Engine, method, path string, account uint, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if account != 0 {
		req.Header.Set("X-Account", strconv.FormatUint(uint64(account), 10))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var shipping = map[string]string{
	"first_name": "Ada", "last_name": "Lovelace", "country": "United Kingdom",
	"city": "Leeds", "street_address_1": "1 Park Row", "zipcode": "LS1 5AB",
}

func TestRegisterAndProfile(t *testing.T) {
	db := dbtest.Open(t)
	r := router(db)

	w := send(r, http.MethodPost, "/customers", 0, map[string]string{"username": "ada", "email": "Ada@Example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Customer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, models.MembershipFree, created.Membership.Label)

	assert.Equal(t, http.StatusConflict,
		send(r, http.MethodPost, "/customers", 0, map[string]string{"username": "ada", "email": "other@example.com"}).Code)
	assert.Equal(t, http.StatusBadRequest,
		send(r, http.MethodPost, "/customers", 0, map[string]string{"username": "bob", "email": "not-an-email"}).Code)

	assert.Equal(t, http.StatusUnauthorized, send(r, http.MethodGet, "/customers/me", 0, nil).Code)

	w = send(r, http.MethodPatch, "/customers/me", created.AccountID, map[string]string{"phone": " 07700 900123 ", "birth_date": "1815-12-10"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = send(r, http.MethodGet, "/customers/me", created.AccountID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.Customer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "07700 900123", me.Phone)
	require.NotNil(t, me.BirthDate)
	assert.Equal(t, 1815, me.BirthDate.Year())
	assert.Equal(t, "ada@example.com", me.Account.Email)

	assert.Equal(t, http.StatusBadRequest,
		send(r, http.MethodPatch, "/customers/me", created.AccountID, map[string]string{"birth_date": "10/12/1815"}).Code)
	assert.Equal(t, http.StatusBadRequest,
		send(r, http.MethodPatch, "/customers/me", created.AccountID, map[string]string{"birth_date": "2999-01-01"}).Code)

	w = send(r, http.MethodGet, "/admin/customers", 0, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []models.Customer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all, 1)
}

func TestProfileInterests(t *testing.T) {
	db := dbtest.Open(t)
	r := router(db)

	w := send(r, http.MethodPost, "/customers", 0, map[string]string{"username": "ada", "email": "ada@example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var ada models.Customer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ada))
	w = send(r, http.MethodPost, "/customers", 0, map[string]string{"username": "bob", "email": "bob@example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var bob models.Customer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bob))

	labels := func(list []models.Interest) []string {
		out := make([]string, 0, len(list))
		for _, i := range list {
			out = append(out, i.Label)
		}
		return out
	}
	interests := func(names ...string) map[string]any {
		list := make([]map[string]string, 0, len(names))
		for _, n := range names {
			list = append(list, map[string]string{"label": n})
		}
		return map[string]any{"interests": list}
	}

	w = send(r, http.MethodPatch, "/customers/me", ada.AccountID, interests("Sleep", " Skin care ", "Sleep"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var me models.Customer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, []string{"Skin care", "Sleep"}, labels(me.Interests))

	w = send(r, http.MethodPatch, "/customers/me", bob.AccountID, interests("Sleep", "Digestion"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var count int64
	require.NoError(t, db.Model(&models.Interest{}).Count(&count).Error)
	assert.EqualValues(t, 3, count, "shared labels are reused")

	// A profile update without interests leaves them alone.
	w = send(r, http.MethodPatch, "/customers/me", ada.AccountID, map[string]string{"phone": "07700 900123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = send(r, http.MethodGet, "/customers/me", ada.AccountID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me = models.Customer{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, []string{"Skin care", "Sleep"}, labels(me.Interests))

	w = send(r, http.MethodPatch, "/customers/me", ada.AccountID, map[string]any{"interests": []any{}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	me = models.Customer{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Empty(t, me.Interests)

	assert.Equal(t, http.StatusBadRequest,
		send(r, http.MethodPatch, "/customers/me", ada.AccountID, map[string]any{"interests": []map[string]string{{"label": ""}}}).Code)

	w = send(r, http.MethodGet, "/interests", 0, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []models.Interest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Equal(t, []string{"Digestion", "Skin care", "Sleep"}, labels(all))
}

func TestAddressEndpoints(t *testing.T) {
	db := dbtest.Open(t)
	r := router(db)
	c := dbtest.Customer(t, db, "ada", models.MembershipFree)

	w := send(r, http.MethodPost, "/addresses/shipping", 0, shipping)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Nil(t, dbtest.Reload(t, db, c.ID).OptionalShippingAddressID, "guest addresses are not linked")

	assert.Equal(t, http.StatusNotFound, send(r, http.MethodGet, "/addresses/shipping/me", c.AccountID, nil).Code)
	assert.Equal(t, http.StatusNotFound, send(r, http.MethodGet, "/addresses/postal/me", c.AccountID, nil).Code)
	assert.Equal(t, http.StatusBadRequest,
		send(r, http.MethodPut, "/addresses/shipping/me", c.AccountID, map[string]string{"first_name": "Ada"}).Code)

	w = send(r, http.MethodPut, "/addresses/shipping/me", c.AccountID, shipping)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var addr models.OptionalShippingAddress
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &addr))
	linked := dbtest.Reload(t, db, c.ID).OptionalShippingAddressID
	require.NotNil(t, linked)
	assert.Equal(t, addr.ID, *linked)

	w = send(r, http.MethodGet, "/addresses/shipping/me", c.AccountID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Park Row")

	require.Equal(t, http.StatusNoContent, send(r, http.MethodDelete, "/addresses/shipping/me", c.AccountID, nil).Code)
	assert.Nil(t, dbtest.Reload(t, db, c.ID).OptionalShippingAddressID)
	assert.Equal(t, http.StatusNotFound, send(r, http.MethodDelete, "/addresses/shipping/me", c.AccountID, nil).Code)

	assert.Equal(t, http.StatusUnauthorized, send(r, http.MethodGet, "/addresses/billing/me", 0, nil).Code)
}
