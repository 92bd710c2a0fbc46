package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ContextAccountID = "account_id"

// ValidateToken requires a valid HMAC-signed bearer token and stores the
// account id from its user_id claim in the context.
func ValidateToken(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearer(c.GetHeader("Authorization"))
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is missing"})
			return
		}
		accountID, err := parseToken(tokenString, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(ContextAccountID, accountID)
		c.Next()
	}
}

// OptionalToken authenticates the caller when a token is present and lets
// anonymous requests through. A token that is present but invalid is
// rejected.
func OptionalToken(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearer(c.GetHeader("Authorization"))
		if tokenString == "" {
			c.Next()
			return
		}
		accountID, err := parseToken(tokenString, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(ContextAccountID, accountID)
		c.Next()
	}
}

// AccountID returns the authenticated account, if any.
func AccountID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextAccountID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

func bearer(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

func parseToken(tokenString, secret string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return 0, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("invalid token claims")
	}
	return claimID(claims["user_id"])
}

func claimID(v any) (uint, error) {
	switch id := v.(type) {
	case float64:
		if id > 0 && id == float64(uint(id)) {
			return uint(id), nil
		}
	case string:
		n, err := strconv.ParseUint(id, 10, 64)
		if err == nil && n > 0 {
			return uint(n), nil
		}
	}
	return 0, fmt.Errorf("invalid user_id claim %v", v)
}
