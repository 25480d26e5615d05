package handler

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ctxUserID   = "user_id"
	ctxRoleName = "role_name"

	RoleAdmin   = "admin"
	RoleManager = "manager"
)

// JWTClaims - claims access-токена, выпущенного Auth Service
type JWTClaims struct {
	UserID      string   `json:"user_id"`
	Email       string   `json:"email"`
	RoleID      int      `json:"role_id"`
	RoleName    string   `json:"role_name"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
	}
}

// Authenticate проверяет Bearer-токен и кладёт user_id (uuid.UUID) и role_name в контекст
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWithError(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		token, err := jwt.ParseWithClaims(parts[1], &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(m.jwtSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			abortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		claims, ok := token.Claims.(*JWTClaims)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "Invalid token claims")
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "Invalid user ID in token")
			return
		}

		c.Set(ctxUserID, userID)
		c.Set("email", claims.Email)
		c.Set("role_id", claims.RoleID)
		c.Set(ctxRoleName, claims.RoleName)
		c.Set("permissions", claims.Permissions)

		c.Next()
	}
}

// RequireRole пропускает только пользователей с одной из ролей roles
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleName, ok := c.Get(ctxRoleName)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		roleNameStr, ok := roleName.(string)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "Invalid role data")
			return
		}

		if !slices.Contains(roles, roleNameStr) {
			abortWithError(c, http.StatusForbidden, "Insufficient permissions")
			return
		}

		c.Next()
	}
}

// currentUserID достаёт пользователя, положенного Authenticate
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, ok := c.Get(ctxUserID)
	if !ok {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	return userID, ok
}

func isAdmin(c *gin.Context) bool {
	return c.GetString(ctxRoleName) == RoleAdmin
}
