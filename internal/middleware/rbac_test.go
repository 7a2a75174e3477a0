package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/sekolahku/sekolahku-api/internal/models"
)

func rbacRequest(t *testing.T, claims *models.JWTClaims, paramID string, allowed ...string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/resource", nil)
	c.Request = req
	if paramID != "" {
		c.Params = gin.Params{{Key: "id", Value: paramID}}
	}
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}

	RBAC(allowed...)(c)
	if !c.IsAborted() {
		c.Status(http.StatusOK)
	}
	return w
}

func TestRBACAllowsListedRole(t *testing.T) {
	w := rbacRequest(t, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}, "", "SUPERADMIN", "ADMIN")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRBACDeniesUnlistedRole(t *testing.T) {
	w := rbacRequest(t, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}, "", "SUPERADMIN", "ADMIN")
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACDeniesMissingClaims(t *testing.T) {
	w := rbacRequest(t, nil, "", "ADMIN")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRBACSelfMatchesOwnID(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}

	w := rbacRequest(t, claims, "u1", "ADMIN", "SELF")
	require.Equal(t, http.StatusOK, w.Code)

	w = rbacRequest(t, claims, "someone-else", "ADMIN", "SELF")
	require.Equal(t, http.StatusForbidden, w.Code)
}
