package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/identity"
	"github.com/erp/settlement/internal/infrastructure/auth"
	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/erp/settlement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	identity.PasswordCost = bcrypt.MinCost
	gin.SetMode(gin.TestMode)
}

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "middleware-test-secret-long-enough",
		AccessTokenExpiration: time.Hour,
		Issuer:                "settlement-test",
	})
}

// issueToken signs a token for a user acting for companyID (uuid.Nil: none)
func issueToken(t *testing.T, svc *auth.JWTService, companyID uuid.UUID, companyName string) (string, *identity.User) {
	t.Helper()
	return issueTokenAs(t, svc, identity.RoleUser, companyID, companyName)
}

func issueTokenAs(t *testing.T, svc *auth.JWTService, role identity.Role, companyID uuid.UUID, companyName string) (string, *identity.User) {
	t.Helper()
	u, err := identity.NewUser("Ana Souza", "ana@example.com", "secret123", role)
	require.NoError(t, err)
	if companyID != uuid.Nil {
		u.GrantCompany(companyID, companyName)
		require.NoError(t, u.SelectCompany(companyID))
	}
	tok, err := svc.Issue(u)
	require.NoError(t, err)
	return tok.AccessToken, u
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
