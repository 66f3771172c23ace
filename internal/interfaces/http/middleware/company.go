package middleware

import (
	"net/http"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Company headers accepted from administrators whose token carries no selected company
const (
	CompanyIDHeader   = "X-Company-ID"
	CompanyNameHeader = "X-Company-Name"
	CompanyContextKey = "company_context"
)

// CompanyContext resolves the acting company for ledger routes. The company
// selected in the token wins. The X-Company-ID header is the fallback and is
// honored only for administrators when a token is present.
func CompanyContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			companyID   uuid.UUID
			companyName string
			userID      uuid.UUID
			userName    string
		)

		claims := GetJWTClaims(c)
		if claims != nil {
			if id, err := claims.UserUUID(); err == nil {
				userID = id
			}
			userName = claims.FullName
			companyID = claims.CompanyUUID()
			companyName = claims.CompanyName
		}

		if companyID == uuid.Nil {
			if header := c.GetHeader(CompanyIDHeader); header != "" {
				if claims != nil && !claims.IsAdmin() {
					abortCompany(c, http.StatusForbidden, dto.ErrCodeForbidden, "Only administrators may select a company by header")
					return
				}
				id, err := uuid.Parse(header)
				if err != nil {
					abortCompany(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Invalid company ID format")
					return
				}
				companyID = id
				companyName = c.GetHeader(CompanyNameHeader)
			}
		}

		cc, err := shared.NewCompanyContext(companyID, companyName, userID, userName)
		if err != nil {
			abortCompany(c, http.StatusBadRequest, dto.ErrCodeCompanyRequired, "A company must be selected")
			return
		}

		c.Set(CompanyContextKey, cc)
		c.Request = c.Request.WithContext(logger.WithCompanyID(c.Request.Context(), cc.CompanyID.String()))
		c.Next()
	}
}

func abortCompany(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}

// GetCompanyContext returns the context resolved by CompanyContext
func GetCompanyContext(c *gin.Context) (shared.CompanyContext, bool) {
	v, ok := c.Get(CompanyContextKey)
	if !ok {
		return shared.CompanyContext{}, false
	}
	cc, ok := v.(shared.CompanyContext)
	return cc, ok
}
