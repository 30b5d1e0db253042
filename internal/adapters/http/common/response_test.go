package common

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	domainErrors "github.com/coinvault/coinvault/internal/domain/errors"
)

func runHandler(fn gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fn(c)
	return w
}

func TestHandleDomainError_Mapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"asset not found", domainErrors.ErrAssetNotFound, http.StatusNotFound, ErrCodeAssetNotFound},
		{"wallet not found", domainErrors.ErrWalletNotFound, http.StatusNotFound, ErrCodeWalletNotFound},
		{"insufficient funds", domainErrors.NewInsufficientFunds("1.00", "2.00"), http.StatusBadRequest, ErrCodeInsufficientFunds},
		{"validation", domainErrors.ValidationError{Field: "amount", Message: "bad"}, http.StatusUnprocessableEntity, ErrCodeValidation},
		{"entity not found", domainErrors.ErrEntityNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"internal", domainErrors.NewInternal("op", assertErr{}), http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := runHandler(func(c *gin.Context) {
				HandleDomainError(c, tc.err, false)
			})
			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantCode)
		})
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestInternalError_HidesCauseUnlessDebug(t *testing.T) {
	w := runHandler(func(c *gin.Context) {
		InternalErrorResponse(c, false, assertErr{})
	})
	assert.NotContains(t, w.Body.String(), "boom")

	w = runHandler(func(c *gin.Context) {
		InternalErrorResponse(c, true, assertErr{})
	})
	assert.Contains(t, w.Body.String(), "boom")
}

func TestRaw_WritesBytesVerbatim(t *testing.T) {
	body := []byte(`{"transaction_id":"t-1"}`)
	w := runHandler(func(c *gin.Context) {
		Raw(c, http.StatusCreated, body)
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, body, w.Body.Bytes())
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
}
