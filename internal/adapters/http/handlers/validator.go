// Package handlers contains the HTTP handlers of the REST API.
//
// A handler is an adapter: it binds the request, converts it into a command,
// calls the use case, and maps the result (or domain error) back to HTTP.
// No business logic lives here.
package handlers

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/coinvault/coinvault/internal/adapters/http/common"
)

var setupOnce sync.Once

// SetupValidator registers the custom validators with gin's binding engine.
func SetupValidator() {
	setupOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			// Report json field names in validation errors
			v.RegisterTagNameFunc(func(fld reflect.StructField) string {
				name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
				if name == "-" {
					return ""
				}
				return name
			})

			_ = v.RegisterValidation("asset_code", validateAssetCode)
			_ = v.RegisterValidation("money_amount", validateMoneyAmount)
		}
	})
}

// validateAssetCode checks the catalog code shape: upper-case letters,
// digits and underscores, at most 50 chars.
var assetCodePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{0,49}$`)

func validateAssetCode(fl validator.FieldLevel) bool {
	return assetCodePattern.MatchString(fl.Field().String())
}

// validateMoneyAmount checks the decimal string shape: digits with at most
// two fractional digits. Positivity is checked when the amount is parsed.
var moneyPattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

func validateMoneyAmount(fl validator.FieldLevel) bool {
	return moneyPattern.MatchString(fl.Field().String())
}

// bindingErrorFields converts validator errors into field errors for the
// response body.
func bindingErrorFields(err error) []common.FieldError {
	var fields []common.FieldError
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields = append(fields, common.FieldError{
				Field:   fe.Field(),
				Message: validationMessage(fe),
			})
		}
	}
	return fields
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "exceeds maximum length of " + fe.Param()
	case "asset_code":
		return "must be an upper-case asset code"
	case "money_amount":
		return "must be a decimal with at most two fractional digits"
	default:
		return "is invalid"
	}
}

// requireIdempotencyKey pulls the mandatory Idempotency-Key header; a
// missing header aborts with a validation response.
func requireIdempotencyKey(c *gin.Context) (string, bool) {
	key := c.GetHeader(IdempotencyKeyHeader)
	if key == "" {
		common.ValidationErrorResponse(c, []common.FieldError{{
			Field:   IdempotencyKeyHeader,
			Message: "header is required",
		}})
		return "", false
	}
	if len(key) > 255 {
		common.ValidationErrorResponse(c, []common.FieldError{{
			Field:   IdempotencyKeyHeader,
			Message: "exceeds maximum length of 255",
		}})
		return "", false
	}
	return key, true
}
