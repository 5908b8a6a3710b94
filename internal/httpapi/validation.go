package httpapi

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators installs the service's custom binding rules on gin's
// validator engine. Called once from NewRouter.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("currency", validCurrency)
	}
}

// validCurrency accepts a three-letter ISO 4217 alphabetic code in either
// case. The PSP rejects unknown codes authoritatively; this only catches
// obviously malformed input before a network call is spent on it.
func validCurrency(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
