package handlers

import (
	"sync"

	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerValidatorsOnce sync.Once

// registerValidators adds the custom binding rules to gin's validator engine.
func registerValidators() {
	registerValidatorsOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("ledgertype", validateLedgerType)
		}
	})
}

// validateLedgerType accepts any spelling ParseLedgerType normalizes.
func validateLedgerType(fl validator.FieldLevel) bool {
	_, err := domain.ParseLedgerType(fl.Field().String())
	return err == nil
}
