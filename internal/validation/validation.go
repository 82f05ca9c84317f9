package validation

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
)

var Validate *validator.Validate

func init() {
	Validate = validator.New()

	_ = Validate.RegisterValidation("eth_address", func(fl validator.FieldLevel) bool {
		return common.IsHexAddress(fl.Field().String())
	})
}

// EchoValidator plugs Validate into echo's c.Validate.
type EchoValidator struct {
	Validator *validator.Validate
}

func NewEchoValidator() *EchoValidator {
	return &EchoValidator{Validator: Validate}
}

func (v *EchoValidator) Validate(i interface{}) error {
	return v.Validator.Struct(i)
}
