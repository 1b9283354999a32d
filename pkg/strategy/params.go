package strategy

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/hodlsim/hodlsim/pkg/core"
)

var validate = newValidator()

// newValidator reports violations under the caller-facing parameter names
// from the `param` struct tags instead of Go field names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("param"); name != "" {
			return name
		}
		return field.Name
	})
	return v
}

// checkBounds validates a fully-merged parameter struct and converts the
// first violation into an InvalidParameterError naming field and bound.
func checkBounds(params any) error {
	err := validate.Struct(params)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		bound := fe.Tag()
		if fe.Param() != "" {
			bound = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
		}
		return &core.InvalidParameterError{Field: fe.Field(), Bound: bound}
	}
	return err
}

// The param getters read one key out of the caller's parameter bag,
// tolerating the numeric types JSON and YAML decoders produce.

func floatParam(params Parameters, key string, fallback float64) float64 {
	v, ok := params[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return fallback
	}
}

func intParam(params Parameters, key string, fallback int) int {
	v, ok := params[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}

func stringParam(params Parameters, key, fallback string) string {
	if s, ok := params[key].(string); ok {
		return s
	}
	return fallback
}

func boolParam(params Parameters, key string, fallback bool) bool {
	if b, ok := params[key].(bool); ok {
		return b
	}
	return fallback
}
