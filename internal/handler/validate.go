package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/codegen-gateway/internal/apperror"
)

// validate is safe for concurrent use and caches struct metadata, so one
// instance serves every handler.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest checks req against its validate tags. messages maps a JSON
// field name to the client-facing message for any failure on that field.
func validateRequest(req any, messages map[string]string) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperror.ValidationFailed("", "Invalid request")
	}

	first := fieldErrs[0]
	if msg, ok := messages[first.Field()]; ok {
		return apperror.ValidationFailed(first.Field(), msg)
	}
	return apperror.ValidationFailed(first.Field(), "Invalid value for "+first.Field())
}

var errNotANumber = errors.New("not a number")

// FlexFloat accepts a JSON number or a string holding a finite one. Browsers
// posting form values send "0.7" as often as 0.7. An empty string counts as
// absent.
type FlexFloat struct {
	Value float64
	Set   bool
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = FlexFloat{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errNotANumber
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = FlexFloat{}
			return nil
		}
		// ParseFloat also accepts "NaN" and "Inf" spellings, which are not
		// usable temperatures.
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return errNotANumber
		}
		*f = FlexFloat{Value: v, Set: true}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return errNotANumber
	}
	*f = FlexFloat{Value: v, Set: true}
	return nil
}

// Ptr returns nil when no value was supplied.
func (f FlexFloat) Ptr() *float64 {
	if !f.Set {
		return nil
	}
	v := f.Value
	return &v
}
