package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"subadmin/internal/subscription"
)

// NumericText is the text of a numeric form field. It decodes from either a JSON
// string or a JSON number, and always encodes as a string.
type NumericText string

func (n *NumericText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = NumericText(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("expected number or string: %w", err)
	}
	*n = NumericText(num.String())
	return nil
}

type SubscriptionRequest struct {
	Name  string      `json:"name" validate:"required,notblank"`
	Price NumericText `json:"price" validate:"required,number"`
	Count NumericText `json:"count" validate:"required,number"`
}

// Fields converts a validated request into storable values.
func (r SubscriptionRequest) Fields() (subscription.Fields, error) {
	price, err := subscription.ParseNumber(string(r.Price))
	if err != nil {
		return subscription.Fields{}, fmt.Errorf("price: %w", err)
	}
	count, err := subscription.ParseNumber(string(r.Count))
	if err != nil {
		return subscription.Fields{}, fmt.Errorf("count: %w", err)
	}
	return subscription.Fields{Name: r.Name, Price: price, Count: count}, nil
}

var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// "number" replaces the builtin tag: the builtin one rejects surrounding spaces and exponents
	// that the dashboard form accepts.
	_ = v.RegisterValidation("number", func(fl validator.FieldLevel) bool {
		_, err := subscription.ParseNumber(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
