package transform

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"market-etl/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(orderLevel, model.UnifiedOrder{})
	v.RegisterStructValidation(productLevel, model.UnifiedProduct{})
	return v
}

func orderLevel(sl validator.StructLevel) {
	o := sl.Current().Interface().(model.UnifiedOrder)
	if o.ItemCount != len(o.Items) {
		sl.ReportError(o.ItemCount, "item_count", "ItemCount", "eq_items", "")
	}
}

func productLevel(sl validator.StructLevel) {
	p := sl.Current().Interface().(model.UnifiedProduct)
	if p.IsMapped != (p.MasterSKU != nil) {
		sl.ReportError(p.IsMapped, "is_mapped", "IsMapped", "eq_master_sku", "")
	}
}

// Validate checks a unified record against its schema tags.
func Validate(platform string, record any) error {
	err := validate.Struct(record)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return &UnexpectedError{Platform: platform, Err: err}
	}
	out := &ValidationError{Platform: platform, Violations: make([]FieldViolation, 0, len(fields))}
	for _, fe := range fields {
		out.Violations = append(out.Violations, FieldViolation{
			Field: trimNamespace(fe.Namespace()),
			Tag:   fe.Tag(),
			Param: fe.Param(),
			Value: fe.Value(),
		})
	}
	return out
}

// trimNamespace drops the struct name so paths read like items[0].quantity.
func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
