package dto

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Los errores se reportan con el nombre JSON del campo.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// decimal.Decimal se valida como número (gt, gte, required).
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// Validate valida las etiquetas `validate` del request y devuelve *domain.ValidationError con
// el detalle por campo.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return domain.ErrInvalidInput
	}
	fields := make(map[string]string, len(ves))
	for _, fe := range ves {
		path := fe.Namespace()
		if i := strings.Index(path, "."); i >= 0 {
			path = path[i+1:]
		}
		fields[path] = ruleMessage(fe)
	}
	return &domain.ValidationError{Fields: fields}
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "es obligatorio"
	case "gt":
		return "debe ser mayor que " + fe.Param()
	case "gte", "min":
		return "debe ser mayor o igual a " + fe.Param()
	case "max":
		return "debe ser menor o igual a " + fe.Param()
	case "oneof":
		return "debe ser uno de: " + fe.Param()
	case "datetime":
		return "fecha inválida, formato " + fe.Param()
	case "email":
		return "correo inválido"
	case "gtefield":
		return "debe ser mayor o igual a " + fe.Param()
	default:
		return "no cumple la regla " + fe.Tag()
	}
}
