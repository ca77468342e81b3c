package employee

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
	validate     = newValidator()
)

var uniqueMessages = map[string]string{
	"num_empleado": "Ya existe un empleado con este número de empleado.",
	"curp":         "Ya existe un empleado con este CURP.",
	"rfc":          "Ya existe un empleado con este RFC.",
	"nss":          "Ya existe un empleado con este NSS.",
	"email":        "Ya existe un empleado con este email.",
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// fieldSet はフィールド名の集合です。nil はすべてのフィールドを表します。
type fieldSet map[string]bool

func (s fieldSet) has(name string) bool {
	return s == nil || s[name]
}

// UniqueMessage は一意制約違反時のメッセージを返します。
func UniqueMessage(field string) string {
	if msg, ok := uniqueMessages[field]; ok {
		return msg
	}
	return "Ya existe un empleado con este valor."
}

// validateEmployee はフィールドの形式・日付・一意性を検証します。fields が nil の場合はすべてを検証します。
func (s *Service) validateEmployee(ctx context.Context, emp *Employee, fields fieldSet) error {
	verr := &ValidationError{}

	if err := validate.Struct(emp); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			if fields.has(fe.Field()) {
				verr.add(fe.Field(), messageFor(fe))
			}
		}
	}

	today := truncateDate(s.clock.Now())
	if fields.has("fecha_nacimiento") && emp.BirthDate.After(today) {
		verr.add("fecha_nacimiento", "La fecha de nacimiento no puede ser futura.")
	}
	if fields.has("fecha_ingreso") && emp.HireDate.After(today) {
		verr.add("fecha_ingreso", "La fecha de ingreso no puede ser futura.")
	}

	keys := uniqueKeysFor(emp, fields)
	if !keys.empty() {
		conflicts, err := s.repo.FindConflicts(ctx, keys, emp.ID)
		if err != nil {
			return err
		}
		for _, field := range conflicts {
			verr.add(field, UniqueMessage(field))
		}
	}

	return verr.orNil()
}

func uniqueKeysFor(emp *Employee, fields fieldSet) UniqueKeys {
	var keys UniqueKeys
	if fields.has("num_empleado") {
		keys.EmployeeNumber = emp.EmployeeNumber
	}
	if fields.has("curp") {
		keys.CURP = emp.CURP
	}
	if fields.has("rfc") {
		keys.RFC = emp.RFC
	}
	if fields.has("nss") {
		keys.NSS = emp.NSS
	}
	if fields.has("email") {
		keys.Email = emp.Email
	}
	return keys
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Este campo es obligatorio."
	case "max":
		return fmt.Sprintf("Asegúrese de que este campo no tenga más de %s caracteres.", fe.Param())
	case "email":
		return "Introduzca una dirección de correo electrónico válida."
	case "phone10":
		return "El teléfono debe tener exactamente 10 dígitos."
	default:
		return "Valor inválido."
	}
}

func truncateDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
