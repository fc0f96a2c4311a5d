package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FormErrors translates a gin form-binding failure into field->message pairs
// keyed by the form input name, ready to re-render on the submitted page.
func FormErrors(err error, out interface{}) map[string]string {
	fields := make(map[string]string)

	var validatorError validator.ValidationErrors

	if !errors.As(err, &validatorError) {
		fields["form"] = "could not be read"
		return fields
	}

	rootType := baseStructType(out)

	for _, fieldError := range validatorError {
		field := formNameForField(rootType, fieldError.StructField())

		if field == "" {
			field = strings.ToLower(fieldError.Field())
		}

		fields[field] = validationMessage(fieldError.Tag(), fieldError.Param())
	}

	return fields
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

func formNameForField(rootType reflect.Type, fieldName string) string {
	if rootType == nil {
		return ""
	}

	sf, ok := rootType.FieldByName(fieldName)

	if !ok {
		return ""
	}

	tag := sf.Tag.Get("form")
	if tag == "" {
		return ""
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return ""
	}

	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "min":
		return "must be at least " + param + " characters"
	case "max":
		return "must be at most " + param + " characters"
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
