package services

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// emailShapeTag accepts anything shaped like local@domain.tld; the backend
// has the final word.
const emailShapeTag = "email_shape"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(emailShapeTag, func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}

type signUpForm struct {
	Email    string `json:"email" validate:"email_shape"`
	Password string `json:"password" validate:"min=6"`
}

type signInForm struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type resetForm struct {
	Email string `json:"email" validate:"required,email_shape"`
}

type passwordForm struct {
	Password string `json:"password" validate:"min=6"`
	Confirm  string `json:"confirm" validate:"eqfield=Password"`
}

// check validates form and reports its first failing field as a
// *ValidationError.
func check(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) || len(fes) == 0 {
		return err
	}
	fe := fes[0]
	return &ValidationError{Field: fe.Field(), Message: message(fe)}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case emailShapeTag:
		return "please enter a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	case "eqfield":
		return "passwords do not match"
	}
	return fe.Error()
}
