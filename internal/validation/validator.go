// Package validation checks the shape of submitted forms and reports the
// first violated constraint as a user-facing message.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/go-playground/validator/v10"
)

// SignupInput is the signup form. Lengths are counted in UTF-16 code
// units, so a 20 unit password never exceeds bcrypt's 72 byte input limit.
type SignupInput struct {
	Username string `form:"username" json:"username" validate:"required,alphanum,utf16max=20"`
	Email    string `form:"email" json:"email" validate:"required,email"`
	Password string `form:"password" json:"password" validate:"required,utf16max=20"`
}

// LoginInput is the login form. Only the email shape is checked; the
// password is compared as submitted.
type LoginInput struct {
	Email    string `form:"email" json:"email" validate:"required,email"`
	Password string `form:"password" json:"password"`
}

// Error is the first constraint a payload violated.
type Error struct {
	Field   string
	Tag     string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Validator implements echo.Validator.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator that names fields by their form tag.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	if err := v.RegisterValidation("utf16max", utf16Max); err != nil {
		panic(err)
	}
	return &Validator{validate: v}
}

// Validate checks i and returns nil or an *Error for the first failure.
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate: %w", err)
	}
	first := verrs[0]
	return &Error{
		Field:   first.Field(),
		Tag:     first.Tag(),
		Message: message(first),
	}
}

// ValidateSignup checks a signup form.
func (v *Validator) ValidateSignup(in SignupInput) error {
	return v.Validate(&in)
}

// ValidateLogin checks a login form.
func (v *Validator) ValidateLogin(in LoginInput) error {
	return v.Validate(&in)
}

func message(fe validator.FieldError) string {
	field := fmt.Sprintf("%q", fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is not allowed to be empty"
	case "alphanum":
		return field + " must only contain alpha-numeric characters"
	case "max", "utf16max":
		return fmt.Sprintf("%s length must be less than or equal to %s characters long", field, fe.Param())
	case "email":
		return field + " must be a valid email"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// utf16Max bounds a string by its UTF-16 length. Characters outside the
// Basic Multilingual Plane count twice.
func utf16Max(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		panic(fmt.Sprintf("utf16max: bad limit %q", fl.Param()))
	}
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	return len(utf16.Encode([]rune(field.String()))) <= limit
}
