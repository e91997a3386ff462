package registration

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
)

// emailPattern matches the stored-record rule: word characters with optional
// dots/hyphens, an @, and a 2-3 character TLD.
var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// shapeInput is what the shape rules see. Passwords are scored separately.
type shapeInput struct {
	Username string `field:"username" validate:"required,min=3"`
	Email    string `field:"email" validate:"required,email_shape"`
}

var fieldLabels = map[string]string{
	"username": "Username",
	"email":    "Email",
}

// ShapeValidator checks presence and format of username and email, producing
// one user-facing message per field.
type ShapeValidator struct {
	v     *validator.Validate
	trans ut.Translator
}

func NewShapeValidator() (*ShapeValidator, error) {
	locale := en.New()
	uni := ut.New(locale, locale)
	trans, found := uni.GetTranslator("en")
	if !found {
		return nil, errors.New("shape validator: en translator not found")
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("field")
	})

	if err := v.RegisterValidation("email_shape", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("shape validator: register email_shape: %w", err)
	}

	translations := []struct {
		tag  string
		text string
	}{
		{"required", "{0} is required."},
		{"min", "{0} must be at least {1} characters."},
		{"email_shape", MsgEmailInvalid},
	}
	for _, tr := range translations {
		tr := tr
		err := v.RegisterTranslation(tr.tag, trans,
			func(t ut.Translator) error {
				return t.Add(tr.tag, tr.text, true)
			},
			func(t ut.Translator, fe validator.FieldError) string {
				msg, err := t.T(tr.tag, label(fe.Field()), fe.Param())
				if err != nil {
					return fe.Error()
				}
				return msg
			},
		)
		if err != nil {
			return nil, fmt.Errorf("shape validator: register %s translation: %w", tr.tag, err)
		}
	}

	return &ShapeValidator{v: v, trans: trans}, nil
}

func label(field string) string {
	if l, ok := fieldLabels[field]; ok {
		return l
	}
	return field
}

// Check returns the shape problems of req. Required failures take precedence
// over format failures because the validator stops at the first failing tag.
func (s *ShapeValidator) Check(req Request) domain.FieldErrors {
	in := shapeInput{Username: req.Username, Email: req.Email}

	b := domain.NewFieldErrorsBuilder()
	err := s.v.Struct(in)
	if err == nil {
		return b.Build()
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return b.Add(domain.FieldGeneral, err.Error()).Build()
	}
	for _, fe := range verrs {
		b.Add(domain.Field(fe.Field()), fe.Translate(s.trans))
	}
	return b.Build()
}
