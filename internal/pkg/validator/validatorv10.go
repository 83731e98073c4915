package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shandysiswandi/irnotify/internal/pkg/strcase"
)

// ErrTranslatorNotFound indicates the requested translator is unavailable.
var ErrTranslatorNotFound = errors.New("translator not found")

// deliveryChannels is the accepted spelling of every delivery channel.
var deliveryChannels = []string{"email", "sms", "desktop", "mobile"}

// V10Validator implements Validator using go-playground/validator v10.
type V10Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// V10ValidationError maps snake_case field names to translated messages.
type V10ValidationError map[string]string

// Error implements the error interface.
func (vs V10ValidationError) Error() string {
	if len(vs) == 0 {
		return "validation error"
	}

	b, err := json.Marshal(vs)
	if err != nil {
		return fmt.Sprintf("validation error (failed to marshal: %v)", err)
	}
	return string(b)
}

// Values returns the field error map.
func (vs V10ValidationError) Values() map[string]string {
	return vs
}

// NewV10Validator constructs a V10Validator with English translations and the
// custom "channel" and "notblank" rules.
func NewV10Validator() (*V10Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	enLang := en.New()
	enTrans, ok := ut.New(enLang, enLang).GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}

	if err := enTranslations.RegisterDefaultTranslations(validate, enTrans); err != nil {
		return nil, err
	}

	if err := registerCustomRules(validate, enTrans); err != nil {
		return nil, err
	}

	return &V10Validator{validate: validate, translator: enTrans}, nil
}

// Validate validates a struct and returns a V10ValidationError on failure.
func (v *V10Validator) Validate(data any) error {
	err := v.validate.Struct(data)
	if err == nil {
		return nil
	}

	var validateErrs validator.ValidationErrors
	if !errors.As(err, &validateErrs) {
		return err
	}

	out := make(V10ValidationError, len(validateErrs))
	for _, fe := range validateErrs {
		out[strcase.ToLowerSnake(fe.Field())] = fe.Translate(v.translator)
	}
	return out
}

type customRule struct {
	tag     string
	message string
	fn      validator.Func
}

func registerCustomRules(validate *validator.Validate, trans ut.Translator) error {
	rules := []customRule{
		{
			tag:     "channel",
			message: "{0} must be one of " + strings.Join(deliveryChannels, ", "),
			fn: func(fl validator.FieldLevel) bool {
				return slices.Contains(deliveryChannels, fl.Field().String())
			},
		},
		{
			tag:     "notblank",
			message: "{0} must not be blank",
			fn: func(fl validator.FieldLevel) bool {
				return strings.TrimSpace(fl.Field().String()) != ""
			},
		},
	}

	for _, rule := range rules {
		if err := validate.RegisterValidation(rule.tag, rule.fn); err != nil {
			return err
		}

		msg := rule.message
		err := validate.RegisterTranslation(rule.tag, trans,
			func(t ut.Translator) error {
				return t.Add(rule.tag, msg, false)
			},
			func(t ut.Translator, fe validator.FieldError) string {
				out, err := t.T(fe.Tag(), fe.Field())
				if err != nil {
					slog.Warn("failed to translate validation error", "tag", fe.Tag(), "error", err)
					return fe.Error()
				}
				return out
			},
		)
		if err != nil {
			return err
		}
	}

	return nil
}
