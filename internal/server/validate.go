package server

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// FieldError names an invalid request field and why.
type FieldError struct {
	Domain string `json:"domain"`
	Reason string `json:"reason"`
}

// Validator checks request bodies and reports errors in English using the
// json field names.
type Validator struct {
	core  *validator.Validate
	trans ut.Translator
}

func NewValidator() *Validator {
	locale := en.New()
	uni := ut.New(locale, locale)
	trans, _ := uni.GetTranslator("en")

	validate := validator.New()
	_ = en_translations.RegisterDefaultTranslations(validate, trans)
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{core: validate, trans: trans}
}

// Struct returns one FieldError per failed rule, or nil.
func (v *Validator) Struct(s any) []*FieldError {
	err := v.core.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []*FieldError{{Domain: "body", Reason: err.Error()}}
	}
	result := make([]*FieldError, 0, len(verrs))
	for _, item := range verrs {
		result = append(result, &FieldError{Domain: item.Field(), Reason: item.Translate(v.trans)})
	}
	return result
}
