package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"photobooth/internal/domain"
	"photobooth/internal/media"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("effect_group", validateEffectGroup)
	_ = v.RegisterValidation("image_format", validateImageFormat)
	return v
}

func validateEffectGroup(fl validator.FieldLevel) bool {
	_, ok := domain.ParseEffectGroup(fl.Field().String())
	return ok
}

// image_format accepts a file name, extension or MIME type on the capture allow-list.
func validateImageFormat(fl validator.FieldLevel) bool {
	_, err := media.ParseFormat(fl.Field().String())
	return err == nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid payload"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
		if fe.Param() != "" {
			msg += " (" + fe.Param() + ")"
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, "; ")
}

