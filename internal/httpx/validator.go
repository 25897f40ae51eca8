package httpx

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate   = newValidator()
	tagMessage = map[string]string{}
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// RegisterValidation adds a custom tag. message is a format string taking
// the field name and is used when the tag fails.
func RegisterValidation(tag, message string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
	tagMessage[tag] = message
}

// ValidateStruct returns one detail per failing field, named by its json tag.
func ValidateStruct(s any) []ErrorDetail {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []ErrorDetail{{Field: "body", Message: err.Error()}}
	}

	details := make([]ErrorDetail, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		param := fe.Param()

		var message string
		switch fe.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "gte", "lte", "min", "max":
			message = fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), param)
		default:
			if f, ok := tagMessage[fe.Tag()]; ok {
				message = fmt.Sprintf(f, field)
			} else {
				message = fmt.Sprintf("%s is invalid", field)
			}
		}

		details = append(details, ErrorDetail{
			Field:   field,
			Message: message,
		})
	}

	return details
}
