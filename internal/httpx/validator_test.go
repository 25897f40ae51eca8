package httpx

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type testPayload struct {
	ISBN  string `json:"ISBN" validate:"required"`
	Title string `json:"title" validate:"required"`
	Color string `json:"color" validate:"omitempty,colour"`
}

func init() {
	RegisterValidation("colour", "%s must be red or blue", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		return v == "red" || v == "blue"
	})
}

func fields(details []ErrorDetail) []string {
	out := make([]string, 0, len(details))
	for _, d := range details {
		out = append(out, d.Field)
	}
	return out
}

func TestValidateStruct_Valid(t *testing.T) {
	assert.Empty(t, ValidateStruct(testPayload{ISBN: "9780520343641", Title: "Huck Finn", Color: "red"}))
}

func TestValidateStruct_RequiredUsesJSONNames(t *testing.T) {
	details := ValidateStruct(testPayload{})

	assert.ElementsMatch(t, []string{"ISBN", "title"}, fields(details))
	for _, d := range details {
		assert.Contains(t, d.Message, "is required")
	}
}

func TestValidateStruct_MinMax(t *testing.T) {
	type page struct {
		Limit int `json:"limit" validate:"gte=1,lte=100"`
	}

	details := ValidateStruct(page{Limit: 500})

	assert.Equal(t, []ErrorDetail{{Field: "limit", Message: "limit must satisfy lte=100"}}, details)
}

func TestValidateStruct_CustomTagMessage(t *testing.T) {
	details := ValidateStruct(testPayload{ISBN: "0123456789", Title: "t", Color: "green"})

	assert.Equal(t, []ErrorDetail{{Field: "color", Message: "color must be red or blue"}}, details)
}
