package shipping

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/artframerapp/artframer/internal/models"
)

var addressValidator = validator.New()

// ValidateAddress checks address completeness and returns the full
// field-level error list. It runs before any provider call so malformed
// addresses never cost a network round trip.
func ValidateAddress(address models.Address) error {
	err := addressValidator.Struct(address)
	if err == nil {
		return nil
	}

	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return err
	}

	fields := make([]models.FieldError, 0, len(invalid))
	for _, fieldErr := range invalid {
		fields = append(fields, models.FieldError{
			Field:   jsonFieldName(fieldErr.Field()),
			Message: fieldMessage(fieldErr),
		})
	}
	return &models.ValidationError{Fields: fields}
}

func jsonFieldName(structField string) string {
	if structField == "" {
		return structField
	}
	return strings.ToLower(structField[:1]) + structField[1:]
}

func fieldMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return jsonFieldName(fieldErr.Field()) + " is required"
	case "iso3166_1_alpha2":
		return "countryCode must be a two-letter ISO country code"
	default:
		return jsonFieldName(fieldErr.Field()) + " is invalid"
	}
}
