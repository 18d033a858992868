package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/accessdesk/access-api/internal/models"
)

var (
	validate    = validator.New()
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	tagSplitter = regexp.MustCompile(`[,\n]`)
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	FieldID string `json:"field_id"`
	Message string `json:"message"`
}

// ParseTags splits comma/newline-delimited input into trimmed, non-empty tags.
func ParseTags(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	parts := tagSplitter.Split(input, -1)
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// CoerceValue converts raw form input into a typed FieldValue for the field,
// enforcing per-type format rules at write time rather than at submission.
func CoerceValue(field models.AccessField, raw string, list []string) (models.FieldValue, error) {
	value := models.FieldValue{Kind: field.Type}
	raw = strings.TrimSpace(raw)

	switch field.Type {
	case models.FieldTags:
		if len(list) > 0 {
			value.Tags = list
		} else {
			value.Tags = ParseTags(raw)
		}
	case models.FieldNumber:
		if raw == "" {
			return value, nil
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return value, fmt.Errorf("%s: not a number", field.ID)
		}
		value.Number = n
	default:
		value.Text = raw
	}
	return value, nil
}

// ValidateFields checks every catalog field against the value map, in catalog
// order, so the first returned error names the first invalid field. File
// fields are exempt; evidence uploads are validated by the attachment flow.
func ValidateFields(fields []models.AccessField, values models.FieldValueMap) []FieldError {
	var errs []FieldError
	for _, field := range fields {
		if field.Type == models.FieldFile {
			continue
		}
		value, present := values[field.ID]
		if !present || value.IsZero() {
			if field.Required {
				errs = append(errs, FieldError{FieldID: field.ID, Message: fmt.Sprintf("%s is required", field.Label)})
			}
			continue
		}
		if msg := validateValue(field, value); msg != "" {
			errs = append(errs, FieldError{FieldID: field.ID, Message: msg})
		}
	}
	return errs
}

func validateValue(field models.AccessField, value models.FieldValue) string {
	switch field.Type {
	case models.FieldEmail:
		if err := validate.Var(value.Text, "email"); err != nil {
			return "Invalid email address"
		}
	case models.FieldNumber:
		if value.Number <= 0 {
			return "Must be a positive number"
		}
	case models.FieldDate:
		if !datePattern.MatchString(value.Text) {
			return "Must be in YYYY-MM-DD format"
		}
	}
	return ""
}
