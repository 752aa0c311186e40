package service

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mmaxwell0637/safetrack-fe/internal/domain"
	apperrors "github.com/mmaxwell0637/safetrack-fe/pkg/util/errorutil"
)

// fieldMessages overrides the generic message for a field/tag pair.
var fieldMessages = map[string]string{
	"subject.min":              "Subject must be at least 3 characters",
	"description.min":          "Description must be at least 5 characters",
	"type.required":            "Missing category/type",
	"type.ticket_type":         fmt.Sprintf("type must be one of %v", domain.TicketTypes),
	"priority.ticket_priority": fmt.Sprintf("priority must be one of %v", domain.TicketPriorities),
	"status.required":          statusMessage(),
	"status.ticket_status":     statusMessage(),
	"body.min":                 "Comment cannot be empty",
}

func statusMessage() string {
	names := make([]string, 0, len(domain.TicketStatuses))
	for _, s := range domain.TicketStatuses {
		names = append(names, string(s))
	}
	return "status must be one of [" + strings.Join(names, ", ") + "]"
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("ticket_type", func(fl validator.FieldLevel) bool {
		return domain.TicketType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("ticket_priority", func(fl validator.FieldLevel) bool {
		return domain.TicketPriority(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("ticket_status", func(fl validator.FieldLevel) bool {
		return domain.TicketStatus(fl.Field().String()).Valid()
	})
	return v
}

// validateStruct runs struct validation and converts failures into a
// VALIDATION_FAILED error with messages grouped per field.
func validateStruct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewInternalError(err)
	}
	fields := make(map[string][]string, len(validationErrors))
	for _, fe := range validationErrors {
		fields[fe.Field()] = append(fields[fe.Field()], fieldErrorMessage(fe))
	}
	return apperrors.NewFieldValidationError(fields)
}

func fieldErrorMessage(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed validation for '%s'", fe.Field(), fe.Tag())
	}
}
