package checkout

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Form is the shipping and payment detail the shopper submits.
type Form struct {
	FullName      string `json:"full_name" validate:"required,min=2"`
	Email         string `json:"email" validate:"required,email"`
	Contact       string `json:"contact" validate:"required,nepaliphone"`
	Address       string `json:"address" validate:"required,min=5"`
	City          string `json:"city" validate:"required"`
	PostalCode    string `json:"postal_code" validate:"required"`
	Country       string `json:"country" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=esewa cod"`
}

var nepaliPhonePattern = regexp.MustCompile(`^98\d{8}$`)

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("nepaliphone", func(fl validator.FieldLevel) bool {
		return nepaliPhonePattern.MatchString(fl.Field().String())
	})
	return v
}

// fieldLabels maps struct fields to the json names the shopper sees.
var fieldLabels = map[string]string{
	"FullName":      "full_name",
	"Email":         "email",
	"Contact":       "contact",
	"Address":       "address",
	"City":          "city",
	"PostalCode":    "postal_code",
	"Country":       "country",
	"PaymentMethod": "payment_method",
}

// ValidateForm checks every field and returns one message per offending
// field. A nil map means the form is acceptable.
func ValidateForm(form Form) map[string]string {
	err := formValidator.Struct(form)
	if err == nil {
		return nil
	}

	violations, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"form": "form could not be validated"}
	}

	messages := make(map[string]string, len(violations))
	for _, violation := range violations {
		label := fieldLabels[violation.StructField()]
		if label == "" {
			label = violation.StructField()
		}
		if _, seen := messages[label]; seen {
			continue
		}
		messages[label] = messageFor(label, violation)
	}
	return messages
}

func messageFor(label string, violation validator.FieldError) string {
	switch violation.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, violation.Param())
	case "email":
		return "email must be a valid email address"
	case "nepaliphone":
		return "contact must be a 10-digit number starting with 98"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, violation.Param())
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}
