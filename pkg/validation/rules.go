package validation

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	"property-desk/pkg/constants"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// registerRules регистрирует теги, которые мы используем в struct tags
func registerRules(v *validator.Validate) error {
	if err := v.RegisterValidation("custom_email", isGoodEmailFormat); err != nil {
		return err
	}
	if err := v.RegisterValidation("ticket_status", isTicketStatus); err != nil {
		return err
	}
	if err := v.RegisterValidation("ticket_priority", isTicketPriority); err != nil {
		return err
	}
	return nil
}

// isGoodEmailFormat - проверка email
func isGoodEmailFormat(fl validator.FieldLevel) bool {
	return emailRegex.MatchString(fl.Field().String())
}

// isTicketStatus - значение из словаря статусов, регистр не важен
func isTicketStatus(fl validator.FieldLevel) bool {
	_, err := constants.ParseTicketStatus(fl.Field().String())
	return err == nil
}

func isTicketPriority(fl validator.FieldLevel) bool {
	_, err := constants.ParseTicketPriority(fl.Field().String())
	return err == nil
}
