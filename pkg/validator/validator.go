package validator

import (
	"healthsync-api/internal/domain/entity"
	"healthsync-api/pkg/timeslot"

	"github.com/go-playground/validator/v10"
)

type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	v := validator.New()
	// Registration only fails on programmer error (empty tag or nil func).
	_ = v.RegisterValidation("hhmm", validateClock)
	_ = v.RegisterValidation("weekday", validateWeekday)
	_ = v.RegisterValidation("date", validateDate)

	return &CustomValidator{
		validator: v,
	}
}

func validateClock(fl validator.FieldLevel) bool {
	_, err := timeslot.ParseClock(fl.Field().String())
	return err == nil
}

func validateWeekday(fl validator.FieldLevel) bool {
	return entity.Weekday(fl.Field().String()).Valid()
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := entity.ParseDate(fl.Field().String())
	return err == nil
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func (cv *CustomValidator) FormatValidationErrors(err error) map[string]string {
	errors := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			field := e.Field()
			switch e.Tag() {
			case "required":
				errors[field] = field + " is required"
			case "email":
				errors[field] = field + " must be a valid email address"
			case "min":
				errors[field] = field + " must be at least " + e.Param() + " characters"
			case "max":
				errors[field] = field + " must be at most " + e.Param() + " characters"
			case "gte":
				errors[field] = field + " must be greater than or equal to " + e.Param()
			case "lte":
				errors[field] = field + " must be less than or equal to " + e.Param()
			case "oneof":
				errors[field] = field + " must be one of: " + e.Param()
			case "uuid":
				errors[field] = field + " must be a valid UUID"
			case "hhmm":
				errors[field] = field + " must be a time in HH:MM format"
			case "weekday":
				errors[field] = field + " must be a weekday name such as Monday"
			case "date":
				errors[field] = field + " must be a date in YYYY-MM-DD format"
			default:
				errors[field] = field + " is invalid"
			}
		}
	}

	return errors
}
