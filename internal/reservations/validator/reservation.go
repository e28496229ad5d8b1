package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"trimline/pkg/logger"
	"trimline/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type ReservationValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewReservationValidator(log *logger.Logger) *ReservationValidator {
	v := validator.New()

	log.Info("Reservation validator initialized successfully")

	return &ReservationValidator{
		validate: v,
		logger:   log,
	}
}

// ValidateRequest checks an inbound creation request. The start instant is
// validated separately once the date/time/timezone triple resolves.
func (v *ReservationValidator) ValidateRequest(req *model.ReservationRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *ReservationValidator) ValidateReservation(res *model.Reservation) error {
	if err := v.validate.Struct(res); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

// ValidateStartTime rejects reservations that begin in the past. Updates
// to historical reservations that do not move the slot never reach this
// check.
func (v *ReservationValidator) ValidateStartTime(start time.Time) error {
	if start.Before(time.Now()) {
		return ValidationErrors{
			ValidationError{
				Field:   "StartTime",
				Message: "start time cannot be in the past",
			},
		}
	}
	return nil
}

func (v *ReservationValidator) ValidateUpdate(update *model.ReservationUpdate) error {
	if err := v.validate.Struct(update); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *ReservationValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "datetime":
			message = fmt.Sprintf("%s must match format %s", err.Field(), err.Param())
		case "timezone":
			message = fmt.Sprintf("%s must be a valid IANA timezone name", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
