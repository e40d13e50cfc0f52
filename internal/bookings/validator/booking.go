package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"venuebook/pkg/logger"
	"venuebook/pkg/model"

	"github.com/go-playground/validator/v10"
)

// MaxStatsRangeDays bounds aggregation windows.
const MaxStatsRangeDays = 366

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

// Details flattens the errors into a field -> message map for API responses.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	custom := map[string]validator.Func{
		"hhmm":           validateTimeOfDay,
		"calendar_date":  validateCalendarDate,
		"booking_status": validateStatus,
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatal("Failed to register validator",
				"tag", tag,
				"error", err,
			)
		}
	}

	log.Debug("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func validateTimeOfDay(fl validator.FieldLevel) bool {
	_, err := model.ParseTimeOfDay(fl.Field().String())
	return err == nil
}

func validateCalendarDate(fl validator.FieldLevel) bool {
	_, err := model.ParseDate(fl.Field().String())
	return err == nil
}

func validateStatus(fl validator.FieldLevel) bool {
	return model.Status(fl.Field().String()).IsValid()
}

// ValidateCreate checks a create request, including that it starts before it ends.
func (v *BookingValidator) ValidateCreate(req *model.BookingRequest) error {
	if err := v.structErrors(req); err != nil {
		return err
	}

	start := model.MustTimeOfDay(req.StartTime)
	end := model.MustTimeOfDay(req.EndTime)
	return v.ValidateTimeRange(start, end)
}

// ValidateUpdate checks the fields present in a patch. The merged result is
// checked with ValidateTimeRange once the current booking is known.
func (v *BookingValidator) ValidateUpdate(update *model.BookingUpdate) error {
	if update.IsEmpty() {
		return ValidationErrors{
			ValidationError{
				Field:   "body",
				Message: "at least one field must be provided",
			},
		}
	}

	if err := v.structErrors(update); err != nil {
		return err
	}

	if update.StartTime != nil && update.EndTime != nil {
		return v.ValidateTimeRange(model.MustTimeOfDay(*update.StartTime), model.MustTimeOfDay(*update.EndTime))
	}
	return nil
}

func (v *BookingValidator) ValidateTimeRange(start, end model.TimeOfDay) error {
	if !start.Valid() || !end.Valid() {
		return ValidationErrors{
			ValidationError{
				Field:   "start_time",
				Message: "times must be between 00:00 and 23:59",
			},
		}
	}
	if start >= end {
		return ValidationErrors{
			ValidationError{
				Field:   "end_time",
				Message: "end_time must be after start_time",
			},
		}
	}
	return nil
}

// ValidateDateRange checks an aggregation window: both ends set, from <= to and
// no wider than MaxStatsRangeDays.
func (v *BookingValidator) ValidateDateRange(from, to model.Date) error {
	var errs ValidationErrors
	if from.IsZero() {
		errs = append(errs, ValidationError{Field: "from", Message: "from is required"})
	}
	if to.IsZero() {
		errs = append(errs, ValidationError{Field: "to", Message: "to is required"})
	}
	if len(errs) > 0 {
		return errs
	}

	if to.Before(from) {
		return ValidationErrors{
			ValidationError{
				Field:   "to",
				Message: "to must not be before from",
			},
		}
	}
	if from.DaysUntil(to) >= MaxStatsRangeDays {
		return ValidationErrors{
			ValidationError{
				Field:   "to",
				Message: fmt.Sprintf("range must not exceed %d days", MaxStatsRangeDays),
			},
		}
	}
	return nil
}

func (v *BookingValidator) structErrors(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s characters", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "hhmm":
			message = fmt.Sprintf("%s must be a time in HH:mm format", err.Field())
		case "calendar_date":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		case "booking_status":
			message = fmt.Sprintf("%s must be one of: pending, approved, rejected", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
