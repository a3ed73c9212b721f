package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"event-in/internal/errdef"

	"github.com/go-playground/validator/v10"
)

var (
	ErrMissingField  = errors.New("required field missing")
	ErrInvalidFormat = errors.New("invalid date or time format")
)

// Flag is a boolean that also accepts the 0/1 and quoted forms older clients send.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(strings.Trim(string(b), `"`)))
	switch s {
	case "true", "1":
		*f = true
	case "false", "0", "", "null":
		*f = false
	default:
		return fmt.Errorf("berulang: cannot use %s as a boolean", string(b))
	}
	return nil
}

// EventInput is the request body accepted by create and update.
type EventInput struct {
	Name        string  `json:"nama_event" validate:"required"`
	Description string  `json:"deskripsi" validate:"required"`
	Date        string  `json:"tanggal" validate:"required,dateonly"`
	StartTime   string  `json:"waktu_mulai" validate:"required,clock"`
	EndTime     string  `json:"waktu_selesai" validate:"required,clock"`
	MeetLink    *string `json:"link_meet"`
	Recurring   Flag    `json:"berulang"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	// Registration only fails on an empty tag or a nil func.
	_ = v.RegisterValidation("dateonly", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(DateLayout, fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := ParseClock(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks the required fields first; a format problem is only
// reported once every required field is present.
func (in EventInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errdef.NewBadRequest("%w: %v", ErrMissingField, err)
	}
	var missing, malformed []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		} else {
			malformed = append(malformed, fe.Field())
		}
	}
	if len(missing) > 0 {
		return errdef.NewBadRequest("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	return errdef.NewBadRequest("%w: %s", ErrInvalidFormat, strings.Join(malformed, ", "))
}

// Apply replaces every mutable field of ev with the input's values.
func (in EventInput) Apply(ev *Event) {
	ev.Name = in.Name
	ev.Description = in.Description
	ev.Date = in.Date
	ev.StartTime = in.StartTime
	ev.EndTime = in.EndTime
	ev.MeetLink = nil
	if in.MeetLink != nil && strings.TrimSpace(*in.MeetLink) != "" {
		link := strings.TrimSpace(*in.MeetLink)
		ev.MeetLink = &link
	}
	ev.Recurring = bool(in.Recurring)
}
