package booking

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/model"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (m *Manager) normalizeDraft(d model.Draft, actor string) model.Draft {
	d.SpaceName = strings.TrimSpace(d.SpaceName)
	d.Title = strings.TrimSpace(d.Title)
	if d.Type == "" {
		d.Type = model.TypeOther
	}
	if t, err := model.ParseType(string(d.Type)); err == nil {
		d.Type = t
	}
	if d.Status == "" {
		d.Status = model.StatusPending
	}
	if s, err := model.ParseStatus(string(d.Status)); err == nil {
		d.Status = s
	}
	if d.ParentBookingID != nil && strings.TrimSpace(*d.ParentBookingID) == "" {
		d.ParentBookingID = nil
	}
	if d.CreatedBy == "" {
		d.CreatedBy = actor
	}
	return d
}

func (m *Manager) validateDraft(d model.Draft) error {
	fields := map[string]string{}
	if err := m.validate.Struct(d); err != nil {
		collect(fields, err)
	}
	if _, err := model.ParseType(string(d.Type)); err != nil {
		fields["booking_type"] = "must be one of event, rental, meeting, other"
	}
	if _, err := model.ParseStatus(string(d.Status)); err != nil {
		fields["booking_status"] = "must be one of pending, confirmed, cancelled"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return availability.Validate(d.StartAt, d.EndAt)
}

// normalizePatch lowercases enum values so they compare equal to the model constants.
func normalizePatch(p model.Patch) model.Patch {
	if p.Type != nil {
		if t, err := model.ParseType(string(*p.Type)); err == nil {
			p.Type = &t
		}
	}
	if p.Status != nil {
		if s, err := model.ParseStatus(string(*p.Status)); err == nil {
			p.Status = &s
		}
	}
	return p
}

func (m *Manager) validatePatch(p model.Patch) error {
	fields := map[string]string{}
	m.checkText(fields, "space_name", p.SpaceName, true, 200)
	m.checkText(fields, "title", p.Title, true, 300)
	m.checkText(fields, "contact_name", p.ContactName, false, 200)
	m.checkText(fields, "contact_phone", p.ContactPhone, false, 50)
	if p.ContactEmail != nil && *p.ContactEmail != "" {
		if err := m.validate.Var(*p.ContactEmail, "email"); err != nil {
			fields["contact_email"] = "must be a valid email"
		}
	}
	if p.Currency != nil && *p.Currency != "" {
		if err := m.validate.Var(*p.Currency, "len=3,alpha"); err != nil {
			fields["currency"] = "must be a 3-letter code"
		}
	}
	if p.PriceAmount != nil && *p.PriceAmount < 0 {
		fields["price_amount"] = "must be >= 0"
	}
	if p.Type != nil {
		if _, err := model.ParseType(string(*p.Type)); err != nil {
			fields["booking_type"] = "must be one of event, rental, meeting, other"
		}
	}
	if p.Status != nil {
		if _, err := model.ParseStatus(string(*p.Status)); err != nil {
			fields["booking_status"] = "must be one of pending, confirmed, cancelled"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// checkText applies the Draft limits for one patched text field.
func (m *Manager) checkText(fields map[string]string, name string, v *string, required bool, max int) {
	if v == nil {
		return
	}
	tag := "max=" + strconv.Itoa(max)
	if required {
		tag = "required," + tag
	}
	if err := m.validate.Var(strings.TrimSpace(*v), tag); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fields[name] = reason(verrs[0])
			return
		}
		fields[name] = "is invalid"
	}
}

func collect(fields map[string]string, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["_"] = err.Error()
		return
	}
	for _, fe := range verrs {
		fields[fe.Field()] = reason(fe)
	}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "gte":
		return "must be >= " + fe.Param()
	case "alpha":
		return "must contain letters only"
	case "uuid":
		return "must be a valid uuid"
	default:
		return "is invalid"
	}
}
