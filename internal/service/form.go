package service

import (
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/and161185/eventflow/internal/errs"
	"github.com/and161185/eventflow/internal/model"
)

// Event record field names.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldDate        = "date"
	FieldStartAt     = "start_at"
	FieldEndAt       = "end_at"
	FieldPrice       = "price"
	FieldCategory    = "category_id"
	FieldLocation    = "location_id"
	FieldThumbnail   = "thumbnail"
)

const (
	backendDateLayout = "2006-01-02 00:00:00"
	clockLayout       = "15:04"
	defaultImageExt   = "jpg"
)

// Image is a picked image file.
type Image struct {
	Filename string // original name; only the extension is used
	Data     []byte
}

// EventForm holds the create-event screen fields.
type EventForm struct {
	Name        string
	Description string
	CategoryID  string
	LocationID  string
	Date        time.Time
	StartAt     time.Time
	EndAt       time.Time
	Price       string // as typed, "." or "," decimal separator
	Image       *Image
}

// NewEventForm returns an empty form whose date and times default to now.
func NewEventForm(now time.Time) EventForm {
	return EventForm{Date: now, StartAt: now, EndAt: now}
}

// Reset clears the form after a successful submission.
func (f *EventForm) Reset(now time.Time) {
	*f = NewEventForm(now)
}

// ValidForm is a form that passed Validate. Only Validate constructs it.
type ValidForm struct {
	form  EventForm
	price float64
}

// Form returns the validated fields.
func (v ValidForm) Form() EventForm { return v.form }

// Price returns the parsed price.
func (v ValidForm) Price() float64 { return v.price }

// Validate checks the form in field order and reports the first problem as a
// *errs.ValidationError naming the field. It does not modify the form.
func Validate(f EventForm) (ValidForm, error) {
	switch {
	case strings.TrimSpace(f.Name) == "":
		return ValidForm{}, errs.Validation("nome", "Preencha o nome do evento.")
	case strings.TrimSpace(f.Description) == "":
		return ValidForm{}, errs.Validation("descrição", "Preencha a descrição do evento.")
	case f.CategoryID == "":
		return ValidForm{}, errs.Validation("categoria", "Selecione uma categoria.")
	case f.LocationID == "":
		return ValidForm{}, errs.Validation("local", "Selecione um local.")
	case strings.TrimSpace(f.Price) == "":
		return ValidForm{}, errs.Validation("preço", "Preencha o preço do evento.")
	}
	price, err := ParsePrice(f.Price)
	if err != nil {
		return ValidForm{}, errs.Validation("preço", "Informe um preço válido.")
	}
	return ValidForm{form: f, price: price}, nil
}

var rePrice = regexp.MustCompile(`^\d+([.,]\d+)?$`)

// ParsePrice parses a plain non-negative decimal with either "." or "," as
// separator. Signs, exponents and NaN or Inf spellings are rejected.
func ParsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if !rePrice.MatchString(s) {
		return 0, fmt.Errorf("parse price %q: not a decimal", s)
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", s, err)
	}
	return v, nil
}

// BuildPayload maps a validated form to the multipart part list. Zero date
// or times fall back to now.
func BuildPayload(v ValidForm, now time.Time) model.EventPayload {
	f := v.form
	date, start, end := orNow(f.Date, now), orNow(f.StartAt, now), orNow(f.EndAt, now)

	p := model.EventPayload{
		Fields: []model.Field{
			{Name: FieldName, Value: strings.TrimSpace(f.Name)},
			{Name: FieldDescription, Value: strings.TrimSpace(f.Description)},
			{Name: FieldDate, Value: date.Format(backendDateLayout)},
			{Name: FieldStartAt, Value: start.Format(clockLayout)},
			{Name: FieldEndAt, Value: end.Format(clockLayout)},
			{Name: FieldPrice, Value: strconv.FormatFloat(v.price, 'f', -1, 64)},
			{Name: FieldCategory, Value: f.CategoryID},
			{Name: FieldLocation, Value: f.LocationID},
		},
	}
	if f.Image != nil && len(f.Image.Data) > 0 {
		ext := imageExt(f.Image.Filename)
		p.File = &model.FilePart{
			Field:       FieldThumbnail,
			Filename:    fmt.Sprintf("event_%d.%s", now.UnixMilli(), ext),
			ContentType: imageContentType(ext),
			Data:        f.Image.Data,
		}
	}
	return p
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}

func imageExt(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return defaultImageExt
	}
	return ext
}

func imageContentType(ext string) string {
	if ct := mime.TypeByExtension("." + ext); ct != "" {
		return ct
	}
	return "image/" + ext
}
