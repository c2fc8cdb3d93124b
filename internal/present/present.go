// Package present formats records for display in the user's language.
package present

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/and161185/eventflow/internal/model"
)

// NoDate is shown for events without a date.
const NoDate = "Data não disponível"

var weekdays = [...]string{"Domingo", "Segunda", "Terça", "Quarta", "Quinta", "Sexta", "Sábado"}

var printer = message.NewPrinter(language.BrazilianPortuguese)

// Date renders dd/mm/yyyy. Backend dates are calendar days stored at UTC
// midnight, so the day is taken in the time's own zone.
func Date(t time.Time) string {
	if t.IsZero() {
		return NoDate
	}
	return t.Format("02/01/2006")
}

// Weekday returns the Portuguese day name, empty for a zero time.
func Weekday(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return weekdays[t.Weekday()]
}

// Price renders a price in reais, e.g. "R$ 1.234,50".
func Price(v float64) string {
	return printer.Sprintf("R$ %.2f", v)
}

// TimeRange renders "09:00 às 18:30"; a missing end shows only the start.
func TimeRange(start, end string) string {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	switch {
	case start == "" && end == "":
		return ""
	case end == "":
		return start
	case start == "":
		return "até " + end
	}
	return start + " às " + end
}

// When renders "Sexta, 07/03/2025" as the detail screen does.
func When(t time.Time) string {
	if t.IsZero() {
		return NoDate
	}
	return Weekday(t) + ", " + Date(t)
}

// Place renders "name - address" for a resolved location.
func Place(l *model.Location) string {
	if l == nil {
		return "Local não informado"
	}
	if l.Address == "" {
		return l.Name
	}
	return l.Name + " - " + l.Address
}
