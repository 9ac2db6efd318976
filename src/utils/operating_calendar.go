package utils

import (
	"time"

	"enrollment-observer/src/logger"

	"github.com/scmhub/calendar"
)

// -----------------------------------------------------------------------------
// OperatingCalendar decides which days enrollment centres operate, so the
// scheduler does not scan days with expected-zero volume. Public holidays
// come from scmhub/calendar via a configurable MIC code (ISO 10383); when
// the MIC is unknown the calendar falls back to plain Mon-Fri.
// -----------------------------------------------------------------------------

type OperatingCalendar struct {
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

func NewOperatingCalendar(mic string, log *logger.Logger) *OperatingCalendar {
	cal := calendar.GetCalendar(mic)
	if cal == nil {
		log.Warning("No holiday calendar for MIC '%s'. Using Mon-Fri fallback.", mic)
		return &OperatingCalendar{Fallback: true, Timezone: time.UTC}
	}

	return &OperatingCalendar{Calendar: cal, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

// IsOperatingDay reports whether centres are expected to report volume on
// the given date.
func (oc *OperatingCalendar) IsOperatingDay(date time.Time) bool {
	if oc.Timezone != nil {
		date = date.In(oc.Timezone)
	}

	if oc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return oc.Calendar.IsBusinessDay(date)
}
