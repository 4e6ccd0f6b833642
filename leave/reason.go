/*
reason.go - Structured leave reason

PURPOSE:
  A leave request carries exactly one reason category plus the fields that
  category requires. The value is kept structured for the whole life of the
  record; the human-readable text is only rendered at the boundary (the
  persisted reason_text column, reports, notifications).

CATEGORIES:
  ┌────────────────────┬──────────────────────────────────┬─────────────────┐
  │ Category           │ Required fields                  │ Balance effect  │
  ├────────────────────┼──────────────────────────────────┼─────────────────┤
  │ general_commander  │ none                             │ consumes 1      │
  │ company_commander  │ justification (>= 5 chars)       │ none            │
  │ compensation       │ service date, start/end HH:MM,   │ none            │
  │                    │ optional report number           │                 │
  │ weekly_rest        │ full or half day (+ AM/PM)       │ none            │
  │ other              │ justification (>= 10 chars)      │ none            │
  └────────────────────┴──────────────────────────────────┴─────────────────┘

  Only general_commander ("Folga Cmt Geral") draws on the credit ledger.
  This is the unit's policy and must not be generalized.

TEXT FORMAT (stable, parsed back by ParseReason):
  Folga Cmt Geral
  Folga Cmt Cia - <justification>
  Compensação - Serviço em 20/04/2024 das 08:00 às 20:00[ - BO <number>]
  Folga Semanal - Integral
  Folga Semanal - Meio Expediente (Manhã|Tarde)
  Outros - <justification>
*/
package leave

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// CATEGORY
// =============================================================================

type Category string

const (
	CategoryGeneralCommander Category = "general_commander"
	CategoryCompanyCommander Category = "company_commander"
	CategoryCompensation     Category = "compensation"
	CategoryWeeklyRest       Category = "weekly_rest"
	CategoryOther            Category = "other"
)

var Categories = []Category{
	CategoryGeneralCommander,
	CategoryCompanyCommander,
	CategoryCompensation,
	CategoryWeeklyRest,
	CategoryOther,
}

const (
	MinCompanyJustification = 5
	MinOtherJustification   = 10
)

// Shift is the half of the day taken by a half-day weekly rest.
type Shift string

const (
	ShiftMorning   Shift = "AM"
	ShiftAfternoon Shift = "PM"
)

// =============================================================================
// REASON - Tagged union: Category selects which payload is meaningful
// =============================================================================

type Reason struct {
	Category      Category      `json:"category"`
	Justification string        `json:"justification,omitempty"`
	Compensation  *Compensation `json:"compensation,omitempty"`
	WeeklyRest    *WeeklyRest   `json:"weekly_rest,omitempty"`
}

// Compensation identifies the extra service being compensated.
type Compensation struct {
	ServiceDate  generic.Date `json:"service_date"`
	StartTime    string       `json:"start_time"`
	EndTime      string       `json:"end_time"`
	ReportNumber string       `json:"report_number,omitempty"`
}

type WeeklyRest struct {
	HalfDay bool  `json:"half_day"`
	Shift   Shift `json:"shift,omitempty"`
}

// Constructors
func GeneralCommander() Reason { return Reason{Category: CategoryGeneralCommander} }

func CompanyCommander(justification string) Reason {
	return Reason{Category: CategoryCompanyCommander, Justification: justification}
}

func Other(justification string) Reason {
	return Reason{Category: CategoryOther, Justification: justification}
}

func CompensationFor(serviceDate generic.Date, start, end, report string) Reason {
	return Reason{Category: CategoryCompensation, Compensation: &Compensation{
		ServiceDate: serviceDate, StartTime: start, EndTime: end, ReportNumber: report,
	}}
}

func FullWeeklyRest() Reason {
	return Reason{Category: CategoryWeeklyRest, WeeklyRest: &WeeklyRest{}}
}

func HalfWeeklyRest(shift Shift) Reason {
	return Reason{Category: CategoryWeeklyRest, WeeklyRest: &WeeklyRest{HalfDay: true, Shift: shift}}
}

// ConsumesCredit reports whether a validated, active leave with this reason
// draws one unit from the credit ledger.
func (r Reason) ConsumesCredit() bool {
	return r.Category == CategoryGeneralCommander
}

// Normalize validates the reason and returns a copy holding only the payload
// of its category, with text fields trimmed.
func (r Reason) Normalize() (Reason, error) {
	switch r.Category {
	case "":
		return Reason{}, generic.Invalid("reason.category", "a reason category must be selected")

	case CategoryGeneralCommander:
		return Reason{Category: r.Category}, nil

	case CategoryCompanyCommander, CategoryOther:
		minLen := MinCompanyJustification
		if r.Category == CategoryOther {
			minLen = MinOtherJustification
		}
		j := strings.TrimSpace(r.Justification)
		if utf8.RuneCountInString(j) < minLen {
			return Reason{}, generic.Invalid("reason.justification", "must have at least %d characters", minLen)
		}
		return Reason{Category: r.Category, Justification: j}, nil

	case CategoryCompensation:
		c := r.Compensation
		if c == nil || c.ServiceDate.IsZero() {
			return Reason{}, generic.Invalid("reason.compensation.service_date", "is required")
		}
		start, err := generic.ParseClockTime(strings.TrimSpace(c.StartTime))
		if err != nil {
			return Reason{}, generic.Invalid("reason.compensation.start_time", "%v", err)
		}
		end, err := generic.ParseClockTime(strings.TrimSpace(c.EndTime))
		if err != nil {
			return Reason{}, generic.Invalid("reason.compensation.end_time", "%v", err)
		}
		// Night services cross midnight, so only an empty span is rejected.
		if start == end {
			return Reason{}, generic.Invalid("reason.compensation.end_time", "must differ from start_time")
		}
		return Reason{Category: r.Category, Compensation: &Compensation{
			ServiceDate:  c.ServiceDate,
			StartTime:    strings.TrimSpace(c.StartTime),
			EndTime:      strings.TrimSpace(c.EndTime),
			ReportNumber: strings.TrimSpace(c.ReportNumber),
		}}, nil

	case CategoryWeeklyRest:
		w := r.WeeklyRest
		if w == nil {
			return Reason{}, generic.Invalid("reason.weekly_rest", "full or half day must be selected")
		}
		if !w.HalfDay {
			return Reason{Category: r.Category, WeeklyRest: &WeeklyRest{}}, nil
		}
		if w.Shift != ShiftMorning && w.Shift != ShiftAfternoon {
			return Reason{}, generic.Invalid("reason.weekly_rest.shift", "half day requires AM or PM")
		}
		return Reason{Category: r.Category, WeeklyRest: &WeeklyRest{HalfDay: true, Shift: w.Shift}}, nil

	default:
		return Reason{}, generic.Invalid("reason.category", "unknown category %q", r.Category)
	}
}

// =============================================================================
// TEXT COMPOSITION
// =============================================================================

const (
	textGeneralCommander = "Folga Cmt Geral"
	prefixCompany        = "Folga Cmt Cia - "
	prefixCompensation   = "Compensação - Serviço em "
	textWeeklyFull       = "Folga Semanal - Integral"
	textWeeklyMorning    = "Folga Semanal - Meio Expediente (Manhã)"
	textWeeklyAfternoon  = "Folga Semanal - Meio Expediente (Tarde)"
	prefixOther          = "Outros - "

	brDateLayout = "02/01/2006"
)

// Text renders the reason in its persisted form. The reason should be
// normalized first; Text does not validate.
func (r Reason) Text() string {
	switch r.Category {
	case CategoryGeneralCommander:
		return textGeneralCommander
	case CategoryCompanyCommander:
		return prefixCompany + r.Justification
	case CategoryOther:
		return prefixOther + r.Justification
	case CategoryCompensation:
		if r.Compensation == nil {
			return ""
		}
		c := r.Compensation
		s := fmt.Sprintf("%s%s das %s às %s", prefixCompensation,
			c.ServiceDate.Time.Format(brDateLayout), c.StartTime, c.EndTime)
		if c.ReportNumber != "" {
			s += " - BO " + c.ReportNumber
		}
		return s
	case CategoryWeeklyRest:
		if r.WeeklyRest == nil || !r.WeeklyRest.HalfDay {
			return textWeeklyFull
		}
		if r.WeeklyRest.Shift == ShiftMorning {
			return textWeeklyMorning
		}
		return textWeeklyAfternoon
	}
	return ""
}

var compensationText = regexp.MustCompile(
	`^Compensação - Serviço em (\d{2}/\d{2}/\d{4}) das (\d{2}:\d{2}) às (\d{2}:\d{2})(?: - BO (.+))?$`)

// ParseReason re-derives the structured reason from its composed text.
// ParseReason(r.Text()) returns r for every normalized r.
func ParseReason(text string) (Reason, error) {
	text = strings.TrimSpace(text)

	var r Reason
	switch {
	case text == textGeneralCommander:
		r = GeneralCommander()
	case text == textWeeklyFull:
		r = FullWeeklyRest()
	case text == textWeeklyMorning:
		r = HalfWeeklyRest(ShiftMorning)
	case text == textWeeklyAfternoon:
		r = HalfWeeklyRest(ShiftAfternoon)
	case strings.HasPrefix(text, prefixCompany):
		r = CompanyCommander(strings.TrimPrefix(text, prefixCompany))
	case strings.HasPrefix(text, prefixOther):
		r = Other(strings.TrimPrefix(text, prefixOther))
	case strings.HasPrefix(text, prefixCompensation):
		m := compensationText.FindStringSubmatch(text)
		if m == nil {
			return Reason{}, generic.Invalid("reason", "malformed compensation text %q", text)
		}
		t, err := time.Parse(brDateLayout, m[1])
		if err != nil {
			return Reason{}, generic.Invalid("reason", "malformed service date %q", m[1])
		}
		r = CompensationFor(generic.DateOf(t), m[2], m[3], m[4])
	default:
		return Reason{}, generic.Invalid("reason", "unrecognized reason text %q", text)
	}
	return r.Normalize()
}
