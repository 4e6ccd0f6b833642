package factory

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ReasonJSON is the wire form of a leave reason.
//
//	{"category": "compensation",
//	 "compensation": {"service_date": "2024-04-20", "start_time": "19:00",
//	                  "end_time": "07:00", "report_number": "1234/2024"}}
//
// Nested objects are checked only when present; whether a category needs
// them is decided by leave.Reason.Normalize.
//
// A bare JSON string is also accepted and parsed as reason text, for
// clients that still send the rendered form ("Folga Semanal - Integral").
type ReasonJSON struct {
	Category      string            `json:"category" validate:"required,oneof=general_commander company_commander compensation weekly_rest other"`
	Justification string            `json:"justification,omitempty" validate:"max=500"`
	Compensation  *CompensationJSON `json:"compensation,omitempty"`
	WeeklyRest    *WeeklyRestJSON   `json:"weekly_rest,omitempty"`
}

type CompensationJSON struct {
	ServiceDate  string `json:"service_date" validate:"required,date"`
	StartTime    string `json:"start_time" validate:"required,clock"`
	EndTime      string `json:"end_time" validate:"required,clock"`
	ReportNumber string `json:"report_number,omitempty" validate:"max=50"`
}

type WeeklyRestJSON struct {
	HalfDay bool   `json:"half_day"`
	Shift   string `json:"shift,omitempty" validate:"omitempty,oneof=AM PM"`
}

// =============================================================================
// CONVERSION
// =============================================================================

// ParseReason converts a raw JSON reason (object or legacy string) into a
// normalized leave.Reason.
func ParseReason(raw json.RawMessage) (leave.Reason, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return leave.Reason{}, generic.Invalid("reason", "is required")
	}

	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return leave.Reason{}, generic.Invalid("reason", "malformed string: %v", err)
		}
		return leave.ParseReason(text)
	}

	var rj ReasonJSON
	if err := json.Unmarshal(raw, &rj); err != nil {
		return leave.Reason{}, generic.Invalid("reason", "malformed reason: %v", err)
	}
	return FromJSON(rj)
}

// FromJSON validates rj and converts it to a normalized leave.Reason.
func FromJSON(rj ReasonJSON) (leave.Reason, error) {
	if err := Validate(rj, "reason"); err != nil {
		return leave.Reason{}, err
	}

	r := leave.Reason{
		Category:      leave.Category(rj.Category),
		Justification: rj.Justification,
	}
	if c := rj.Compensation; c != nil {
		day, err := generic.ParseDate(c.ServiceDate)
		if err != nil {
			return leave.Reason{}, generic.Invalid("reason.compensation.service_date", "%v", err)
		}
		r.Compensation = &leave.Compensation{
			ServiceDate:  day,
			StartTime:    c.StartTime,
			EndTime:      c.EndTime,
			ReportNumber: c.ReportNumber,
		}
	}
	if w := rj.WeeklyRest; w != nil {
		r.WeeklyRest = &leave.WeeklyRest{HalfDay: w.HalfDay, Shift: leave.Shift(w.Shift)}
	}
	return r.Normalize()
}

// ToJSON renders r in its wire form.
func ToJSON(r leave.Reason) ReasonJSON {
	rj := ReasonJSON{Category: string(r.Category), Justification: r.Justification}
	if c := r.Compensation; c != nil {
		rj.Compensation = &CompensationJSON{
			ServiceDate:  c.ServiceDate.String(),
			StartTime:    c.StartTime,
			EndTime:      c.EndTime,
			ReportNumber: c.ReportNumber,
		}
	}
	if w := r.WeeklyRest; w != nil {
		rj.WeeklyRest = &WeeklyRestJSON{HalfDay: w.HalfDay, Shift: string(w.Shift)}
	}
	return rj
}

// MustParseReason is ParseReason for fixtures; it panics on error.
func MustParseReason(raw string) leave.Reason {
	r, err := ParseReason(json.RawMessage(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid reason %s: %v", raw, err))
	}
	return r
}
