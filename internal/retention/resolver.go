// Package retention implements retention-deadline resolution for documents.
// Resolve is a pure function: the evaluation date is injected by the caller
// and no storage or clock access happens here. Callers cache the result on
// the document and recompute whenever the document date, policy assignment,
// or policy duration changes.
package retention

import "time"

// Trigger identifies the date a retention duration counts forward from.
type Trigger string

const (
	TriggerCreation      Trigger = "creation"
	TriggerDocumentDate  Trigger = "document_date"
	TriggerExpiry        Trigger = "expiry"
	TriggerLastAccess    Trigger = "last_access"
	TriggerFiscalYearEnd Trigger = "fiscal_year_end"
)

// Valid reports whether t is a recognized trigger.
func (t Trigger) Valid() bool {
	switch t {
	case TriggerCreation, TriggerDocumentDate, TriggerExpiry,
		TriggerLastAccess, TriggerFiscalYearEnd:
		return true
	}
	return false
}

// Rule is the temporal portion of a retention policy: a trigger and a
// duration in years plus additional months, applied additively.
type Rule struct {
	Trigger Trigger
	Years   int
	Months  int
}

// TemporalAttrs carries the document dates a rule may trigger from.
// Expiry and last-access dates are supplied by external collaborators;
// absent values disqualify rules triggering on them.
type TemporalAttrs struct {
	CreatedAt    time.Time
	DocumentDate *time.Time
	ExpiryDate   *time.Time
	LastAccessed *time.Time
}

// Result is the resolved retention outcome. Deadline is nil when the rule's
// trigger date is unavailable; Due is true only when the deadline has passed.
type Result struct {
	Deadline *time.Time
	Due      bool
}

// Resolve computes the retention deadline and due flag for a document under
// the given rule, evaluated at the provided date. A nil rule means no policy
// is attached and yields an empty result.
func Resolve(attrs TemporalAttrs, rule *Rule, today time.Time) Result {
	if rule == nil {
		return Result{}
	}

	trigger := triggerDate(attrs, rule.Trigger)
	if trigger == nil {
		return Result{}
	}

	deadline := AddCalendarMonths(*trigger, rule.Years*12+rule.Months)
	due := !deadline.After(DateOf(today))

	return Result{
		Deadline: &deadline,
		Due:      due,
	}
}

func triggerDate(attrs TemporalAttrs, trigger Trigger) *time.Time {
	switch trigger {
	case TriggerCreation:
		d := DateOf(attrs.CreatedAt)
		return &d
	case TriggerDocumentDate:
		return datePtr(attrs.DocumentDate)
	case TriggerFiscalYearEnd:
		if attrs.DocumentDate == nil {
			return nil
		}
		d := time.Date(attrs.DocumentDate.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
		return &d
	case TriggerExpiry:
		return datePtr(attrs.ExpiryDate)
	case TriggerLastAccess:
		return datePtr(attrs.LastAccessed)
	}
	return nil
}

func datePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := DateOf(*t)
	return &d
}

// DateOf truncates a timestamp to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddCalendarMonths adds whole months to a date with day-of-month clamping:
// 2020-01-31 + 1 month is 2020-02-29, not a normalized overflow into March
// as time.Time.AddDate would produce.
func AddCalendarMonths(d time.Time, months int) time.Time {
	y, m, day := d.Date()

	total := int(m) - 1 + months
	year := y + total/12
	month := time.Month(total%12 + 1)
	if total < 0 {
		// Go integer division truncates toward zero; re-normalize.
		year = y + (total-11)/12
		month = time.Month((total%12+12)%12 + 1)
	}

	if last := daysIn(year, month); day > last {
		day = last
	}

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
