package calendar

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"gymops/internal/domain/schedule"
)

// floatingLayout writes DATE-TIME values without a zone (RFC 5545 "floating"
// time), matching the naive wall clock the schedule is kept in.
const floatingLayout = "20060102T150405"

// ProductID identifies the generator in PRODID.
const ProductID = "-//gymops//schedule export//EN"

var rruleDays = [7]rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

// Export describes one branch schedule as an iCalendar feed.
type Export struct {
	Name   string    // X-WR-CALNAME
	Branch string    // used to scope event UIDs
	Now    time.Time // DTSTAMP and the week template slots start in
}

// Write serializes slots to w. Dated slots become single events; weekday
// template slots become events repeating weekly from the week containing
// e.Now.
// PRE: slots are valid
// POST: w holds a VCALENDAR with one VEVENT per slot
func (e Export) Write(w io.Writer, slots []schedule.Slot) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	if e.Name != "" {
		cal.SetXWRCalName(e.Name)
	}

	week := schedule.StartOfWeek(schedule.Naive(e.Now))
	for _, s := range slots {
		ev := cal.AddEvent(fmt.Sprintf("%s@%s.gymops", s.ID, e.Branch))
		ev.SetDtStampTime(e.Now.UTC())
		ev.SetSummary(s.Title)
		if s.Description != "" {
			ev.SetDescription(s.Description)
		}
		if s.Type != "" {
			ev.SetProperty(ical.ComponentPropertyCategories, string(s.Type))
		}

		switch a := s.Anchor.(type) {
		case schedule.DateAnchor:
			setFloating(ev, a.Start, a.End)
		case schedule.WeekdayAnchor:
			start := week.AddDate(0, 0, a.Start.Day.Rank()).
				Add(time.Duration(a.Start.Hour)*time.Hour + time.Duration(a.Start.Minute)*time.Minute)
			setFloating(ev, start, start.Add(s.Duration()))
			rule := rrule.ROption{Freq: rrule.WEEKLY, Byweekday: []rrule.Weekday{rruleDays[a.Start.Day.Rank()]}}
			ev.AddRrule(rule.RRuleString())
		default:
			return fmt.Errorf("slot %s: %w", s.ID, schedule.ErrMissingAnchor)
		}
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}

func setFloating(ev *ical.VEvent, start, end time.Time) {
	ev.SetProperty(ical.ComponentPropertyDtStart, start.Format(floatingLayout))
	ev.SetProperty(ical.ComponentPropertyDtEnd, end.Format(floatingLayout))
}
