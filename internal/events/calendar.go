package events

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"campusevents/internal/model"
)

const dayLayout = "2006-01-02"

// Day is one calendar day's worth of events.
type Day struct {
	Date   string        `json:"date"`
	Events []model.Event `json:"events"`
}

// GroupByDay buckets events by their UTC start date. The input order is
// kept within a day and days come out in ascending order when the input
// is sorted by start time.
func GroupByDay(evs []model.Event) []Day {
	days := []Day{}
	index := make(map[string]int)
	for _, e := range evs {
		key := e.StartTime.UTC().Format(dayLayout)
		i, ok := index[key]
		if !ok {
			i = len(days)
			index[key] = i
			days = append(days, Day{Date: key})
		}
		days[i].Events = append(days[i].Events, e)
	}
	return days
}

// ExportICS renders events as an iCalendar feed.
func ExportICS(evs []model.Event, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//campusevents//calendar//EN")
	for _, e := range evs {
		ve := cal.AddEvent(e.ID + "@campusevents")
		ve.SetDtStampTime(stamp.UTC())
		ve.SetStartAt(e.StartTime.UTC())
		ve.SetEndAt(e.EndTime.UTC())
		ve.SetSummary(e.Title)
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		ve.AddProperty(ical.ComponentPropertyCategories, string(e.Type))
	}
	return cal.Serialize()
}
