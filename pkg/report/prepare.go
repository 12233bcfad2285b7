package report

import (
	"math"
	"slices"
	"time"

	"github.com/neurodesk/worklog/pkg/value"
)

const dayLayout = "2006-01-02"

// Options control how entries are shaped into a report context.
type Options struct {
	Title string
	// From and To bound the report by calendar day in Location, both
	// inclusive. A zero value leaves that side open.
	From, To time.Time
	Location *time.Location
	// Now is recorded as report.generated; time.Now() when zero.
	Now time.Time
	// Meta is exposed to templates as meta.
	Meta map[string]any
}

func (o Options) location() *time.Location {
	if o.Location != nil {
		return o.Location
	}
	return time.Local
}

type shaped struct {
	entry    Entry
	day      string
	minutes  int
	measured bool
}

// Prepare filters entries to the requested days, orders them by start time
// and builds the template context:
//
//	report:  {title, generated, from, to, entryCount, dayCount, totalDuration}
//	days:    [{date, weekday, entries, totalDuration, entryCount}]
//	entries: [{id, date, start, end, activity, category, notes, tags, duration, hasDuration}]
//	categories: [{name, totalDuration, entryCount}]
//	meta:    Options.Meta converted with value.FromGo
//
// Durations are whole minutes. An open entry lasts until the next entry of
// the same day starts; the last open entry of a day has no duration.
func Prepare(entries []Entry, opts Options) value.Dict {
	loc := opts.location()
	from, to := dayKey(opts.From, loc), dayKey(opts.To, loc)

	var rows []shaped
	for _, e := range entries {
		day := e.Start.In(loc).Format(dayLayout)
		if (from != "" && day < from) || (to != "" && day > to) {
			continue
		}
		rows = append(rows, shaped{entry: e, day: day})
	}
	slices.SortStableFunc(rows, func(a, b shaped) int {
		return a.entry.Start.Compare(b.entry.Start)
	})
	for i := range rows {
		rows[i].minutes, rows[i].measured = rows[i].entry.Minutes()
		if rows[i].measured {
			continue
		}
		if i+1 < len(rows) && rows[i+1].day == rows[i].day {
			rows[i].minutes = minutesBetween(rows[i].entry.Start, rows[i+1].entry.Start)
			rows[i].measured = true
		}
	}

	var (
		all      value.List
		days     value.List
		total    int
		day      value.Dict
		dayItems value.List
		dayTotal int
	)
	flush := func() {
		if day == nil {
			return
		}
		day["entries"] = dayItems
		day["entryCount"] = value.Int(len(dayItems))
		day["totalDuration"] = value.Int(dayTotal)
		days = append(days, day)
	}
	for i, r := range rows {
		if i == 0 || r.day != rows[i-1].day {
			flush()
			start := r.entry.Start.In(loc)
			day = value.Dict{
				"date":    value.String(r.day),
				"weekday": value.String(start.Weekday().String()),
			}
			dayItems, dayTotal = nil, 0
		}
		d := entryDict(r, loc)
		all = append(all, d)
		dayItems = append(dayItems, d)
		dayTotal += r.minutes
		total += r.minutes
	}
	flush()

	if from == "" && len(rows) > 0 {
		from = rows[0].day
	}
	if to == "" && len(rows) > 0 {
		to = rows[len(rows)-1].day
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	return value.Dict{
		"report": value.Dict{
			"title":         value.String(opts.Title),
			"generated":     value.String(now.In(loc).Format(time.RFC3339)),
			"from":          value.String(from),
			"to":            value.String(to),
			"entryCount":    value.Int(len(rows)),
			"dayCount":      value.Int(len(days)),
			"totalDuration": value.Int(total),
		},
		"days":       orEmpty(days),
		"entries":    orEmpty(all),
		"categories": categories(rows),
		"meta":       value.FromGo(opts.Meta),
	}
}

func entryDict(r shaped, loc *time.Location) value.Dict {
	e := r.entry
	tags := make(value.List, len(e.Tags))
	for i, t := range e.Tags {
		tags[i] = value.String(t)
	}
	var end value.Value = value.None{}
	if e.End != nil {
		end = value.String(e.End.In(loc).Format(time.RFC3339))
	}
	return value.Dict{
		"id":          value.String(e.ID),
		"date":        value.String(r.day),
		"start":       value.String(e.Start.In(loc).Format(time.RFC3339)),
		"end":         end,
		"activity":    value.String(e.Activity),
		"category":    value.String(e.Category),
		"notes":       value.String(e.Notes),
		"tags":        tags,
		"duration":    value.Int(r.minutes),
		"hasDuration": value.Bool(r.measured),
	}
}

func categories(rows []shaped) value.List {
	type agg struct{ minutes, count int }
	byName := map[string]*agg{}
	for _, r := range rows {
		if r.entry.Category == "" {
			continue
		}
		a := byName[r.entry.Category]
		if a == nil {
			a = &agg{}
			byName[r.entry.Category] = a
		}
		a.minutes += r.minutes
		a.count++
	}
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	slices.Sort(names)
	out := value.List{}
	for _, n := range names {
		out = append(out, value.Dict{
			"name":          value.String(n),
			"totalDuration": value.Int(byName[n].minutes),
			"entryCount":    value.Int(byName[n].count),
		})
	}
	return out
}

func dayKey(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(dayLayout)
}

func minutesBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Minutes()))
}

func orEmpty(l value.List) value.List {
	if l == nil {
		return value.List{}
	}
	return l
}
