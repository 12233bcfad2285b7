// Package report loads time-tracking entries and shapes them into the
// context that report templates render.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/neurodesk/worklog/pkg/formatter"
	v "github.com/neurodesk/worklog/pkg/validator"
)

// Entry is one tracked activity. End is nil while the activity is open.
type Entry struct {
	ID       string
	Start    time.Time
	End      *time.Time
	Activity string
	Category string
	Notes    string
	Tags     []string
}

func (e Entry) Validate() error {
	desc := fmt.Sprintf("entry %q", e.ID)
	return v.All(
		v.NotEmpty(e.Activity, desc+" activity"),
		v.NotBefore(e.Start, e.End, desc),
		v.Map(e.Tags, v.NotEmpty, desc+" tags"),
		v.NoDuplicates(e.Tags, desc+" tags"),
	)
}

// Minutes returns the recorded length of e rounded to whole minutes, or
// false when the entry is still open.
func (e Entry) Minutes() (int, bool) {
	if e.End == nil {
		return 0, false
	}
	return minutesBetween(e.Start, *e.End), true
}

// Log is a decoded entry log. Meta holds free-form values from the log's
// meta mapping, such as a client name or an hourly rate.
type Log struct {
	Meta    map[string]any
	Entries []Entry
}

type entryFile struct {
	Meta    map[string]any `yaml:"meta,omitempty"`
	Entries []rawEntry     `yaml:"entries"`
}

type rawEntry struct {
	ID       string   `yaml:"id,omitempty"`
	Start    string   `yaml:"start"`
	End      string   `yaml:"end,omitempty"`
	Activity string   `yaml:"activity"`
	Category string   `yaml:"category,omitempty"`
	Notes    string   `yaml:"notes,omitempty"`
	Tags     []string `yaml:"tags,omitempty"`
}

func (r rawEntry) entry(loc *time.Location) (Entry, error) {
	start, ok := formatter.ParseTime(r.Start, loc)
	if !ok {
		return Entry{}, fmt.Errorf("invalid start time %q", r.Start)
	}
	e := Entry{
		ID:       r.ID,
		Start:    start,
		Activity: r.Activity,
		Category: r.Category,
		Notes:    r.Notes,
		Tags:     r.Tags,
	}
	if r.End != "" {
		end, ok := formatter.ParseTime(r.End, loc)
		if !ok {
			return Entry{}, fmt.Errorf("invalid end time %q", r.End)
		}
		e.End = &end
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return e, nil
}

// Decode reads an entry log of the form
//
//	meta:
//	  client: Acme
//	entries:
//	  - start: 2024-03-04 09:00
//	    end: 2024-03-04 10:30
//	    activity: Standup
//
// Times without a zone offset are read in loc. Entries without an id get a
// random UUID.
func Decode(r io.Reader, loc *time.Location) (Log, error) {
	if loc == nil {
		loc = time.Local
	}
	var f entryFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Log{}, fmt.Errorf("decoding entries: %w", err)
	}
	entries := make([]Entry, 0, len(f.Entries))
	for i, raw := range f.Entries {
		e, err := raw.entry(loc)
		if err != nil {
			return Log{}, fmt.Errorf("entry %d: %w", i, err)
		}
		entries = append(entries, e)
	}
	if err := v.All(
		v.Each(entries),
		v.NoDuplicates(ids(entries), "entry ids"),
	); err != nil {
		return Log{}, fmt.Errorf("invalid entries: %w", err)
	}
	return Log{Meta: f.Meta, Entries: entries}, nil
}

// LoadFile decodes the entry log stored at path.
func LoadFile(path string, loc *time.Location) (Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return Log{}, fmt.Errorf("opening entry log: %w", err)
	}
	defer f.Close()
	log, err := Decode(f, loc)
	if err != nil {
		return Log{}, fmt.Errorf("%s: %w", path, err)
	}
	return log, nil
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
