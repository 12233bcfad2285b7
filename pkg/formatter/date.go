package formatter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/neurodesk/worklog/pkg/value"
)

const (
	defaultDatePattern = "yyyy-mm-dd"
	invalidDate        = "Invalid Date"
	invalidTime        = "--:--"

	// maxEpochMillis bounds numeric dates to 100,000,000 days either side
	// of the Unix epoch.
	maxEpochMillis = 8_640_000_000_000_000
)

// Layouts tried for strings without a zone offset.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

type dates struct {
	loc *time.Location
}

func (d dates) date(val value.Value, args []string) (value.Value, error) {
	pattern := defaultDatePattern
	if len(args) > 0 && args[0] != "" {
		pattern = args[0]
	}
	t, ok := d.parse(val)
	if !ok {
		return value.String(invalidDate), nil
	}
	return value.String(FormatPattern(t, pattern)), nil
}

func (d dates) time(val value.Value, _ []string) (value.Value, error) {
	t, ok := d.parse(val)
	if !ok {
		return value.String(invalidTime), nil
	}
	return value.String(FormatPattern(t, "HH:MM")), nil
}

func (d dates) datetime(val value.Value, _ []string) (value.Value, error) {
	t, ok := d.parse(val)
	if !ok {
		return value.String(invalidDate), nil
	}
	return value.String(FormatPattern(t, "yyyy-mm-dd HH:MM")), nil
}

// parse accepts RFC 3339 strings, zoneless ISO-like strings (read in d.loc)
// and numbers holding milliseconds since the Unix epoch.
func (d dates) parse(val value.Value) (time.Time, bool) {
	switch v := val.(type) {
	case value.Int:
		if v > maxEpochMillis || v < -maxEpochMillis {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(v)).In(d.loc), true
	case value.Float:
		f := float64(v)
		if math.IsNaN(f) || math.Abs(f) > maxEpochMillis {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(f)).In(d.loc), true
	case value.String:
		return ParseTime(string(v), d.loc)
	default:
		return time.Time{}, false
	}
}

// ParseTime parses s as an RFC 3339 timestamp or, failing that, as one of
// the zoneless layouts interpreted in loc.
func ParseTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), true
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatPattern renders t using the pattern tokens yyyy, mmm (short month
// name), mm, dd, HH and MM. Tokens are matched longest first; everything
// else is copied as is.
func FormatPattern(t time.Time, pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		rest := pattern[i:]
		switch {
		case strings.HasPrefix(rest, "yyyy"):
			fmt.Fprintf(&b, "%04d", t.Year())
			i += 4
		case strings.HasPrefix(rest, "mmm"):
			b.WriteString(t.Month().String()[:3])
			i += 3
		case strings.HasPrefix(rest, "mm"):
			b.WriteString(pad2(int(t.Month())))
			i += 2
		case strings.HasPrefix(rest, "dd"):
			b.WriteString(pad2(t.Day()))
			i += 2
		case strings.HasPrefix(rest, "HH"):
			b.WriteString(pad2(t.Hour()))
			i += 2
		case strings.HasPrefix(rest, "MM"):
			b.WriteString(pad2(t.Minute()))
			i += 2
		default:
			b.WriteByte(pattern[i])
			i++
		}
	}
	return b.String()
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
