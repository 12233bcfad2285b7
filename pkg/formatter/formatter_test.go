package formatter

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/neurodesk/worklog/pkg/value"
	"golang.org/x/text/language"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	return New(Options{Location: time.UTC})
}

func apply(t *testing.T, r *Registry, name string, in value.Value, args ...string) string {
	t.Helper()
	fn, ok := r.Lookup(name)
	if !ok {
		t.Fatalf("formatter %q not registered", name)
	}
	out, err := fn(in, args)
	if err != nil {
		t.Fatalf("%s(%v): %v", name, in, err)
	}
	return value.Stringify(out)
}

func TestBuiltinNames(t *testing.T) {
	want := []string{
		"capitalize", "date", "datetime", "duration", "escapeCsv", "escapeHtml",
		"lowercase", "markdown", "nl2br", "stripLinebreaks", "time", "uppercase",
	}
	got := testRegistry(t).Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
}

func TestDate(t *testing.T) {
	r := testRegistry(t)
	cases := []struct {
		in      value.Value
		pattern []string
		want    string
	}{
		{value.String("2024-03-05T09:07:00Z"), nil, "2024-03-05"},
		{value.String("2024-03-05"), []string{"dd.mm.yyyy"}, "05.03.2024"},
		{value.String("2024-03-05"), []string{"dd mmm yyyy"}, "05 Mar 2024"},
		{value.String("2024-12-31T23:30:00-02:00"), []string{"yyyy/mm/dd"}, "2025/01/01"},
		{value.String("2024-03-05 14:00"), []string{"mmm"}, "Mar"},
		{value.Int(0), nil, "1970-01-01"},
		{value.String("yesterday"), nil, "Invalid Date"},
		{value.None{}, nil, "Invalid Date"},
		{value.Bool(true), nil, "Invalid Date"},
		{value.Float(1e300), nil, "Invalid Date"},
		{value.Float(-1e300), nil, "Invalid Date"},
		{value.Int(8_640_000_000_000_001), nil, "Invalid Date"},
		{value.Int(8_640_000_000_000_000), nil, "275760-09-13"},
	}
	for _, tc := range cases {
		if got := apply(t, r, "date", tc.in, tc.pattern...); got != tc.want {
			t.Errorf("date(%v, %v) = %q, want %q", tc.in, tc.pattern, got, tc.want)
		}
	}
}

func TestTimeAndDatetime(t *testing.T) {
	r := testRegistry(t)
	if got := apply(t, r, "time", value.String("2024-03-05T09:07:00Z")); got != "09:07" {
		t.Errorf("time = %q", got)
	}
	if got := apply(t, r, "time", value.String("2024-03-05T21:45")); got != "21:45" {
		t.Errorf("time = %q", got)
	}
	if got := apply(t, r, "time", value.String("later")); got != "--:--" {
		t.Errorf("time(invalid) = %q", got)
	}
	if got := apply(t, r, "time", value.Float(1e300)); got != "--:--" {
		t.Errorf("time(out of range) = %q", got)
	}
	if got := apply(t, r, "datetime", value.String("2024-03-05T09:07:00Z")); got != "2024-03-05 09:07" {
		t.Errorf("datetime = %q", got)
	}
	if got := apply(t, r, "datetime", value.List{}); got != "Invalid Date" {
		t.Errorf("datetime(invalid) = %q", got)
	}
}

func TestLocationApplied(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	r := New(Options{Location: berlin})
	if got := apply(t, r, "time", value.String("2024-07-01T08:00:00Z")); got != "10:00" {
		t.Fatalf("time in Berlin = %q, want 10:00", got)
	}
	if got := apply(t, r, "time", value.String("2024-07-01T08:00")); got != "08:00" {
		t.Fatalf("zoneless time = %q, want 08:00", got)
	}
}

func TestCase(t *testing.T) {
	r := testRegistry(t)
	if got := apply(t, r, "uppercase", value.String("straße")); got != "STRASSE" {
		t.Errorf("uppercase = %q", got)
	}
	if got := apply(t, r, "lowercase", value.String("MiXeD")); got != "mixed" {
		t.Errorf("lowercase = %q", got)
	}
	if got := apply(t, r, "capitalize", value.String("écrire le code")); got != "Écrire le code" {
		t.Errorf("capitalize = %q", got)
	}
	if got := apply(t, r, "capitalize", value.String("")); got != "" {
		t.Errorf("capitalize(empty) = %q", got)
	}
	if got := apply(t, r, "uppercase", value.Int(12)); got != "12" {
		t.Errorf("uppercase(12) = %q", got)
	}

	tr := New(Options{Location: time.UTC, Language: language.Turkish})
	if got := apply(t, tr, "uppercase", value.String("istanbul")); got != "İSTANBUL" {
		t.Errorf("turkish uppercase = %q", got)
	}
}

func TestEscapeHTML(t *testing.T) {
	r := testRegistry(t)
	got := apply(t, r, "escapeHtml", value.String(`<a href="x">Tom & Jerry's</a>`))
	want := "&lt;a href=&quot;x&quot;&gt;Tom &amp; Jerry&#39;s&lt;/a&gt;"
	if got != want {
		t.Fatalf("escapeHtml = %q, want %q", got, want)
	}
	twice := apply(t, r, "escapeHtml", value.String(got))
	if !strings.Contains(twice, "&amp;lt;") {
		t.Fatalf("escaping twice must double-escape, got %q", twice)
	}
}

func TestEscapeCSV(t *testing.T) {
	cases := map[string]string{
		"plain":         "plain",
		"a,b":           `"a,b"`,
		`say "hi"`:      `"say ""hi"""`,
		"line\nbreak":   "\"line\nbreak\"",
		"carriage\rret": "\"carriage\rret\"",
		"":              "",
	}
	r := testRegistry(t)
	for in, want := range cases {
		if got := apply(t, r, "escapeCsv", value.String(in)); got != want {
			t.Errorf("escapeCsv(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLinebreaks(t *testing.T) {
	r := testRegistry(t)
	if got := apply(t, r, "nl2br", value.String("a\nb\r\nc\rd")); got != "a<br>b<br>c<br>d" {
		t.Errorf("nl2br = %q", got)
	}
	if got := apply(t, r, "stripLinebreaks", value.String("a\n\nb\r\nc\rd")); got != "a b c d" {
		t.Errorf("stripLinebreaks = %q", got)
	}
}

func TestDuration(t *testing.T) {
	r := testRegistry(t)
	cases := []struct {
		in   value.Value
		want string
	}{
		{value.Int(0), "0h 0m"},
		{value.Int(45), "0h 45m"},
		{value.Int(90), "1h 30m"},
		{value.Int(600), "10h 0m"},
		{value.Float(59.6), "1h 0m"},
		{value.String("125"), "2h 5m"},
		{value.Int(-5), ""},
		{value.String("soon"), ""},
		{value.None{}, ""},
		{value.Bool(true), ""},
		{value.Float(1e300), ""},
		{value.Float(math.Inf(1)), ""},
		{value.Float(math.NaN()), ""},
	}
	for _, tc := range cases {
		if got := apply(t, r, "duration", tc.in); got != tc.want {
			t.Errorf("duration(%#v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMarkdown(t *testing.T) {
	r := New(Options{Location: time.UTC, Markdown: Goldmark()})
	got := apply(t, r, "markdown", value.String("**bold** _it_"))
	if !strings.Contains(got, "<strong>bold</strong>") || !strings.Contains(got, "<em>it</em>") {
		t.Fatalf("markdown = %q", got)
	}
	raw := apply(t, r, "markdown", value.String("<script>alert(1)</script>"))
	if strings.Contains(raw, "<script>") {
		t.Fatalf("raw html must not pass through: %q", raw)
	}
}

func TestMarkdownFallback(t *testing.T) {
	r := testRegistry(t)
	if got := apply(t, r, "markdown", value.String("<b>x</b>")); got != "&lt;b&gt;x&lt;/b&gt;" {
		t.Fatalf("markdown without converter = %q", got)
	}
	failing := func(string) (string, error) { return "", errors.New("boom") }
	if got := Markdown(failing, "a & b"); got != "a &amp; b" {
		t.Fatalf("markdown with failing converter = %q", got)
	}
}

func TestWithDoesNotModifyOriginal(t *testing.T) {
	base := testRegistry(t)
	ext := base.With("reverse", func(v value.Value, _ []string) (value.Value, error) {
		rs := []rune(value.Stringify(v))
		for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
			rs[i], rs[j] = rs[j], rs[i]
		}
		return value.String(string(rs)), nil
	})
	if _, ok := base.Lookup("reverse"); ok {
		t.Fatalf("With must not modify the receiver")
	}
	if got := apply(t, ext, "reverse", value.String("abc")); got != "cba" {
		t.Fatalf("reverse = %q", got)
	}
	if _, ok := ext.Lookup("date"); !ok {
		t.Fatalf("extended registry lost built-ins")
	}
}

func TestDefaultIsShared(t *testing.T) {
	if Default() != Default() {
		t.Fatalf("Default() must return the same registry")
	}
}
