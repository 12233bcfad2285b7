package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/neurodesk/worklog/pkg/common"
	"github.com/neurodesk/worklog/pkg/formatter"
	"github.com/neurodesk/worklog/pkg/report"
	"github.com/neurodesk/worklog/pkg/template"
	"github.com/neurodesk/worklog/pkg/value"
)

func sampleContext() value.Dict {
	at := func(day, h, m int) time.Time { return time.Date(2024, 3, day, h, m, 0, 0, time.UTC) }
	end := func(t time.Time) *time.Time { return &t }
	entries := []report.Entry{
		{ID: "1", Start: at(4, 9, 0), End: end(at(4, 9, 15)), Activity: "Standup", Category: "Meetings"},
		{ID: "2", Start: at(4, 9, 15), Activity: `Review, "parser" <b>`, Category: "Engineering", Notes: "line1\nline2"},
		{ID: "3", Start: at(5, 10, 0), End: end(at(5, 11, 30)), Activity: "Plan"},
	}
	return report.Prepare(entries, report.Options{Title: "Week & more", Location: time.UTC, Now: at(8, 17, 0)})
}

func testEngine() *template.Engine {
	return template.New(template.WithFormatters(formatter.New(formatter.Options{
		Location: time.UTC,
		Markdown: formatter.Goldmark(),
	})))
}

func TestBuiltInTemplates(t *testing.T) {
	SetTemplateDir("")
	for _, name := range []string{"html", "markdown", "csv"} {
		tpl, err := Get(name)
		if err != nil {
			t.Fatalf("Get(%q): %v", name, err)
		}
		if tpl.Name != name || string(tpl.Format) != name {
			t.Errorf("%s: name %q format %q", name, tpl.Name, tpl.Format)
		}
		if tpl.Source != "" {
			t.Errorf("%s: built-in template has source %q", name, tpl.Source)
		}
	}
}

func TestCSVTemplate(t *testing.T) {
	tpl, err := Get("csv")
	if err != nil {
		t.Fatal(err)
	}
	out, err := tpl.Execute(testEngine(), sampleContext())
	if err != nil {
		t.Fatal(err)
	}
	want := "date,start,end,activity,category,minutes,notes\n" +
		"2024-03-04,09:00,09:15,Standup,Meetings,15,\n" +
		"2024-03-04,09:15,,\"Review, \"\"parser\"\" <b>\",Engineering,0,\"line1\nline2\"\n" +
		"2024-03-05,10:00,11:30,Plan,,90,\n" +
		"\n"
	if out != want {
		t.Fatalf("got:\n%s\nwant:\n%s", out, want)
	}
}

func TestHTMLTemplate(t *testing.T) {
	tpl, err := Get("html")
	if err != nil {
		t.Fatal(err)
	}
	out, err := tpl.Execute(testEngine(), sampleContext())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"<title>Week &amp; more</title>",
		"<p>04 Mar 2024 to 05 Mar 2024, 3 entries, 1h 45m</p>",
		"<h2>Monday, 04.03.2024</h2>",
		"Review, &quot;parser&quot; &lt;b&gt;",
		"line1<br",
		`<span class="open">open</span>`,
		"<p>Total: 0h 15m</p>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestMarkdownTemplate(t *testing.T) {
	tpl, err := Get("markdown")
	if err != nil {
		t.Fatal(err)
	}
	out := tpl.Render(testEngine(), sampleContext())
	for _, want := range []string{
		"# Week & more\n",
		"## Tuesday, 05.03.2024",
		"| 09:00 | Standup | Meetings | 0h 15m |",
		"| 09:15 | Review, \"parser\" <b> | Engineering | - |",
		"**Total:** 1h 30m",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestTemplateOverride(t *testing.T) {
	// Create a temporary directory for test templates
	tempDir, err := os.MkdirTemp("", "test-templates-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	overrideContent := `name: weekly
format: markdown
body: "{{#each d = days}}{{ d.date }} {{/each}}"
`
	overridePath := filepath.Join(tempDir, "weekly.yaml")
	if err := os.WriteFile(overridePath, []byte(overrideContent), 0644); err != nil {
		t.Fatalf("Failed to write override template: %v", err)
	}

	SetTemplateDir("")
	if _, err = Get("weekly"); err == nil {
		t.Error("Expected error when template doesn't exist, but got none")
	}

	SetTemplateDir(tempDir)
	defer SetTemplateDir("")

	tpl, err := Get("weekly")
	if err != nil {
		t.Fatalf("Failed to get override template: %v", err)
	}
	if tpl.Format != common.FormatMarkdown || tpl.Source != overridePath {
		t.Errorf("unexpected template %+v", tpl)
	}
	if got := tpl.Render(testEngine(), sampleContext()); got != "2024-03-04 2024-03-05 " {
		t.Errorf("render = %q", got)
	}

	// Built-ins stay reachable next to the override.
	if _, err := Get("csv"); err != nil {
		t.Fatalf("Failed to get built-in template: %v", err)
	}
	var names []string
	for _, tpl := range List() {
		names = append(names, tpl.Name)
	}
	if strings.Join(names, ",") != "csv,html,markdown,weekly" {
		t.Errorf("List() = %v", names)
	}
}

func TestInvalidOverride(t *testing.T) {
	tempDir := t.TempDir()
	bad := "name: csv\nformat: csv\nbody: \"{{#each x = y}}\"\n"
	if err := os.WriteFile(filepath.Join(tempDir, "csv.yaml"), []byte(bad), 0644); err != nil {
		t.Fatal(err)
	}
	SetTemplateDir(tempDir)
	defer SetTemplateDir("")

	_, err := Get("csv")
	if err == nil || !strings.Contains(err.Error(), "unclosed {{#each}} block") {
		t.Fatalf("expected a syntax error, got %v", err)
	}
	// List skips the broken override and keeps the built-in.
	for _, tpl := range List() {
		if tpl.Name == "csv" && tpl.Source != "" {
			t.Fatalf("broken override listed: %+v", tpl)
		}
	}
}

func TestDecodeRejects(t *testing.T) {
	cases := []struct{ src, want string }{
		{"name: x\nformat: pdf\nbody: a\n", "format must be one of"},
		{"name: x\nformat: csv\n", "body must not be empty"},
		{"format: csv\nbody: a\n", "name must not be empty"},
		{"name: x\nformat: csv\nbody: a\nextra: 1\n", "field extra not found"},
	}
	for _, tc := range cases {
		_, err := Decode([]byte(tc.src))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%q: got %v, want %q", tc.src, err, tc.want)
		}
	}
}

func TestCheckNames(t *testing.T) {
	if err := checkNames(templates, "built-in templates"); err != nil {
		t.Fatalf("built-ins: %v", err)
	}
	set := map[string]Template{
		"weekly": {Name: "weekly"},
		"daily":  {Name: "day"},
		"zeta":   {Name: "z"},
	}
	err := checkNames(set, "template_dir")
	if err == nil || err.Error() != `template_dir: daily.yaml declares name "day"` {
		t.Fatalf("checkNames = %v", err)
	}
}
