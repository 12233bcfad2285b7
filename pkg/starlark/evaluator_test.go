package starlark

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/neurodesk/worklog/pkg/value"
	"go.starlark.net/starlark"
)

func TestToStarlark(t *testing.T) {
	tests := []struct {
		name     string
		input    value.Value
		expected starlark.Value
	}{
		{
			name:     "string value",
			input:    value.String("hello"),
			expected: starlark.String("hello"),
		},
		{
			name:     "int value",
			input:    value.Int(42),
			expected: starlark.MakeInt64(42),
		},
		{
			name:     "float value",
			input:    value.Float(3.14),
			expected: starlark.Float(3.14),
		},
		{
			name:     "bool value",
			input:    value.Bool(true),
			expected: starlark.Bool(true),
		},
		{
			name:     "none value",
			input:    value.None{},
			expected: starlark.None,
		},
		{
			name:     "nil value",
			input:    nil,
			expected: starlark.None,
		},
		{
			name:     "dict keys sorted",
			input:    value.Dict{"b": value.Int(2), "a": value.Int(1)},
			expected: mustEval(t, `{"a": 1, "b": 2}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToStarlark(tt.input)
			if result.String() != tt.expected.String() {
				t.Errorf("ToStarlark() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func mustEval(t *testing.T, expr string) starlark.Value {
	t.Helper()
	v, err := starlark.Eval(&starlark.Thread{}, "<test>", expr, nil)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestFromStarlark(t *testing.T) {
	tests := []struct {
		expr     string
		expected value.Value
	}{
		{`"hello"`, value.String("hello")},
		{"42", value.Int(42)},
		{"1 << 70", value.String("1180591620717411303424")},
		{"2.5", value.Float(2.5)},
		{"False", value.Bool(false)},
		{"None", value.None{}},
		{`b"raw"`, value.String("raw")},
		{"(1, 2)", value.List{value.Int(1), value.Int(2)}},
		{`[1, "a", [True]]`, value.List{value.Int(1), value.String("a"), value.List{value.Bool(true)}}},
		{`{"k": {"n": None}, 3: "x"}`, value.Dict{"k": value.Dict{"n": value.None{}}, "3": value.String("x")}},
	}
	for _, tt := range tests {
		got := FromStarlark(mustEval(t, tt.expr))
		if diff := cmp.Diff(tt.expected, got); diff != "" {
			t.Errorf("FromStarlark(%s) (-want +got):\n%s", tt.expr, diff)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	in := value.Dict{
		"list": value.List{value.String("a"), value.Int(1), value.Bool(true)},
		"nested": value.Dict{
			"f": value.Float(0.5),
			"n": value.None{},
		},
	}
	if diff := cmp.Diff(in, FromStarlark(ToStarlark(in))); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}
}

func TestEvaluatorBasic(t *testing.T) {
	eval := NewEvaluator()
	result, err := eval.Eval("2 + 3")
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if result.String() != "5" {
		t.Errorf("Expected '5', got %v", result.String())
	}
}

func TestEvaluatorWithGlobals(t *testing.T) {
	eval := NewEvaluator()
	eval.SetGlobal("test_var", value.String("hello"))
	result, err := eval.Eval("test_var + ' world'")
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if result.String() != "hello world" {
		t.Errorf("Expected 'hello world', got %v", result.String())
	}
}

func TestEvaluatorScript(t *testing.T) {
	eval := NewEvaluator()
	script := `
x = 10
y = 20
result = x + y
for i in range(3):
    result += i
`
	globals, err := eval.ExecString(script)
	if err != nil {
		t.Fatalf("ExecString error: %v", err)
	}
	if _, ok := globals["result"]; !ok {
		t.Error("Expected 'result' variable to be set")
	}
	result, ok := eval.GetGlobal("result")
	if !ok {
		t.Fatal("Expected 'result' to be accessible via GetGlobal")
	}
	if result.String() != "33" {
		t.Errorf("Expected result='33', got %v", result.String())
	}
}

func TestBuiltins(t *testing.T) {
	eval := NewEvaluator()
	cases := []struct{ expr, want string }{
		{"minutes(1, 30)", "90"},
		{"minutes(2)", "120"},
		{"fmt_duration(135)", "2h 15m"},
		{"fmt_duration(59.6)", "1h 0m"},
		{`parse_time("1970-01-01T00:01:00Z")`, "60"},
		{`parse_time("1970-01-02")`, "86400"},
	}
	for _, tc := range cases {
		got, err := eval.Eval(tc.expr)
		if err != nil {
			t.Fatalf("%s: %v", tc.expr, err)
		}
		if got.String() != tc.want {
			t.Errorf("%s = %q, want %q", tc.expr, got.String(), tc.want)
		}
	}
	for _, expr := range []string{`fmt_duration("x")`, `parse_time("soon")`, "minutes()"} {
		if _, err := eval.Eval(expr); err == nil {
			t.Errorf("%s: expected error", expr)
		}
	}
}

func TestEnrich(t *testing.T) {
	ctx := value.Dict{
		"report": value.Dict{"title": value.String("Week")},
		"entries": value.List{
			value.Dict{"activity": value.String("a"), "duration": value.Int(30), "category": value.String("Meetings")},
			value.Dict{"activity": value.String("b"), "duration": value.Int(45), "category": value.String("Engineering")},
			value.Dict{"activity": value.String("c"), "duration": value.Int(15), "category": value.String("Meetings")},
		},
	}
	script := `
meeting_minutes = 0
for e in entries:
    if e["category"] == "Meetings":
        meeting_minutes += e["duration"]
meeting_time = fmt_duration(meeting_minutes)
_scratch = "private"

def helper():
    return 1

print("enriched", len(entries))
`
	var logs bytes.Buffer
	out, err := Enrich(ctx, "enrich.star", script, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if got := out["meeting_time"]; got != value.String("0h 45m") {
		t.Errorf("meeting_time = %v", got)
	}
	if got := out["meeting_minutes"]; got != value.Int(45) {
		t.Errorf("meeting_minutes = %v", got)
	}
	for _, key := range []string{"_scratch", "helper", "minutes", "fmt_duration"} {
		if _, ok := out[key]; ok {
			t.Errorf("%s should not be exported", key)
		}
	}
	if diff := cmp.Diff(ctx["report"], out["report"]); diff != "" {
		t.Errorf("report changed (-want +got):\n%s", diff)
	}
	if _, ok := ctx["meeting_time"]; ok {
		t.Error("input context was modified")
	}
	if !strings.Contains(logs.String(), `msg="enriched 3"`) {
		t.Errorf("print output not logged:\n%s", logs.String())
	}
}

func TestEnrichMutatesCopy(t *testing.T) {
	ctx := value.Dict{"entries": value.List{value.String("a")}}
	out, err := Enrich(ctx, "append.star", `entries.append("b")`)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(value.List{value.String("a"), value.String("b")}, out["entries"]); diff != "" {
		t.Errorf("entries (-want +got):\n%s", diff)
	}
	if len(ctx["entries"].(value.List)) != 1 {
		t.Error("input list was modified")
	}
}

func TestEnrichErrors(t *testing.T) {
	if _, err := Enrich(nil, "bad.star", "x = "); err == nil || !strings.Contains(err.Error(), "bad.star") {
		t.Fatalf("expected syntax error naming the file, got %v", err)
	}
	_, err := Enrich(nil, "loop.star", "while True:\n    pass\n", WithMaxSteps(1000))
	if err == nil || !strings.Contains(err.Error(), "too many steps") {
		t.Fatalf("expected step limit error, got %v", err)
	}
}
