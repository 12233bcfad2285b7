package templates

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/neurodesk/worklog/pkg/common"
	"github.com/neurodesk/worklog/pkg/template"
	v "github.com/neurodesk/worklog/pkg/validator"
	"github.com/neurodesk/worklog/pkg/value"
)

// Template is a named report template descriptor.
type Template struct {
	Name        string                  `yaml:"name"`
	Format      common.Format           `yaml:"format"`
	Description string                  `yaml:"description,omitempty"`
	Body        template.TemplateString `yaml:"body"`

	// Source is the file the descriptor was read from, or empty for
	// built-in templates.
	Source string `yaml:"-"`
}

func (t Template) Validate() error {
	return v.All(
		v.NotEmpty(t.Name, "name"),
		v.HasNoDirectives(t.Name, "name"),
		v.MatchesAllowed(t.Format, common.Formats, "format"),
		v.NotEmpty(string(t.Body), "body"),
		t.Body.Validate(),
	)
}

// Execute renders the body with e and returns any template error.
func (t Template) Execute(e *template.Engine, ctx value.Dict) (string, error) {
	out, err := e.Execute(string(t.Body), ctx)
	if err != nil {
		return "", fmt.Errorf("rendering template %q: %w", t.Name, err)
	}
	return out, nil
}

// Render renders the body with e. Errors are reported in the output.
func (t Template) Render(e *template.Engine, ctx value.Dict) string {
	return e.Render(string(t.Body), ctx)
}

// Decode reads and validates a single descriptor.
func Decode(content []byte) (Template, error) {
	var tpl Template
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&tpl); err != nil {
		return Template{}, fmt.Errorf("decoding template: %w", err)
	}
	if err := tpl.Validate(); err != nil {
		return Template{}, fmt.Errorf("invalid template %q: %w", tpl.Name, err)
	}
	return tpl, nil
}

func LoadFile(path string) (Template, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Template{}, err
	}
	tpl, err := Decode(content)
	if err != nil {
		return Template{}, fmt.Errorf("%s: %w", path, err)
	}
	tpl.Source = path
	return tpl, nil
}

//go:embed *.yaml
var Files embed.FS

var templates = map[string]Template{}

var (
	mu          sync.RWMutex
	templateDir string
)

// SetTemplateDir makes Get and List look for NAME.yaml descriptors in dir
// before the built-in templates. An empty dir disables the lookup.
func SetTemplateDir(dir string) {
	mu.Lock()
	defer mu.Unlock()
	templateDir = dir
}

func currentDir() string {
	mu.RLock()
	defer mu.RUnlock()
	return templateDir
}

// load reads the descriptor file through l.
func load(l template.Loader, file string) (Template, error) {
	src, err := l.Load(file)
	if err != nil {
		return Template{}, err
	}
	tpl, err := Decode([]byte(src))
	if err != nil {
		return Template{}, fmt.Errorf("%s: %w", file, err)
	}
	return tpl, nil
}

func Get(name string) (Template, error) {
	if dir := currentDir(); dir != "" {
		file := name + ".yaml"
		tpl, err := load(template.FSLoader{FS: os.DirFS(dir)}, file)
		if err == nil {
			tpl.Source = filepath.Join(dir, file)
			return tpl, nil
		}
		var notFound template.ErrTemplateNotFound
		if !errors.As(err, &notFound) {
			return Template{}, err
		}
	}
	if tpl, ok := templates[name]; ok {
		return tpl, nil
	}
	return Template{}, fmt.Errorf("template %q not found", name)
}

// List returns the built-in templates merged with those in the template
// directory, sorted by name. Invalid files in the directory are logged and
// skipped.
func List() []Template {
	all := make(map[string]Template, len(templates))
	for name, tpl := range templates {
		all[name] = tpl
	}
	if dir := currentDir(); dir != "" {
		paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
		if err != nil {
			slog.Warn("listing template directory", "dir", dir, "error", err)
		}
		for _, p := range paths {
			tpl, err := LoadFile(p)
			if err != nil {
				slog.Warn("skipping invalid template", "path", p, "error", err)
				continue
			}
			all[strings.TrimSuffix(filepath.Base(p), ".yaml")] = tpl
		}
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	slices.Sort(names)
	out := make([]Template, len(names))
	for i, name := range names {
		out[i] = all[name]
	}
	return out
}

func init() {
	entries, err := Files.ReadDir(".")
	if err != nil {
		panic(err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		content, err := Files.ReadFile(name)
		if err != nil {
			panic(err)
		}
		tpl, err := Decode(content)
		if err != nil {
			panic(fmt.Errorf("built-in template %q: %w", name, err))
		}
		templates[strings.TrimSuffix(name, ".yaml")] = tpl
	}
	if err := checkNames(templates, "built-in templates"); err != nil {
		panic(err)
	}
}

// checkNames requires every descriptor to be stored under its own name, so
// that Get("x") and the x.yaml override agree.
func checkNames(set map[string]Template, description string) error {
	return v.MapDict(set, func(file string, tpl Template) error {
		if tpl.Name != file {
			return fmt.Errorf("%s.yaml declares name %q", file, tpl.Name)
		}
		return nil
	}, description)
}
