package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/neurodesk/worklog/pkg/common"
	"github.com/neurodesk/worklog/pkg/formatter"
	"github.com/neurodesk/worklog/pkg/report"
	"github.com/neurodesk/worklog/pkg/starlark"
	"github.com/neurodesk/worklog/pkg/template"
	"github.com/neurodesk/worklog/pkg/templates"
	"github.com/neurodesk/worklog/pkg/value"
)

type renderOptions struct {
	templates []string
	file      string
	format    string
	log       string
	script    string
	from      string
	to        string
	title     string
	output    string
	strict    bool
}

func (o *renderOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&o.templates, "template", "t", nil, "Built-in or template_dir template name (repeatable, default templates from config or html)")
	fs.StringVarP(&o.file, "file", "f", "", "Template file or URL: a .yaml descriptor or raw template text")
	fs.StringVar(&o.format, "format", "", "Output format of a raw --file template (html, markdown, csv)")
	fs.StringVarP(&o.log, "log", "l", "", "Entry log file or URL (default log_file from config)")
	fs.StringVar(&o.script, "script", "", "Starlark enrichment script (default script from config)")
	fs.StringVar(&o.from, "from", "", "First day to include, e.g. 2024-03-04")
	fs.StringVar(&o.to, "to", "", "Last day to include")
	fs.StringVar(&o.title, "title", "Work log", "Report title")
	fs.StringVarP(&o.output, "output", "o", "", "Output file, directory for several templates, or - for stdout")
	fs.BoolVar(&o.strict, "strict", false, "Fail on template errors instead of rendering the error text")
}

type renderer struct {
	cfg    worklogConfig
	loc    *time.Location
	engine *template.Engine
	fetch  func(ctx context.Context, ref string) (string, error)
}

func newRenderer(cfg worklogConfig) (*renderer, error) {
	loc, err := cfg.location()
	if err != nil {
		return nil, err
	}
	lang, err := cfg.language()
	if err != nil {
		return nil, err
	}
	reg := formatter.New(formatter.Options{
		Location: loc,
		Language: lang,
		Markdown: formatter.Goldmark(),
	})
	return &renderer{
		cfg:    cfg,
		loc:    loc,
		engine: template.New(template.WithFormatters(reg), template.WithLogger(slog.Default())),
		fetch:  cfg.cache().Resolve,
	}, nil
}

// readSource reads a local or remote file, enforcing max_template_bytes.
func (r *renderer) readSource(ctx context.Context, ref string) ([]byte, error) {
	path, err := r.fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if st.Size() > r.cfg.MaxTemplateBytes {
		return nil, fmt.Errorf("%s is %d bytes, larger than max_template_bytes (%d)", ref, st.Size(), r.cfg.MaxTemplateBytes)
	}
	return os.ReadFile(path)
}

// loadFile loads a template from a file. YAML files are descriptors;
// anything else is raw template text whose format comes from format or
// the file extension.
func (r *renderer) loadFile(ctx context.Context, ref, format string) (templates.Template, error) {
	content, err := r.readSource(ctx, ref)
	if err != nil {
		return templates.Template{}, err
	}
	ext := strings.ToLower(filepath.Ext(ref))
	if ext == ".yaml" || ext == ".yml" {
		tpl, err := templates.Decode(content)
		if err != nil {
			return templates.Template{}, fmt.Errorf("%s: %w", ref, err)
		}
		tpl.Source = ref
		return tpl, nil
	}

	f := common.FormatHTML
	if format != "" {
		if f, err = common.ParseFormat(format); err != nil {
			return templates.Template{}, err
		}
	} else if parsed, err := common.ParseFormat(strings.TrimPrefix(ext, ".")); err == nil {
		f = parsed
	}
	return templates.Template{
		Name:   strings.TrimSuffix(filepath.Base(ref), filepath.Ext(ref)),
		Format: f,
		Body:   template.TemplateString(content),
		Source: ref,
	}, nil
}

func (r *renderer) selectTemplates(ctx context.Context, o renderOptions) ([]templates.Template, error) {
	var out []templates.Template
	if o.file != "" {
		tpl, err := r.loadFile(ctx, o.file, o.format)
		if err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	names := o.templates
	if len(names) == 0 && o.file == "" {
		names = r.cfg.Templates
	}
	if len(names) == 0 && o.file == "" {
		names = []string{"html"}
	}
	for _, name := range names {
		tpl, err := templates.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	return out, nil
}

func (r *renderer) parseDay(s, flag string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, ok := formatter.ParseTime(s, r.loc)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid --%s date %q", flag, s)
	}
	return t, nil
}

// context loads the entry log, shapes it and runs the enrichment script.
func (r *renderer) context(ctx context.Context, o renderOptions) (value.Dict, error) {
	logRef := firstNonEmpty(o.log, r.cfg.LogFile)
	if logRef == "" {
		return nil, fmt.Errorf("no entry log: pass --log or set log_file in the config")
	}
	logPath, err := r.fetch(ctx, logRef)
	if err != nil {
		return nil, err
	}
	entryLog, err := report.LoadFile(logPath, r.loc)
	if err != nil {
		return nil, err
	}
	from, err := r.parseDay(o.from, "from")
	if err != nil {
		return nil, err
	}
	to, err := r.parseDay(o.to, "to")
	if err != nil {
		return nil, err
	}
	data := report.Prepare(entryLog.Entries, report.Options{
		Title:    o.title,
		From:     from,
		To:       to,
		Location: r.loc,
		Meta:     entryLog.Meta,
	})
	slog.Debug("prepared report", "entries", len(entryLog.Entries), "log", logRef)

	scriptRef := firstNonEmpty(o.script, r.cfg.Script)
	if scriptRef == "" {
		return data, nil
	}
	src, err := r.readSource(ctx, scriptRef)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return starlark.Enrich(data, scriptRef, src,
		starlark.WithLogger(slog.Default()),
		starlark.WithMaxSteps(r.cfg.MaxScriptSteps),
	)
}

// outputs decides where each template's result goes. An empty path means
// the writer passed to run.
func (r *renderer) outputs(o renderOptions, tpls []templates.Template) ([]string, error) {
	paths := make([]string, len(tpls))
	switch {
	case o.output == "-":
		if len(tpls) > 1 {
			return nil, fmt.Errorf("cannot write %d templates to stdout, use --output DIR", len(tpls))
		}
		return paths, nil
	case o.output != "" && len(tpls) == 1:
		paths[0] = o.output
		return paths, nil
	}
	dir := firstNonEmpty(o.output, r.cfg.OutputDir)
	if dir == "" {
		if len(tpls) > 1 {
			return nil, fmt.Errorf("rendering %d templates needs --output DIR or output_dir in the config", len(tpls))
		}
		return paths, nil
	}
	for i, tpl := range tpls {
		paths[i] = filepath.Join(dir, tpl.Name+tpl.Format.Extension())
	}
	return paths, nil
}

// run renders the selected templates concurrently and returns the files
// written.
func (r *renderer) run(ctx context.Context, o renderOptions, stdout io.Writer) ([]string, error) {
	tpls, err := r.selectTemplates(ctx, o)
	if err != nil {
		return nil, err
	}
	paths, err := r.outputs(o, tpls)
	if err != nil {
		return nil, err
	}
	data, err := r.context(ctx, o)
	if err != nil {
		return nil, err
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for i, tpl := range tpls {
		g.Go(func() error {
			var out string
			if o.strict {
				var err error
				if out, err = tpl.Execute(r.engine, data); err != nil {
					return err
				}
			} else {
				out = tpl.Render(r.engine, data)
			}
			if paths[i] == "" {
				mu.Lock()
				defer mu.Unlock()
				_, err := io.WriteString(stdout, out)
				return err
			}
			if err := os.MkdirAll(filepath.Dir(paths[i]), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(paths[i], []byte(out), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", paths[i], err)
			}
			slog.Info("wrote report", "template", tpl.Name, "path", paths[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var written []string
	for _, p := range paths {
		if p != "" {
			written = append(written, p)
		}
	}
	return written, nil
}

func firstNonEmpty(values ...string) string {
	for _, s := range values {
		if s != "" {
			return s
		}
	}
	return ""
}

func newRenderCmd() *cobra.Command {
	var opts renderOptions
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render an entry log with one or more templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadWorklogConfig()
			if err != nil {
				return err
			}
			r, err := newRenderer(cfg)
			if err != nil {
				return err
			}
			_, err = r.run(cmd.Context(), opts, cmd.OutOrStdout())
			return err
		},
	}
	opts.addFlags(cmd.Flags())
	return cmd
}

var validateCmd = cobra.Command{
	Use:   "validate [path ...]",
	Short: "Check templates for syntax errors (all known templates when no path is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadWorklogConfig()
		if err != nil {
			return err
		}
		r, err := newRenderer(cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		failed := 0
		check := func(name string, err error) {
			if err != nil {
				failed++
				fmt.Fprintf(out, "FAIL %s: %v\n", name, err)
				return
			}
			fmt.Fprintf(out, "ok   %s\n", name)
		}
		if len(args) == 0 {
			for _, tpl := range templates.List() {
				check(tpl.Name, tpl.Validate())
			}
		}
		for _, ref := range args {
			tpl, err := r.loadFile(cmd.Context(), ref, "")
			if err == nil {
				err = tpl.Validate()
			}
			check(ref, err)
		}
		if failed > 0 {
			return fmt.Errorf("%d template(s) failed validation", failed)
		}
		return nil
	},
}

var templatesCmd = cobra.Command{
	Use:   "templates",
	Short: "List the built-in templates and those in template_dir",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadWorklogConfig(); err != nil {
			return err
		}
		tw := newTable(cmd.OutOrStdout())
		tw.row("NAME", "FORMAT", "SOURCE", "DESCRIPTION")
		for _, tpl := range templates.List() {
			tw.row(tpl.Name, string(tpl.Format), firstNonEmpty(tpl.Source, "built-in"), tpl.Description)
		}
		return tw.flush()
	},
}

var treeCmd = cobra.Command{
	Use:   "tree NAME|PATH",
	Short: "Print the parse tree of a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadWorklogConfig()
		if err != nil {
			return err
		}
		r, err := newRenderer(cfg)
		if err != nil {
			return err
		}
		tpl, err := templates.Get(args[0])
		if err != nil {
			if tpl, err = r.loadFile(cmd.Context(), args[0], ""); err != nil {
				return err
			}
		}
		doc, err := template.Compile(string(tpl.Body))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if paths, _ := cmd.Flags().GetBool("paths"); paths {
			for _, p := range template.Paths(doc) {
				fmt.Fprintln(out, p)
			}
			return nil
		}
		_, err = io.WriteString(out, template.Pretty(doc))
		return err
	},
}

type table struct{ w *tabwriter.Writer }

func newTable(out io.Writer) table {
	return table{tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)}
}

func (t table) row(cols ...string) {
	fmt.Fprintln(t.w, strings.Join(cols, "\t"))
}

func (t table) flush() error { return t.w.Flush() }
