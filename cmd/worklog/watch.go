package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/neurodesk/worklog/pkg/netcache"
)

func newWatchCmd() *cobra.Command {
	var (
		opts     renderOptions
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Render once, then re-render whenever the template, log or script changes",
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
			return r.watch(cmd.Context(), opts, cmd.OutOrStdout(), debounce)
		},
	}
	opts.addFlags(cmd.Flags())
	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "Wait this long after the last change before rendering")
	return cmd
}

// watchedInputs returns the local files a render reads. Remote sources are
// not watched.
func (r *renderer) watchedInputs(o renderOptions) []string {
	var files []string
	for _, ref := range []string{o.file, firstNonEmpty(o.log, r.cfg.LogFile), firstNonEmpty(o.script, r.cfg.Script)} {
		if ref == "" || netcache.IsRemote(ref) {
			continue
		}
		if abs, err := filepath.Abs(ref); err == nil {
			files = append(files, abs)
		}
	}
	return files
}

// watch renders once and then again after every burst of changes to the
// inputs, until ctx is cancelled. Render errors are logged and watching
// continues.
func (r *renderer) watch(ctx context.Context, o renderOptions, out io.Writer, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Directories are watched rather than files so that editors which
	// replace a file on save keep triggering events.
	files := map[string]bool{}
	dirs := map[string]bool{}
	for _, f := range r.watchedInputs(o) {
		files[f] = true
		dirs[filepath.Dir(f)] = true
	}
	if r.cfg.TemplateDir != "" {
		if abs, err := filepath.Abs(r.cfg.TemplateDir); err == nil {
			dirs[abs] = true
		}
	}
	for d := range dirs {
		if err := watcher.Add(d); err != nil {
			return fmt.Errorf("watching %s: %w", d, err)
		}
	}
	templateDir, _ := filepath.Abs(r.cfg.TemplateDir)

	relevant := func(ev fsnotify.Event) bool {
		if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
			return false
		}
		name, err := filepath.Abs(ev.Name)
		if err != nil {
			return false
		}
		if files[name] {
			return true
		}
		return r.cfg.TemplateDir != "" && filepath.Dir(name) == templateDir && filepath.Ext(name) == ".yaml"
	}

	render := func() {
		written, err := r.run(ctx, o, out)
		if err != nil {
			slog.Error("render failed", "error", err)
			return
		}
		slog.Debug("rendered", "files", written)
	}
	render()

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if relevant(ev) {
				slog.Debug("change detected", "file", ev.Name, "op", ev.Op.String())
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)
		case <-timer.C:
			render()
		}
	}
}
