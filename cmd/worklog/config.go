package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/neurodesk/worklog/pkg/netcache"
	"github.com/neurodesk/worklog/pkg/templates"
	v "github.com/neurodesk/worklog/pkg/validator"
)

const defaultConfigFile = "worklog.yaml"

type worklogConfig struct {
	TemplateDir      string `yaml:"template_dir,omitempty"`
	LogFile          string `yaml:"log_file,omitempty"`
	Script           string `yaml:"script,omitempty"`
	Timezone         string `yaml:"timezone,omitempty"`
	Locale           string `yaml:"locale,omitempty"`
	MaxTemplateBytes int64  `yaml:"max_template_bytes,omitempty"`
	MaxScriptSteps   uint64 `yaml:"max_script_steps,omitempty"`
	OutputDir        string `yaml:"output_dir,omitempty"`
	// Templates are rendered when neither --template nor --file is given.
	Templates []string `yaml:"templates,omitempty"`
	CacheDir         string `yaml:"cache_dir,omitempty"`
}

func defaultConfig() worklogConfig {
	return worklogConfig{
		MaxTemplateBytes: 1 << 20,
		MaxScriptSteps:   10_000_000,
	}
}

func (c *worklogConfig) loadConfig(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("decoding config file: %w", err)
	}
	return nil
}

func (c worklogConfig) Validate() error {
	_, locErr := c.location()
	_, langErr := c.language()
	return v.All(
		v.Positive(c.MaxTemplateBytes, "max_template_bytes"),
		v.HasNoDirectives(c.OutputDir, "output_dir"),
		locErr,
		langErr,
	)
}

func (c worklogConfig) location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

func (c worklogConfig) language() (language.Tag, error) {
	if c.Locale == "" {
		return language.Und, nil
	}
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.Und, fmt.Errorf("locale: %w", err)
	}
	return tag, nil
}

func (c worklogConfig) cache() *netcache.Cache {
	dir := c.CacheDir
	if dir == "" {
		dir = netcache.DefaultDir()
	}
	return netcache.New(dir)
}

// configPath picks the --config flag, then $WORKLOG_CONFIG, then the
// default file. Only the default file may be missing.
func configPath() (string, bool) {
	if rootConfigPath != "" {
		return rootConfigPath, true
	}
	if p := os.Getenv("WORKLOG_CONFIG"); p != "" {
		return p, true
	}
	return defaultConfigFile, false
}

// loadWorklogConfig loads and validates the configuration and applies the
// template directory.
func loadWorklogConfig() (worklogConfig, error) {
	cfg := defaultConfig()
	path, explicit := configPath()
	if err := cfg.loadConfig(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("loading config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	templates.SetTemplateDir(cfg.TemplateDir)
	if err := cfg.validateTemplates(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// validateTemplates checks the default template names against the built-in
// templates and those in template_dir.
func (c worklogConfig) validateTemplates() error {
	var known []string
	for _, tpl := range templates.List() {
		known = append(known, tpl.Name)
	}
	return v.All(
		v.SliceHasElements(c.Templates, known, "templates"),
		v.NoDuplicates(c.Templates, "templates"),
	)
}
