package template

import (
	"errors"
	"io/fs"
	"path"
)

// Loader resolves template names to source text.
type Loader interface {
	Load(name string) (string, error)
}

// FSLoader loads templates from a file system. A name without an extension
// is also tried with Ext appended.
type FSLoader struct {
	FS  fs.FS
	Ext string
}

func (l FSLoader) Load(name string) (string, error) {
	candidates := []string{name}
	if l.Ext != "" && path.Ext(name) == "" {
		candidates = append(candidates, name+l.Ext)
	}
	for _, c := range candidates {
		b, err := fs.ReadFile(l.FS, c)
		if err == nil {
			return string(b), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", ErrTemplateNotFound{name}
}

type ErrTemplateNotFound struct{ Name string }

func (e ErrTemplateNotFound) Error() string { return "template not found: " + e.Name }
