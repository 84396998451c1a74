package adapter

import (
	"context"
	"fmt"
	"os"
	"sync"

	m "synthtest.dev/pkg/synthtest/internal/model"
)

// TemplateSource supplies the instruction template prepended to every prompt.
type TemplateSource interface {
	Instructions(ctx context.Context) (string, error)
}

// FileTemplateSource loads the template file at most once per process. Later
// calls, including concurrent ones, reuse the first result or error.
type FileTemplateSource struct {
	path m.Path
	load func() (string, error)
}

// NewFileTemplateSource creates a lazily loaded template source for path.
func NewFileTemplateSource(path m.Path) *FileTemplateSource {
	return &FileTemplateSource{
		path: path,
		load: sync.OnceValues(func() (string, error) {
			// #nosec G304 - template path comes from configuration
			data, err := os.ReadFile(string(path))
			if err != nil {
				return "", fmt.Errorf("read instructions %s: %w", path, err)
			}

			return string(data), nil
		}),
	}
}

// Instructions returns the cached template text.
func (s *FileTemplateSource) Instructions(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return s.load()
}

// StaticTemplateSource serves a fixed template.
type StaticTemplateSource string

// Instructions implements TemplateSource.
func (s StaticTemplateSource) Instructions(context.Context) (string, error) {
	return string(s), nil
}
