package email

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/memcrypt/console/pkg/observability"
)

const (
	templateExt  = ".html"
	subjectsFile = "subjects.yaml"
)

//go:embed templates/*.html templates/subjects.yaml
var defaultTemplates embed.FS

// ErrTemplateNotFound is returned for an unknown template name
var ErrTemplateNotFound = errors.New("template not found")

// TemplateStore holds email templates keyed by name. Templates come from the
// embedded defaults, overlaid by a directory when one is configured; the
// directory can be watched so edits apply without a restart.
type TemplateStore struct {
	dir    string
	logger *observability.Logger

	mu        sync.RWMutex
	templates map[string]string
	subjects  map[string]string
}

// NewTemplateStore loads the embedded templates and, if dir is non-empty,
// every "<name>.html" and subjects.yaml found in dir.
func NewTemplateStore(dir string, logger *observability.Logger) (*TemplateStore, error) {
	if logger == nil {
		logger = observability.NewLogger(observability.ErrorLevel, io.Discard)
	}
	s := &TemplateStore{
		dir:    dir,
		logger: logger.WithField("component", "email_templates"),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload rebuilds the template set from the embedded defaults and the directory
func (s *TemplateStore) Reload() error {
	sub, err := fs.Sub(defaultTemplates, "templates")
	if err != nil {
		return fmt.Errorf("open embedded templates: %w", err)
	}

	templates := map[string]string{}
	subjects := map[string]string{}
	if err := loadTemplates(sub, templates, subjects); err != nil {
		return fmt.Errorf("load embedded templates: %w", err)
	}

	if s.dir != "" {
		if err := loadTemplates(os.DirFS(s.dir), templates, subjects); err != nil {
			return fmt.Errorf("load templates from %s: %w", s.dir, err)
		}
	}

	s.mu.Lock()
	s.templates = templates
	s.subjects = subjects
	s.mu.Unlock()

	s.logger.WithFields(map[string]interface{}{
		"dir":       s.dir,
		"templates": len(templates),
	}).Debug("Email templates loaded")
	return nil
}

func loadTemplates(fsys fs.FS, templates, subjects map[string]string) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		switch {
		case name == subjectsFile:
			data, err := fs.ReadFile(fsys, name)
			if err != nil {
				return err
			}
			parsed := map[string]string{}
			if err := yaml.Unmarshal(data, &parsed); err != nil {
				return fmt.Errorf("parse %s: %w", subjectsFile, err)
			}
			for k, v := range parsed {
				subjects[k] = v
			}

		case path.Ext(name) == templateExt:
			data, err := fs.ReadFile(fsys, name)
			if err != nil {
				return err
			}
			templates[strings.TrimSuffix(name, templateExt)] = string(data)
		}
	}
	return nil
}

// Get returns the raw template body
func (s *TemplateStore) Get(name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tmpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return tmpl, nil
}

// Render renders the named template with data
func (s *TemplateStore) Render(name string, data map[string]string) (string, error) {
	tmpl, err := s.Get(name)
	if err != nil {
		return "", err
	}
	return Render(tmpl, data), nil
}

// Subject returns the default subject of a template rendered with data,
// or an empty string when none is configured.
func (s *TemplateStore) Subject(name string, data map[string]string) string {
	s.mu.RLock()
	subject := s.subjects[name]
	s.mu.RUnlock()
	if subject == "" {
		return ""
	}
	// Subjects are plain text, not HTML
	return placeholder.ReplaceAllStringFunc(subject, func(match string) string {
		if value, ok := data[placeholder.FindStringSubmatch(match)[1]]; ok {
			return value
		}
		return match
	})
}

// Names lists the loaded template names
func (s *TemplateStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	return names
}

// Watch reloads the store whenever a template or the subject manifest in the
// directory changes. It returns once the watcher is running; watching stops
// when ctx is done. Without a directory it is a no-op.
func (s *TemplateStore) Watch(ctx context.Context) error {
	if s.dir == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create template watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isTemplateFile(event.Name) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if err := s.Reload(); err != nil {
					// Keep serving the previous set
					s.logger.WithError(err).WithField("file", event.Name).Error("Failed to reload email templates")
					continue
				}
				s.logger.WithField("file", event.Name).Info("Email templates reloaded")

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.WithError(err).Warn("Template watcher error")
			}
		}
	}()

	return nil
}

func isTemplateFile(name string) bool {
	base := filepath.Base(name)
	return base == subjectsFile || filepath.Ext(base) == templateExt
}
