package lesson

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// LoadDir loads every *.yaml and *.yml file in dir, sorted by lesson ID.
// Lesson IDs must be unique across files.
func LoadDir(dir string) ([]*Lesson, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read lessons directory: %w", err)
	}

	var (
		lessons []*Lesson
		errs    []error
		byID    = make(map[string]string)
	)
	for _, e := range entries {
		if e.IsDir() || !IsLessonFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		l, err := Load(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if prev, ok := byID[l.ID]; ok {
			errs = append(errs, fmt.Errorf("%w: lesson %q defined in %s and %s", ErrInvalid, l.ID, prev, path))
			continue
		}
		byID[l.ID] = path
		lessons = append(lessons, l)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	sort.Slice(lessons, func(i, j int) bool { return lessons[i].ID < lessons[j].ID })
	return lessons, nil
}

// IsLessonFile reports whether name looks like a lesson file.
func IsLessonFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// Catalog is a reloadable set of lessons. It is safe for concurrent use.
type Catalog struct {
	dir    string
	logger *slog.Logger

	mu      sync.RWMutex
	lessons []*Lesson
	byID    map[string]*Lesson
}

// NewCatalog loads the lessons in dir.
func NewCatalog(dir string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Catalog{dir: dir, logger: logger}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Dir returns the directory the catalog loads from.
func (c *Catalog) Dir() string { return c.dir }

// Reload re-reads the directory. On error the previous lessons are kept.
func (c *Catalog) Reload() error {
	lessons, err := LoadDir(c.dir)
	if err != nil {
		return err
	}
	byID := make(map[string]*Lesson, len(lessons))
	for _, l := range lessons {
		byID[l.ID] = l
	}

	c.mu.Lock()
	c.lessons = lessons
	c.byID = byID
	c.mu.Unlock()

	c.logger.Debug("lessons loaded", "dir", c.dir, "count", len(lessons))
	return nil
}

// Get returns the lesson with the given id.
func (c *Catalog) Get(id string) (*Lesson, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return l, nil
}

// List returns all lessons sorted by ID.
func (c *Catalog) List() []*Lesson {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Lesson, len(c.lessons))
	copy(out, c.lessons)
	return out
}
