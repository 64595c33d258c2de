// Package lesson loads lesson definitions: the panes of a page, the
// generators its properties draw from and the properties themselves.
package lesson

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/psplay/pkg/core"
)

// Sentinel errors.
var (
	ErrInvalid  = errors.New("invalid lesson")
	ErrNotFound = errors.New("lesson not found")
)

// Lesson is one tutorial page.
type Lesson struct {
	ID    string
	Title string
	// Panes are in page order.
	Panes      []core.Pane
	Generators map[string]core.Generator
	Properties []Property
	// Path is the file the lesson was loaded from, if any.
	Path string
}

// Property is a core.Property attached to a pane. An empty Pane attaches it
// to every evaluation of the lesson.
type Property struct {
	core.Property
	Pane string
}

type fileLesson struct {
	ID         string                    `yaml:"id"`
	Title      string                    `yaml:"title"`
	Panes      []filePane                `yaml:"panes"`
	Generators map[string]core.Generator `yaml:"generators"`
	Properties []fileProperty            `yaml:"properties"`
}

type filePane struct {
	ID     string `yaml:"id"`
	Kind   string `yaml:"kind"`
	Hidden bool   `yaml:"hidden"`
	Source string `yaml:"source"`
}

type fileProperty struct {
	ID        string `yaml:"id"`
	Pane      string `yaml:"pane"`
	Predicate string `yaml:"predicate"`
	Generator string `yaml:"generator"`
	Attempts  int    `yaml:"attempts"`
}

// Load reads and validates the lesson file at path.
func Load(path string) (*Lesson, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lesson: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	l, err := Parse(data, base)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	l.Path = path
	return l, nil
}

// Parse decodes a lesson. fallbackID is used when the document has no id.
func Parse(data []byte, fallbackID string) (*Lesson, error) {
	var f fileLesson
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if f.ID == "" {
		f.ID = fallbackID
	}
	if f.Title == "" {
		f.Title = Title(f.ID)
	}

	l := &Lesson{
		ID:         f.ID,
		Title:      f.Title,
		Generators: make(map[string]core.Generator, len(f.Generators)),
	}
	for name, g := range f.Generators {
		g.Name = name
		l.Generators[name] = g
	}
	for i, p := range f.Panes {
		kind := core.PaneKind(p.Kind)
		if kind == "" {
			kind = core.PaneBasic
		}
		l.Panes = append(l.Panes, core.Pane{
			ID:      p.ID,
			Content: p.Source,
			Order:   i,
			Kind:    kind,
			Hidden:  p.Hidden,
		})
	}
	for _, p := range f.Properties {
		gen, err := l.generator(p.Generator)
		if err != nil {
			return nil, fmt.Errorf("%w: property %q: %v", ErrInvalid, p.ID, err)
		}
		l.Properties = append(l.Properties, Property{
			Property: core.Property{
				ID:        p.ID,
				Predicate: p.Predicate,
				Generator: gen,
				Attempts:  p.Attempts,
			},
			Pane: p.Pane,
		})
	}

	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// generator resolves a generator name. An empty name selects the lesson's
// "nat" generator or, failing that, core.NatGenerator.
func (l *Lesson) generator(name string) (core.Generator, error) {
	if name == "" {
		if g, ok := l.Generators["nat"]; ok {
			return g, nil
		}
		return core.NatGenerator(), nil
	}
	g, ok := l.Generators[name]
	if !ok {
		return core.Generator{}, fmt.Errorf("unknown generator %q", name)
	}
	return g, nil
}

// Validate checks identifiers and references. Pane and property
// identifiers share one namespace because both name feedback regions.
func (l *Lesson) Validate() error {
	var errs []error
	if l.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if len(l.Panes) == 0 {
		errs = append(errs, errors.New("at least one pane is required"))
	}

	seen := make(map[string]bool)
	for _, p := range l.Panes {
		switch {
		case p.ID == "":
			errs = append(errs, errors.New("pane id is required"))
		case seen[p.ID]:
			errs = append(errs, fmt.Errorf("duplicate identifier %q", p.ID))
		}
		seen[p.ID] = true
		if !p.Kind.Valid() {
			errs = append(errs, fmt.Errorf("pane %q: unknown kind %q", p.ID, p.Kind))
		}
	}
	for _, g := range l.Generators {
		if err := g.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, p := range l.Properties {
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if p.Pane != "" {
			if _, ok := l.Pane(p.Pane); !ok {
				errs = append(errs, fmt.Errorf("property %q: unknown pane %q", p.ID, p.Pane))
			}
		}
		// a property may report on its own pane
		if seen[p.ID] && p.ID != p.Pane {
			errs = append(errs, fmt.Errorf("duplicate identifier %q", p.ID))
		}
		seen[p.ID] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w %q: %w", ErrInvalid, l.ID, errors.Join(errs...))
	}
	return nil
}

// Pane returns the pane with the given id.
func (l *Lesson) Pane(id string) (core.Pane, bool) {
	for _, p := range l.Panes {
		if p.ID == id {
			return p, true
		}
	}
	return core.Pane{}, false
}

// Visible returns the panes shown to the learner.
func (l *Lesson) Visible() []core.Pane {
	var out []core.Pane
	for _, p := range l.Panes {
		if !p.Hidden {
			out = append(out, p)
		}
	}
	return out
}

// PropertiesFor returns the properties checked when pane is evaluated:
// those attached to it and those attached to the whole lesson.
func (l *Lesson) PropertiesFor(pane string) []core.Property {
	var out []core.Property
	for _, p := range l.Properties {
		if p.Pane == "" || p.Pane == pane {
			out = append(out, p.Property)
		}
	}
	return out
}

// PropertiesOn returns the properties attached to pane only.
func (l *Lesson) PropertiesOn(pane string) []core.Property {
	var out []core.Property
	for _, p := range l.Properties {
		if p.Pane == pane {
			out = append(out, p.Property)
		}
	}
	return out
}

// Title turns an identifier such as "recursion-principles" into a display
// title.
func Title(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool { return r == '-' || r == '_' })
	return cases.Title(language.English).String(strings.Join(words, " "))
}
