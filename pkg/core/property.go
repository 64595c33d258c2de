package core

import (
	"errors"
	"fmt"
)

// DefaultAttempts is the number of samples drawn by a property check when
// none is configured.
const DefaultAttempts = 100

// Generator draws bounded integers, optionally mapped into the domain type
// under test through an exported conversion function.
type Generator struct {
	Name string `yaml:"-"`
	Min  int    `yaml:"min"`
	Max  int    `yaml:"max"`
	// Via names the exported function applied to each drawn integer.
	// Empty means the integer itself is passed to the predicate.
	Via string `yaml:"via"`
}

// Validate checks the generator bounds.
func (g Generator) Validate() error {
	if g.Max < g.Min {
		return fmt.Errorf("generator %q: max %d is below min %d", g.Name, g.Max, g.Min)
	}
	return nil
}

// NatGenerator returns the generator used by the folds lessons: integers in
// [0, 500] mapped through fromInt.
func NatGenerator() Generator {
	return Generator{Name: "nat", Min: 0, Max: 500, Via: "fromInt"}
}

// Property is a named boolean predicate checked against a generator.
type Property struct {
	// ID is the feedback identifier the result is reported under.
	ID string
	// Predicate is the exported function under test.
	Predicate string
	Generator Generator
	// Attempts is the number of samples. Zero means DefaultAttempts.
	Attempts int
}

// Validate checks that the property is runnable.
func (p Property) Validate() error {
	if p.ID == "" {
		return errors.New("property id is required")
	}
	if p.Predicate == "" {
		return fmt.Errorf("property %q: predicate is required", p.ID)
	}
	if p.Attempts < 0 {
		return fmt.Errorf("property %q: attempts must not be negative", p.ID)
	}
	return p.Generator.Validate()
}

// EffectiveAttempts returns Attempts or DefaultAttempts when unset.
func (p Property) EffectiveAttempts() int {
	if p.Attempts <= 0 {
		return DefaultAttempts
	}
	return p.Attempts
}
