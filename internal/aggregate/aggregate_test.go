package aggregate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/psplay/pkg/core"
)

func TestPreamble_Default(t *testing.T) {
	p := DefaultPreamble().String()

	assert.True(t, strings.HasPrefix(p, "module Main where\n\nimport Prelude\n"))
	assert.Contains(t, p, "import Control.Monad.Eff.Console (logShow)\n")
	assert.Contains(t, p, "import Test.QuickCheck.Gen (chooseInt)\n")
	assert.True(t, strings.HasSuffix(p, "undefined :: forall a. a\nundefined = unsafeCoerce unit"))
}

func TestPreamble_CustomModule(t *testing.T) {
	p := Preamble{Module: "Lesson", Imports: []string{"Prelude"}}.String()
	assert.True(t, strings.HasPrefix(p, "module Lesson where\n\nimport Prelude\n\n"))

	p = Preamble{}.String()
	assert.Equal(t, "module Main where\n\n"+undefinedDecl, p)
}

func TestAggregate_PageOrder(t *testing.T) {
	a := New(DefaultPreamble())
	panes := []core.Pane{
		{ID: "b", Content: "y = 2", Order: 1},
		{ID: "a", Content: "x = 1", Order: 0},
		{ID: "c", Content: "z = 3", Order: 2},
	}

	unit := a.Aggregate(panes, "")

	want := a.Preamble() + "\n\nx = 1\n\ny = 2\n\nz = 3\n"
	assert.Equal(t, want, unit.Source)
}

func TestAggregate_ReorderChangesUnit(t *testing.T) {
	a := New(DefaultPreamble())
	first := []core.Pane{
		{ID: "a", Content: "x = 1", Order: 0},
		{ID: "b", Content: "y = 2", Order: 1},
	}
	swapped := []core.Pane{
		{ID: "a", Content: "x = 1", Order: 1},
		{ID: "b", Content: "y = 2", Order: 0},
	}

	u1 := a.Aggregate(first, "")
	u2 := a.Aggregate(swapped, "")
	assert.NotEqual(t, u1.Source, u2.Source)

	// Deterministic across calls.
	assert.Equal(t, u1, a.Aggregate(first, ""))
	assert.Equal(t, u2, a.Aggregate(swapped, ""))
}

func TestAggregate_ExactlyOneBlankLine(t *testing.T) {
	tests := []struct {
		name     string
		preamble Preamble
		panes    []core.Pane
		extra    string
		wantBody string
	}{
		{
			name:     "trailing newlines and empty panes",
			preamble: Preamble{Module: "Main"},
			panes: []core.Pane{
				{ID: "a", Content: "x = 1\n\n\n", Order: 0},
				{ID: "b", Content: "y = 2\r\n", Order: 1},
				{ID: "empty", Content: "\n\n", Order: 2},
				{ID: "c", Content: "z = 3", Order: 3},
			},
			wantBody: "\n\nx = 1\n\ny = 2\n\nz = 3\n",
		},
		{
			name:     "leading blank lines",
			preamble: Preamble{Module: "Main"},
			panes: []core.Pane{
				{ID: "a", Content: "\n\nx = 1", Order: 0},
				{ID: "b", Content: "  \r\n\ny = 2", Order: 1},
			},
			extra:    "\n\nmain = logShow x\n",
			wantBody: "\n\nx = 1\n\ny = 2\n\nmain = logShow x\n",
		},
		{
			name:     "leading indentation kept",
			preamble: DefaultPreamble(),
			panes: []core.Pane{
				{ID: "a", Content: "\n  where x = 1\n", Order: 0},
				{ID: "b", Content: "   \t  ", Order: 1},
			},
			wantBody: "\n\n  where x = 1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.preamble)

			unit := a.Aggregate(tt.panes, tt.extra)

			assert.Equal(t, tt.wantBody, strings.TrimPrefix(unit.Source, a.Preamble()))
			assert.NotContains(t, unit.Source, "\n\n\n")
		})
	}
}

func TestAggregate_ExtraStatement(t *testing.T) {
	a := New(DefaultPreamble())
	panes := []core.Pane{{ID: "p", Content: "x = 1"}}

	unit := a.Aggregate(panes, "main = logShow x")

	require.True(t, strings.HasSuffix(unit.Source, "x = 1\n\nmain = logShow x\n"))
}

func TestAggregate_NoPanes(t *testing.T) {
	a := New(DefaultPreamble())
	unit := a.Aggregate(nil, "")
	assert.Equal(t, a.Preamble()+"\n", unit.Source)
}

func TestAggregate_DoesNotValidate(t *testing.T) {
	a := New(DefaultPreamble())
	unit := a.Aggregate([]core.Pane{{ID: "bad", Content: "x = = ("}}, "")
	assert.Contains(t, unit.Source, "x = = (")
}

func TestExpression(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{name: "simple", expr: "x", want: "main = logShow $ x"},
		{name: "trimmed", expr: "  plusFold 1 2 \n", want: "main = logShow $ plusFold 1 2"},
		{name: "empty", expr: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expression(tt.expr))
		})
	}
}
