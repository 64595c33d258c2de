package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/psplay/pkg/core"
)

func TestSortPanes_StableByOrder(t *testing.T) {
	panes := []core.Pane{
		{ID: "c", Order: 2},
		{ID: "a", Order: 1},
		{ID: "b", Order: 1},
		{ID: "z", Order: 0},
	}

	sorted := core.SortPanes(panes)

	ids := make([]string, 0, len(sorted))
	for _, p := range sorted {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"z", "a", "b", "c"}, ids)
	assert.Equal(t, "c", panes[0].ID, "input must not be reordered")
}

func TestWithContents(t *testing.T) {
	panes := []core.Pane{
		{ID: "a", Content: "x = 1"},
		{ID: "b", Content: "y = 2"},
	}

	out := core.WithContents(panes, map[string]string{"b": "y = 3", "missing": "ignored"})

	require.Len(t, out, 2)
	assert.Equal(t, "x = 1", out[0].Content)
	assert.Equal(t, "y = 3", out[1].Content)
	assert.Equal(t, "y = 2", panes[1].Content, "input must not be modified")
}

func TestPaneKind_Valid(t *testing.T) {
	tests := []struct {
		kind core.PaneKind
		want bool
	}{
		{core.PaneBasic, true},
		{core.PaneTestable, true},
		{core.PaneREPL, true},
		{"", false},
		{"editor", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Valid())
		})
	}
}

func TestProperty_Validate(t *testing.T) {
	nat := core.NatGenerator()

	tests := []struct {
		name    string
		prop    core.Property
		wantErr string
	}{
		{name: "valid", prop: core.Property{ID: "p", Predicate: "f", Generator: nat}},
		{name: "missing id", prop: core.Property{Predicate: "f", Generator: nat}, wantErr: "property id is required"},
		{name: "missing predicate", prop: core.Property{ID: "p", Generator: nat}, wantErr: "predicate is required"},
		{name: "negative attempts", prop: core.Property{ID: "p", Predicate: "f", Generator: nat, Attempts: -1}, wantErr: "attempts must not be negative"},
		{
			name:    "inverted bounds",
			prop:    core.Property{ID: "p", Predicate: "f", Generator: core.Generator{Name: "g", Min: 5, Max: 1}},
			wantErr: `generator "g": max 1 is below min 5`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.prop.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProperty_EffectiveAttempts(t *testing.T) {
	assert.Equal(t, core.DefaultAttempts, core.Property{}.EffectiveAttempts())
	assert.Equal(t, 7, core.Property{Attempts: 7}.EffectiveAttempts())
}

func TestNatGenerator(t *testing.T) {
	g := core.NatGenerator()
	assert.Equal(t, core.Generator{Name: "nat", Min: 0, Max: 500, Via: "fromInt"}, g)
	assert.NoError(t, g.Validate())
}

func TestPosition_String(t *testing.T) {
	assert.Equal(t, "3:14", core.Position{StartLine: 3, StartColumn: 14, EndLine: 3, EndColumn: 20}.String())
}
