package feedback

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/psplay/pkg/core"
)

func TestBoard_Lifecycle(t *testing.T) {
	b := NewBoard()
	assert.Equal(t, Idle, b.State("pane").Phase)

	tk := b.Begin("pane")
	assert.Equal(t, Pending, b.State("pane").Phase)
	assert.Equal(t, uint64(1), tk.Seq)

	st, ok := b.Succeed(tk, core.Output{Lines: []string{"1"}})
	require.True(t, ok)
	assert.Equal(t, Succeeded, st.Phase)
	assert.Equal(t, core.Output{Lines: []string{"1"}}, b.State("pane").Outcome)

	_, ok = b.Fail(tk, KindRuntime, "late")
	assert.False(t, ok, "settled ticket must not settle twice")
	assert.Equal(t, Succeeded, b.State("pane").Phase)
}

func TestBoard_BeginClearsPreviousResult(t *testing.T) {
	b := NewBoard()
	tk := b.Begin("pane")
	_, ok := b.Fail(tk, KindDiagnostic, "Unknown value y")
	require.True(t, ok)

	b.Begin("pane")
	st := b.State("pane")
	assert.Equal(t, Pending, st.Phase)
	assert.Empty(t, st.Message)
	assert.Equal(t, View{}, Render(st))
}

func TestBoard_LatestRequestWins(t *testing.T) {
	b := NewBoard()
	first := b.Begin("pane")
	second := b.Begin("pane")

	_, ok := b.Succeed(second, core.Output{Lines: []string{"b"}})
	require.True(t, ok)

	st, ok := b.Succeed(first, core.Output{Lines: []string{"a"}})
	assert.False(t, ok)
	assert.Equal(t, core.Output{Lines: []string{"b"}}, st.Outcome)
	assert.False(t, b.Current(first))
	assert.True(t, b.Current(second))
}

func TestBoard_StaleResponseBeforeLatest(t *testing.T) {
	b := NewBoard()
	first := b.Begin("pane")
	second := b.Begin("pane")

	_, ok := b.Fail(first, KindTransport, "timeout")
	assert.False(t, ok)
	assert.Equal(t, Pending, b.State("pane").Phase)

	_, ok = b.Fail(second, KindDiagnostic, "bad")
	assert.True(t, ok)
	assert.Equal(t, KindDiagnostic, b.State("pane").Kind)
}

func TestBoard_SucceedClassifiesFaults(t *testing.T) {
	tests := []struct {
		name    string
		outcome core.ExecutionOutcome
		phase   Phase
		kind    Kind
		message string
	}{
		{"output", core.Output{Lines: []string{"1"}}, Succeeded, "", ""},
		{"runtime error", core.RuntimeError{Message: "Error: boom"}, Failed, KindRuntime, "Error: boom"},
		{"passed test", core.TestResult{Passed: true, Attempts: 100}, Succeeded, "", ""},
		{
			"failed test",
			core.TestResult{Attempts: 3, Lines: []string{"Test 3 failed:", "Failed: Test returned false"}},
			Failed, KindCounterexample, "Test 3 failed:\nFailed: Test returned false",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBoard()
			st, ok := b.Succeed(b.Begin("id"), tt.outcome)
			require.True(t, ok)
			assert.Equal(t, tt.phase, st.Phase)
			assert.Equal(t, tt.kind, st.Kind)
			assert.Equal(t, tt.message, st.Message)
		})
	}
}

func TestBoard_CancelReturnsToIdle(t *testing.T) {
	b := NewBoard()
	tk := b.Begin("prop")
	st, ok := b.Cancel(tk)
	require.True(t, ok)
	assert.Equal(t, Idle, st.Phase)

	_, ok = b.Cancel(tk)
	assert.False(t, ok)
}

func TestBoard_IdentifiersAreIndependent(t *testing.T) {
	b := NewBoard()
	a := b.Begin("a")
	c := b.Begin("c")

	_, ok := b.Fail(a, KindRuntime, "x")
	require.True(t, ok)
	assert.Equal(t, Pending, b.State("c").Phase)

	_, ok = b.Succeed(c, core.Output{})
	require.True(t, ok)
	assert.Len(t, b.Snapshot(), 2)
}

func TestBoard_ConcurrentBegins(t *testing.T) {
	b := NewBoard()
	var wg sync.WaitGroup
	tickets := make(chan Ticket, 50)
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tickets <- b.Begin(fmt.Sprintf("id-%d", i%5))
		}()
	}
	wg.Wait()
	close(tickets)

	applied := 0
	for tk := range tickets {
		if _, ok := b.Succeed(tk, core.Output{}); ok {
			applied++
		}
	}
	assert.Equal(t, 5, applied, "only the latest ticket per identifier applies")
}

func TestRender(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  View
	}{
		{"idle", State{}, View{}},
		{"pending", State{Phase: Pending}, View{}},
		{"output", State{Phase: Succeeded, Outcome: core.Output{Lines: []string{"1", "2"}}},
			View{Results: []string{"1", "2"}, OK: true}},
		{"passed property", State{Phase: Succeeded, Outcome: core.TestResult{Passed: true, Lines: []string{"100/100 test(s) passed."}}},
			View{Results: []string{"100/100 test(s) passed."}, OK: true}},
		{"failed", State{Phase: Failed, Kind: KindDiagnostic, Message: "Unknown value y"},
			View{Error: "Unknown value y", NOK: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.state))
		})
	}
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "unknown", Phase(9).String())
}
