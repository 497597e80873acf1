package workflow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContext(t *testing.T) {
	t.Run("keeps caller request id", func(t *testing.T) {
		pc := NewContext("req-1", "payload")
		assert.Equal(t, "req-1", pc.RequestID())
		assert.Equal(t, "payload", pc.Input())
		assert.False(t, pc.CreatedAt().IsZero())
		assert.Equal(t, 0, pc.ResultCount())
	})

	t.Run("generates request id when empty", func(t *testing.T) {
		a := NewContext("", nil)
		b := NewContext("", nil)
		assert.NotEmpty(t, a.RequestID())
		assert.NotEqual(t, a.RequestID(), b.RequestID())
	})
}

func TestContext_SlotsAndPlan(t *testing.T) {
	pc := NewContext("req", nil)

	_, ok := pc.Slot("parsed_files")
	assert.False(t, ok)

	pc.SetSlot("parsed_files", []string{"a.py"})
	v, ok := pc.Slot("parsed_files")
	require.True(t, ok)
	assert.Equal(t, []string{"a.py"}, v)

	pc.SetPlan("mode", "hybrid")
	mode, ok := pc.Plan("mode")
	require.True(t, ok)
	assert.Equal(t, "hybrid", mode)

	snapshot := pc.PlanSnapshot()
	snapshot["mode"] = "changed"
	mode, _ = pc.Plan("mode")
	assert.Equal(t, "hybrid", mode, "snapshot must be a copy")
}

func TestContext_SetResultOverwrites(t *testing.T) {
	pc := NewContext("req", nil)

	pc.SetResult("a", NewFailure("first"))
	pc.SetResult("a", NewSuccess(1))

	assert.Equal(t, 1, pc.ResultCount())
	r, ok := pc.Result("a")
	require.True(t, ok)
	assert.True(t, r.Success)
	assert.Equal(t, 1, r.Data)
}

func TestContext_SetResultNormalizes(t *testing.T) {
	pc := NewContext("req", nil)
	pc.SetResult("a", &Result{Success: true})

	r, _ := pc.Result("a")
	assert.NotNil(t, r.Errors)
	assert.NotNil(t, r.Warnings)
	assert.NotNil(t, r.Metadata)
}

func TestContext_ResultsIsCopy(t *testing.T) {
	pc := NewContext("req", nil)
	pc.SetResult("a", NewSuccess(nil))

	results := pc.Results()
	delete(results, "a")
	assert.Equal(t, 1, pc.ResultCount())
}

func TestContext_ErrorAndWarningAggregation(t *testing.T) {
	pc := NewContext("req", nil)
	pc.SetResult("zeta", NewFailure("boom").WithWarnings("careful"))
	pc.SetResult("alpha", NewSuccess(nil).WithWarnings("w1", "w2"))

	assert.True(t, pc.HasErrors())
	assert.Equal(t, []string{"[zeta] boom"}, pc.AllErrors())
	assert.Equal(t, []string{"[alpha] w1", "[alpha] w2", "[zeta] careful"}, pc.AllWarnings())

	metrics := pc.AgentMetrics()
	require.Len(t, metrics, 2)
	assert.Equal(t, AgentRunMetrics{Success: false, ErrorCount: 1, WarningCount: 1}, metrics["zeta"])
	assert.Equal(t, AgentRunMetrics{Success: true, ErrorCount: 0, WarningCount: 2}, metrics["alpha"])
}

func TestContext_HasErrorsEmpty(t *testing.T) {
	pc := NewContext("req", nil)
	assert.False(t, pc.HasErrors())
	assert.Empty(t, pc.AllErrors())
	assert.Empty(t, pc.AllWarnings())
}

func TestContext_TotalExecutionTime(t *testing.T) {
	pc := NewContext("req", nil)
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, pc.TotalExecutionTime(), 5*time.Millisecond)
}

func TestContext_ConcurrentOwnedWrites(t *testing.T) {
	pc := NewContext("req", nil)
	const writers = 50

	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("agent-%d", i)
			pc.SetSlot(name, i)
			pc.SetResult(name, NewSuccess(i))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, writers, pc.ResultCount())
}

func TestResult_Helpers(t *testing.T) {
	r := NewFailure("bad").
		WithMetadata(MetaStage, StageParsing).
		WithMetadata(MetaCritical, true)

	assert.False(t, r.Success)
	assert.Equal(t, StageParsing, r.Stage())
	assert.True(t, r.IsCriticalFlagged())

	plain := &Result{}
	assert.Equal(t, "", plain.Stage())
	assert.False(t, plain.IsCriticalFlagged())

	wrongType := NewFailure().WithMetadata(MetaCritical, "yes")
	assert.False(t, wrongType.IsCriticalFlagged())
}

// stubWorkflow records its invocation and optionally halts the pipeline.
type stubWorkflow struct {
	name  string
	halt  bool
	calls *[]string
}

func (s *stubWorkflow) Name() string { return s.name }

func (s *stubWorkflow) Execute(ctx context.Context, pc *Context) *Context {
	*s.calls = append(*s.calls, s.name)
	pc.SetResult(s.name, NewSuccess(nil))
	if s.halt {
		pc.SetPlan(PlanHaltedBy, s.name)
	}
	return pc
}

func TestCompose(t *testing.T) {
	t.Run("runs all in order", func(t *testing.T) {
		var calls []string
		w := Compose("all",
			&stubWorkflow{name: "first", calls: &calls},
			&stubWorkflow{name: "second", calls: &calls},
		)
		pc := NewContext("req", nil)

		out := w.Execute(context.Background(), pc)

		assert.Same(t, pc, out)
		assert.Equal(t, "all", w.Name())
		assert.Equal(t, []string{"first", "second"}, calls)
		_, halted := Halted(pc)
		assert.False(t, halted)
	})

	t.Run("stops after halt", func(t *testing.T) {
		var calls []string
		w := Compose("halting",
			&stubWorkflow{name: "first", halt: true, calls: &calls},
			&stubWorkflow{name: "second", calls: &calls},
		)
		pc := NewContext("req", nil)

		w.Execute(context.Background(), pc)

		assert.Equal(t, []string{"first"}, calls)
		by, halted := Halted(pc)
		assert.True(t, halted)
		assert.Equal(t, "first", by)
	})
}
