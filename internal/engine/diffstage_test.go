package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/listq/internal/listop"
)

type stageReports struct {
	mu       sync.Mutex
	debug    []DebugEvent
	failures []FailureRecord
}

func newTestStage[T any](eq listop.Equivalence[T], pub Publisher[T]) (*diffStage[T], *stageReports) {
	reports := &stageReports{}
	r := &reporter{logger: quietLogger()}
	r.setDebugListener(func(d DebugEvent) {
		reports.mu.Lock()
		defer reports.mu.Unlock()
		reports.debug = append(reports.debug, d)
	}, nil)
	r.setFailureListener(func(f FailureRecord) {
		reports.mu.Lock()
		defer reports.mu.Unlock()
		reports.failures = append(reports.failures, f)
	})
	return &diffStage[T]{
		eq:     eq,
		pub:    pub,
		report: r,
		idle:   newIdleTracker(),
		logger: quietLogger(),
		depth:  func() int { return 0 },
	}, reports
}

func TestDiffStage_InlinePublishesEveryGeneration(t *testing.T) {
	rec := &recorder[string]{}
	s, _ := newTestStage(listop.Comparable[string](), Publisher[string](rec))

	s.request(Snapshot[string]{Items: []string{"a"}, Generation: 1}, DiffInline)
	s.request(Snapshot[string]{Items: []string{"a", "b"}, Generation: 2}, DiffInline)

	assert.Equal(t, []int64{1, 2}, rec.generations())
	assert.Equal(t, "[insert(1,1)]", rec.all()[1].Script.String())
}

func TestDiffStage_DiscardsResultSupersededDuringCompute(t *testing.T) {
	var block atomic.Bool
	gate := make(chan struct{})
	inCompute := make(chan struct{}, 1)

	same := func(a, b string) bool {
		if block.Load() {
			select {
			case inCompute <- struct{}{}:
			default:
			}
			<-gate
		}
		return a == b
	}
	rec := &recorder[string]{}
	s, reports := newTestStage(listop.Equivalence[string]{SameIdentity: same, SameContent: same}, Publisher[string](rec))

	s.request(Snapshot[string]{Items: []string{"a"}, Generation: 1}, DiffInline)
	block.Store(true)

	s.request(Snapshot[string]{Items: []string{"a", "b"}, Generation: 2}, DiffAsync)
	select {
	case <-inCompute:
	case <-time.After(5 * time.Second):
		t.Fatal("computation for generation 2 never started")
	}
	s.request(Snapshot[string]{Items: []string{"a", "b", "c"}, Generation: 3}, DiffAsync)
	close(gate)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.idle.wait(ctx))

	results := rec.all()
	require.Len(t, results, 2)
	assert.Equal(t, int64(3), results[1].Snapshot.Generation)
	assert.Equal(t, int64(1), results[1].Previous.Generation)
	assert.Equal(t, "[insert(1,2)]", results[1].Script.String())

	reports.mu.Lock()
	defer reports.mu.Unlock()
	require.Len(t, reports.debug, 1)
	assert.Equal(t, EventSuperseded, reports.debug[0].Kind)
	assert.Equal(t, int64(2), reports.debug[0].Generation)
	assert.Equal(t, "discarded after compute", reports.debug[0].Message)
}

func TestDiffStage_PanickingPredicatePublishesReset(t *testing.T) {
	same := func(a, b string) bool { panic("bad predicate") }
	rec := &recorder[string]{}
	s, reports := newTestStage(listop.Equivalence[string]{SameIdentity: same, SameContent: same}, Publisher[string](rec))

	s.request(Snapshot[string]{Items: []string{"a"}, Generation: 1}, DiffInline)
	s.request(Snapshot[string]{Items: []string{"a", "b"}, Generation: 2}, DiffInline)

	results := rec.all()
	require.Len(t, results, 2)
	assert.True(t, results[1].Reset)
	assert.True(t, results[1].Script.Empty())

	reports.mu.Lock()
	defer reports.mu.Unlock()
	require.Len(t, reports.failures, 1)
	assert.Equal(t, "Diff", reports.failures[0].Operation)
	assert.Equal(t, FailureException, reports.failures[0].Kind)
	assert.True(t, IsException(reports.failures[0].Err))
}

func TestDiffStage_GuardDropsStaleGenerations(t *testing.T) {
	rec := &recorder[string]{}
	s, _ := newTestStage(listop.Comparable[string](), Publisher[string](rec))

	s.deliver(Result[string]{Snapshot: Snapshot[string]{Generation: 2}})
	s.deliver(Result[string]{Snapshot: Snapshot[string]{Generation: 2}})
	s.deliver(Result[string]{Snapshot: Snapshot[string]{Generation: 1}})
	s.deliver(Result[string]{Snapshot: Snapshot[string]{Generation: 3}})

	assert.Equal(t, []int64{2, 3}, rec.generations())
}

func TestDiffStage_PublisherPanicIsReported(t *testing.T) {
	pub := PublisherFunc[string](func(Result[string]) { panic("consumer bug") })
	s, reports := newTestStage(listop.Comparable[string](), Publisher[string](pub))

	assert.NotPanics(t, func() {
		s.request(Snapshot[string]{Items: []string{"a"}, Generation: 1}, DiffInline)
	})

	reports.mu.Lock()
	defer reports.mu.Unlock()
	require.Len(t, reports.failures, 1)
	assert.Equal(t, "Publish", reports.failures[0].Operation)
}
