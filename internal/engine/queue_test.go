package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/listq/internal/listop"
)

func testRecord(id string, op listop.Operation[string]) *record[string] {
	return &record[string]{id: id, op: op, ticket: newTicket(id, op.Name())}
}

func ids(recs []*record[string]) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.id
	}
	return out
}

func evictedIDs(adm admission[string]) []string {
	out := make([]string, len(adm.evicted))
	for i, ev := range adm.evicted {
		out[i] = ev.rec.id
	}
	return out
}

func TestAdmissionQueue_FIFO(t *testing.T) {
	q := newAdmissionQueue[string]()
	cfg := DefaultConfig()

	for _, id := range []string{"A", "B", "C"} {
		adm := q.Admit(testRecord(id, listop.AddItem(id)), &cfg)
		require.True(t, adm.accepted)
	}

	for i, want := range []string{"A", "B", "C"} {
		rec, depth, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, rec.id)
		assert.Equal(t, 2-i, depth)
	}

	_, _, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestAdmissionQueue_MergeRunsBeforeCapacity(t *testing.T) {
	q := newAdmissionQueue[string]()
	cfg := Config{MaxPending: 1, Overflow: DropNew, MergeKeys: []string{"SetItems"}}

	q.Admit(testRecord("s1", listop.SetItems([]string{"a"})), &cfg)
	adm := q.Admit(testRecord("s2", listop.SetItems([]string{"b"})), &cfg)

	assert.True(t, adm.accepted, "merge frees the slot before the capacity check")
	assert.Equal(t, []string{"s1"}, evictedIDs(adm))
	assert.Equal(t, DropMerged, adm.evicted[0].reason)
	assert.Equal(t, 1, adm.depth)
}

func TestAdmissionQueue_DropNewLeavesQueueUnchanged(t *testing.T) {
	q := newAdmissionQueue[string]()
	cfg := Config{MaxPending: 2, Overflow: DropNew}

	q.Admit(testRecord("A", listop.AddItem("A")), &cfg)
	q.Admit(testRecord("B", listop.AddItem("B")), &cfg)
	adm := q.Admit(testRecord("C", listop.AddItem("C")), &cfg)

	assert.False(t, adm.accepted)
	assert.Equal(t, DropQueueFullNew, adm.rejected)
	assert.Empty(t, adm.evicted)
	assert.Equal(t, []string{"A", "B"}, ids(q.Drain()))
}

func TestAdmissionQueue_DepthNeverExceedsBound(t *testing.T) {
	for _, policy := range []OverflowPolicy{DropNew, DropOldest, ClearAndEnqueue} {
		t.Run(policy.String(), func(t *testing.T) {
			q := newAdmissionQueue[string]()
			cfg := Config{MaxPending: 3, Overflow: policy}
			for i := 0; i < 20; i++ {
				adm := q.Admit(testRecord("x", listop.AddItem("x")), &cfg)
				assert.LessOrEqual(t, adm.depth, 3)
				assert.LessOrEqual(t, q.Len(), 3)
			}
		})
	}
}

func TestAdmissionQueue_Replace(t *testing.T) {
	q := newAdmissionQueue[string]()
	cfg := DefaultConfig()
	q.Admit(testRecord("A", listop.AddItem("A")), &cfg)
	q.Admit(testRecord("B", listop.AddItem("B")), &cfg)

	adm := q.Replace(testRecord("Z", listop.SetItems([]string{"z"})), DropClearedExplicit)
	assert.True(t, adm.accepted)
	assert.Equal(t, []string{"A", "B"}, evictedIDs(adm))
	assert.Equal(t, DropClearedExplicit, adm.evicted[1].reason)
	assert.Equal(t, []string{"Z"}, ids(q.Drain()))

	adm = q.Replace(nil, DropClearedByAPI)
	assert.False(t, adm.accepted)
	assert.Empty(t, adm.evicted)
}

func TestAdmissionQueue_CloseRejects(t *testing.T) {
	q := newAdmissionQueue[string]()
	cfg := DefaultConfig()
	q.Close()
	q.Close()

	adm := q.Admit(testRecord("A", listop.AddItem("A")), &cfg)
	assert.False(t, adm.accepted)
	assert.True(t, adm.closed)
	assert.Equal(t, DropStopped, adm.rejected)
	assert.True(t, q.Closed())
}

func TestAdmissionQueue_WaitSignals(t *testing.T) {
	q := newAdmissionQueue[string]()
	cfg := DefaultConfig()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Admit(testRecord("A", listop.AddItem("A")), &cfg)
	}()

	select {
	case <-q.Wait():
	case <-time.After(5 * time.Second):
		t.Fatal("no signal after admit")
	}
	_, _, ok := q.TryDequeue()
	assert.True(t, ok)
}

func TestAdmissionQueue_ConcurrentAdmit(t *testing.T) {
	q := newAdmissionQueue[string]()
	cfg := DefaultConfig()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Admit(testRecord("x", listop.AddItem("x")), &cfg)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, q.Len())
}

func TestAdmissionQueue_TrimUnbounded(t *testing.T) {
	q := newAdmissionQueue[string]()
	cfg := DefaultConfig()
	q.Admit(testRecord("A", listop.AddItem("A")), &cfg)

	adm := q.Trim(&cfg)
	assert.Empty(t, adm.evicted)
	assert.Equal(t, 1, adm.depth)
}

func TestAdmissionQueue_TrimClearAndEnqueue(t *testing.T) {
	q := newAdmissionQueue[string]()
	cfg := DefaultConfig()
	for _, id := range []string{"A", "B", "C"} {
		q.Admit(testRecord(id, listop.AddItem(id)), &cfg)
	}

	cfg.MaxPending = 2
	cfg.Overflow = ClearAndEnqueue
	adm := q.Trim(&cfg)
	assert.Equal(t, []string{"A", "B", "C"}, evictedIDs(adm))
	assert.Equal(t, 0, q.Len())
}
