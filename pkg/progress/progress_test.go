package progress

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"imgharvest/pkg/logger"
)

func TestQueuePreservesOrder(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 5; i++ {
		q.Put(Line{Tag: TagInfo, Message: fmt.Sprint(i)})
	}

	batch := q.Drain()
	require.Len(t, batch, 5)
	for i, l := range batch {
		assert.Equal(t, fmt.Sprint(i), l.Message)
	}
	assert.Empty(t, q.Drain())
}

func TestQueueDropsAfterClose(t *testing.T) {
	q := NewQueue()
	q.Put(Line{Tag: TagInfo, Message: "before"})
	q.Close()
	q.Put(Line{Tag: TagInfo, Message: "after"})

	batch := q.Drain()
	require.Len(t, batch, 1)
	assert.Equal(t, "before", batch[0].Message)
	assert.True(t, q.Closed())
}

func TestLineString(t *testing.T) {
	assert.Equal(t, "[CAP ] out/001-a.png", Line{Tag: TagCapture, Message: "out/001-a.png"}.String())
	assert.Equal(t, "[4:3] out/001-a.png", Line{Tag: TagNormalize, Message: "out/001-a.png"}.String())
}

func TestReporterMirrorsToLog(t *testing.T) {
	q := NewQueue()
	tl := logger.NewTestLogger()
	r := NewReporter(q, tl)

	r.Emit(TagWarn, "page load timed out after %s", "45s")
	r.Emit(TagSave, "%s", "out/001-a.jpg")
	r.Emit(TagError, "download failed: %s", "404")

	batch := q.Drain()
	require.Len(t, batch, 3)
	assert.Equal(t, "[WARN] page load timed out after 45s", batch[0].String())
	assert.False(t, batch[0].Time.IsZero())

	assert.Len(t, tl.GetMessagesByLevel("WARN"), 1)
	assert.Len(t, tl.GetMessagesByLevel("DEBUG"), 1)
	assert.Len(t, tl.GetMessagesByLevel("ERROR"), 1)
}

func TestPumpDeliversEverythingBeforeReturning(t *testing.T) {
	q := NewQueue()

	var (
		mu   sync.Mutex
		seen []string
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		Pump(context.Background(), q, 5*time.Millisecond, func(batch []Line) {
			mu.Lock()
			defer mu.Unlock()
			for _, l := range batch {
				seen = append(seen, l.Message)
			}
		})
	}()

	for i := 0; i < 50; i++ {
		q.Put(Line{Tag: TagScroll, Message: fmt.Sprint(i)})
	}
	q.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not return after close")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 50)
	assert.Equal(t, "0", seen[0])
	assert.Equal(t, "49", seen[49])
}

func TestPumpStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewQueue()

	done := make(chan struct{})
	go func() {
		defer close(done)
		Pump(ctx, q, 5*time.Millisecond, func([]Line) {})
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pump ignored cancellation")
	}
}

func TestRecorderTagged(t *testing.T) {
	var r Recorder
	r.Emit(TagScroll, "pass %d", 1)
	r.Emit(TagInfo, "hello")
	r.Emit(TagScroll, "pass %d", 2)
	assert.Equal(t, []string{"pass 1", "pass 2"}, r.Tagged(TagScroll))
}
