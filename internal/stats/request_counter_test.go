package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock 可手动推进的时钟
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCounter(d time.Duration) (*RequestCounter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	rc := NewRequestCounter(d)
	rc.now = clock.now
	rc.current = window{start: clock.t}
	rc.previous = window{start: clock.t.Add(-d)}
	return rc, clock
}

func TestRequestCounter_Record(t *testing.T) {
	rc, _ := newTestCounter(time.Second)

	for i := 0; i < 10; i++ {
		rc.Record(200)
	}
	rc.Record(404)
	rc.Record(503)

	stats := rc.GetStats()
	assert.Equal(t, int64(12), stats.Total)
	assert.Equal(t, int64(1), stats.ClientErrors)
	assert.Equal(t, int64(1), stats.ServerErrors)
}

func TestRequestCounter_QPS(t *testing.T) {
	rc, clock := newTestCounter(10 * time.Second)

	for i := 0; i < 100; i++ {
		rc.Record(200)
	}
	// 窗口结束后，100 个请求计入上一个窗口
	clock.advance(15 * time.Second)
	qps := rc.GetQPS()
	assert.InDelta(t, 5.0, qps, 0.01)
}

func TestRequestCounter_IdleResets(t *testing.T) {
	rc, clock := newTestCounter(time.Second)

	for i := 0; i < 50; i++ {
		rc.Record(200)
	}
	clock.advance(time.Minute)

	assert.Equal(t, 0.0, rc.GetQPS())
	assert.Equal(t, int64(50), rc.GetTotal())
}

func TestRequestCounter_DefaultWindow(t *testing.T) {
	rc := NewRequestCounter(0)
	assert.Equal(t, DefaultWindow, rc.windowDuration)
}

func TestRequestCounter_Concurrent(t *testing.T) {
	rc := NewRequestCounter(time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				rc.Record(200)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1000), rc.GetTotal())
}
