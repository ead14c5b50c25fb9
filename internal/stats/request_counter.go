package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultWindow 默认统计窗口
const DefaultWindow = 60 * time.Second

// RequestCounter 请求计数器
// 总数用原子计数；QPS 基于两个相邻时间窗口加权计算，窗口在访问时滚动
type RequestCounter struct {
	total       int64
	clientError int64
	serverError int64

	mu             sync.Mutex
	current        window
	previous       window
	windowDuration time.Duration
	now            func() time.Time
}

type window struct {
	count int64
	start time.Time
}

// RequestStats 请求统计信息
type RequestStats struct {
	Total        int64   `json:"total"`
	ClientErrors int64   `json:"client_errors"`
	ServerErrors int64   `json:"server_errors"`
	CurrentQPS   float64 `json:"current_qps"`
}

// NewRequestCounter 创建请求计数器
func NewRequestCounter(windowDuration time.Duration) *RequestCounter {
	if windowDuration <= 0 {
		windowDuration = DefaultWindow
	}

	rc := &RequestCounter{
		windowDuration: windowDuration,
		now:            time.Now,
	}
	start := rc.now()
	rc.current = window{start: start}
	rc.previous = window{start: start.Add(-windowDuration)}
	return rc
}

// Record 记录一次已完成的请求
func (rc *RequestCounter) Record(status int) {
	atomic.AddInt64(&rc.total, 1)
	switch {
	case status >= 500:
		atomic.AddInt64(&rc.serverError, 1)
	case status >= 400:
		atomic.AddInt64(&rc.clientError, 1)
	}

	rc.mu.Lock()
	rc.rotate(rc.now())
	rc.current.count++
	rc.mu.Unlock()
}

// GetTotal 获取总请求数
func (rc *RequestCounter) GetTotal() int64 {
	return atomic.LoadInt64(&rc.total)
}

// GetQPS 获取当前 QPS
func (rc *RequestCounter) GetQPS() float64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	now := rc.now()
	rc.rotate(now)

	elapsed := now.Sub(rc.current.start).Seconds()
	if elapsed <= 0 {
		elapsed = 1
	}
	windowSeconds := rc.windowDuration.Seconds()

	currentQPS := float64(rc.current.count) / elapsed
	if elapsed >= windowSeconds {
		return currentQPS
	}

	// 当前窗口时间较短时结合上一个窗口
	prevWeight := (windowSeconds - elapsed) / windowSeconds
	prevQPS := float64(rc.previous.count) / windowSeconds
	return currentQPS*(1-prevWeight) + prevQPS*prevWeight
}

// GetStats 获取统计信息
func (rc *RequestCounter) GetStats() RequestStats {
	return RequestStats{
		Total:        rc.GetTotal(),
		ClientErrors: atomic.LoadInt64(&rc.clientError),
		ServerErrors: atomic.LoadInt64(&rc.serverError),
		CurrentQPS:   rc.GetQPS(),
	}
}

// rotate 调用方需持有锁
func (rc *RequestCounter) rotate(now time.Time) {
	elapsed := now.Sub(rc.current.start)
	switch {
	case elapsed < rc.windowDuration:
		return
	case elapsed < 2*rc.windowDuration:
		rc.previous = rc.current
		rc.current = window{start: rc.current.start.Add(rc.windowDuration)}
	default:
		// 超过一个完整窗口没有请求
		rc.previous = window{start: now.Add(-rc.windowDuration)}
		rc.current = window{start: now}
	}
}
