package events

import (
	"sync"

	"github.com/OnellHernandez/studio/internal/logs"
)

// Kind 变更类型
type Kind string

const (
	KindCreated Kind = "created"
	KindUpdated Kind = "updated"
	KindDeleted Kind = "deleted"
	KindRenamed Kind = "renamed"
)

// subscriberBuffer 每个订阅者的缓冲区大小
const subscriberBuffer = 16

// Change 某个用户的电脑列表发生的一次变更
type Change struct {
	OwnerID    string `json:"owner_id"`
	Kind       Kind   `json:"kind"`
	ComputerID string `json:"computer_id"`
}

// Broker 按 owner 分发变更的进程内发布订阅
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[chan Change]struct{}
	closed bool
}

// NewBroker 创建 Broker 实例
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan Change]struct{})}
}

// Subscribe 订阅某个 owner 的变更
// 返回的取消函数可重复调用
func (b *Broker) Subscribe(owner string) (<-chan Change, func()) {
	ch := make(chan Change, subscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch, func() {}
	}

	if b.subs[owner] == nil {
		b.subs[owner] = make(map[chan Change]struct{})
	}
	b.subs[owner][ch] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() { b.unsubscribe(owner, ch) })
	}
	return ch, cancel
}

func (b *Broker) unsubscribe(owner string, ch chan Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.subs[owner]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(b.subs, owner)
	}
}

// Publish 向该 owner 的所有订阅者发送变更
// 缓冲区已满的订阅者会丢弃本次变更，不阻塞写入方
func (b *Broker) Publish(change Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for ch := range b.subs[change.OwnerID] {
		select {
		case ch <- change:
		default:
			logs.Logger.WithField("owner_id", change.OwnerID).
				Debug("订阅者缓冲区已满，丢弃变更")
		}
	}
}

// Subscribers 当前某个 owner 的订阅者数量
func (b *Broker) Subscribers(owner string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[owner])
}

// Close 关闭所有订阅通道，之后的 Publish 被忽略
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for owner, set := range b.subs {
		for ch := range set {
			close(ch)
		}
		delete(b.subs, owner)
	}
}
