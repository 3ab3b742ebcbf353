package core

import (
	"context"
	"errors"
	"sync"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/models"
)

// ErrQueueClosed 队列已关闭
var ErrQueueClosed = errors.New("队列已关闭")

// URLQueue 待检查URL队列
// 不去重: 输入中重复的URL各自产出一行结果
type URLQueue struct {
	pending chan models.URLItem
	mu      sync.RWMutex
	closed  bool
}

// NewURLQueue 创建队列,capacity为缓冲区大小
func NewURLQueue(capacity int) *URLQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &URLQueue{
		pending: make(chan models.URLItem, capacity),
	}
}

// NewURLQueueFrom 用整个URL列表填充队列并关闭
func NewURLQueueFrom(urls []string) *URLQueue {
	q := NewURLQueue(len(urls))
	for i, u := range urls {
		// 缓冲区容纳全部URL,Push不会阻塞
		_ = q.Push(context.Background(), models.URLItem{Index: i, URL: u})
	}
	q.Close()
	return q
}

// Push 入队,队列关闭后返回ErrQueueClosed
func (q *URLQueue) Push(ctx context.Context, item models.URLItem) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.pending <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop 出队,队列耗尽或ctx取消时ok为false
func (q *URLQueue) Pop(ctx context.Context) (item models.URLItem, ok bool) {
	// 已取消时优先退出,不再取新任务
	if ctx.Err() != nil {
		return models.URLItem{}, false
	}
	select {
	case <-ctx.Done():
		return models.URLItem{}, false
	case item, ok = <-q.pending:
		return item, ok
	}
}

// PendingCount 当前待处理数量
func (q *URLQueue) PendingCount() int {
	return len(q.pending)
}

// Close 关闭队列,可重复调用
func (q *URLQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		close(q.pending)
		q.closed = true
	}
}
