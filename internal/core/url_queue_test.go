package core

import (
	"context"
	"errors"
	"testing"

	"github.com/RecoveryAshes/DeadLinkCheck/internal/models"
)

func TestURLQueue_PushPop(t *testing.T) {
	q := NewURLQueue(4)
	ctx := context.Background()

	for i, u := range []string{"http://a.example", "http://b.example", "http://a.example"} {
		if err := q.Push(ctx, models.URLItem{Index: i, URL: u}); err != nil {
			t.Fatalf("Push失败: %v", err)
		}
	}
	if q.PendingCount() != 3 {
		t.Errorf("PendingCount = %d, 期望 3 (不去重)", q.PendingCount())
	}

	q.Close()
	q.Close()

	if err := q.Push(ctx, models.URLItem{URL: "http://c.example"}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("关闭后Push应返回ErrQueueClosed, 得到 %v", err)
	}

	for want := 0; want < 3; want++ {
		item, ok := q.Pop(ctx)
		if !ok || item.Index != want {
			t.Fatalf("Pop = (%+v, %v), 期望序号 %d", item, ok, want)
		}
	}
	if _, ok := q.Pop(ctx); ok {
		t.Error("队列耗尽后Pop应返回false")
	}
}

func TestURLQueue_PopCancelled(t *testing.T) {
	q := NewURLQueueFrom([]string{"http://a.example"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := q.Pop(ctx); ok {
		t.Error("ctx取消后Pop应返回false")
	}
	if q.PendingCount() != 1 {
		t.Error("取消时不应消费队列元素")
	}
}

func TestNewURLQueueFrom_OrderAndClosed(t *testing.T) {
	urls := []string{"http://a.example", "http://b.example", "http://a.example"}
	q := NewURLQueueFrom(urls)
	ctx := context.Background()

	if q.PendingCount() != len(urls) {
		t.Fatalf("待处理数量 = %d, 期望 %d", q.PendingCount(), len(urls))
	}
	for i, want := range urls {
		item, ok := q.Pop(ctx)
		if !ok {
			t.Fatalf("第%d项提前结束", i)
		}
		if item.Index != i || item.URL != want {
			t.Errorf("第%d项 = %+v, 期望 {%d %s}", i, item, i, want)
		}
	}
	if _, ok := q.Pop(ctx); ok {
		t.Error("耗尽后Pop应返回false")
	}
	if err := q.Push(ctx, models.URLItem{URL: "http://c.example"}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("已关闭队列Push应返回ErrQueueClosed, 得到 %v", err)
	}
}
