package feed

import (
	"context"
	"testing"
	"time"
)

func TestMemoryFeedFanOut(t *testing.T) {
	f := NewMemoryFeed()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, cancelA, err := f.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	b, cancelB, _ := f.Subscribe(ctx)
	defer cancelB()

	if err := f.Publish(ctx, []byte(`{"id":"1"}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	for name, ch := range map[string]<-chan []byte{"a": a, "b": b} {
		select {
		case got := <-ch:
			if string(got) != `{"id":"1"}` {
				t.Fatalf("%s got %s", name, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s received nothing", name)
		}
	}

	cancelA()
	cancelA()
	if _, ok := <-a; ok {
		t.Fatal("cancelled subscription should be closed")
	}
	if err := f.Publish(ctx, []byte("x")); err != nil {
		t.Fatalf("Publish after cancel: %v", err)
	}
}

func TestMemoryFeedClosesOnContextDone(t *testing.T) {
	f := NewMemoryFeed()
	ctx, cancel := context.WithCancel(context.Background())

	ch, _, err := f.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after context cancel")
	}
}
