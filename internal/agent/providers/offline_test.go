package providers

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestOfflineStreamIsDeterministic(t *testing.T) {
	p := NewOfflineProvider()
	history := []Message{{Role: RoleUser, Content: "How do I cut heating costs?"}}

	collect := func() (string, int) {
		var b strings.Builder
		chunks := 0
		err := p.StreamText(context.Background(), "", history, func(s string) error {
			chunks++
			b.WriteString(s)
			return nil
		})
		if err != nil {
			t.Fatalf("StreamText: %v", err)
		}
		return b.String(), chunks
	}

	first, n := collect()
	if n < 2 {
		t.Fatalf("expected several chunks, got %d", n)
	}
	if !strings.Contains(first, "How do I cut heating costs?") {
		t.Errorf("reply does not echo the question: %q", first)
	}
	if again, _ := collect(); again != first {
		t.Errorf("reply changed between runs")
	}
}

func TestOfflineStreamStopsOnCallbackError(t *testing.T) {
	p := NewOfflineProvider()
	stop := errors.New("client gone")
	calls := 0

	err := p.StreamText(context.Background(), "", []Message{{Role: RoleUser, Content: "hi"}}, func(string) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("err = %v after %d calls", err, calls)
	}
}

func TestOfflineErrInjected(t *testing.T) {
	p := &OfflineProvider{Err: errors.New("down")}
	if _, err := p.GenerateText(context.Background(), "", "x"); err == nil {
		t.Fatal("expected injected error")
	}
}
