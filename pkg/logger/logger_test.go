package logger

import "testing"

func TestScrubRedactsSensitiveKeys(t *testing.T) {
	got := scrub([]interface{}{"email", "a@b.c", "user_id", "42", "JWT_Token", "xyz", "dangling"})
	want := []interface{}{"email", redacted, "user_id", "42", "JWT_Token", redacted, "dangling"}

	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("scrub[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	l := Nop().With("component", "test")
	l.Info("hello", "password", "secret")
	l.Sync()
}
