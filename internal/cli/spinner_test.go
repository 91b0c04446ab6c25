package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func testSpinner(ctx context.Context, msg string) (*Spinner, *bytes.Buffer) {
	s := newSpinnerWithContext(ctx, msg)
	var buf bytes.Buffer
	s.out = &buf
	return s, &buf
}

func TestSpinnerDrawsAndClears(t *testing.T) {
	s, buf := testSpinner(context.Background(), "Sorting photo.png...")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "Sorting photo.png...") {
		t.Errorf("output %q should contain the message", out)
	}
	if !strings.HasSuffix(out, "\r") {
		t.Errorf("output should end by clearing the line, got %q", out)
	}
}

func TestSpinnerWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, _ := testSpinner(ctx, "Testing with context...")
	s.Start()

	cancel()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context cancellation")
	}
	s.Stop()
}

func TestSpinnerWithTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s, _ := testSpinner(ctx, "Testing with timeout...")
	s.Start()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context timeout")
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s, _ := testSpinner(context.Background(), "Testing idempotent stop...")
	s.Start()
	s.Stop()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	s, buf := testSpinner(context.Background(), "never shown")
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop on an unstarted spinner should not block")
	}
	if buf.Len() != 0 {
		t.Errorf("unstarted spinner wrote %q", buf.String())
	}
}

func TestSpinnerStopWithError(t *testing.T) {
	s, _ := testSpinner(context.Background(), "Testing error...")
	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.StopWithError("Failed!")
}
