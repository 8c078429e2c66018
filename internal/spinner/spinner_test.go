package spinner

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func hasFrame(output string) bool {
	for _, frame := range frames {
		if strings.Contains(output, frame) {
			return true
		}
	}
	return false
}

func TestSpinnerStartStop(t *testing.T) {
	var buf bytes.Buffer
	spinner := New(context.Background(), &buf, "Parsing cards...")

	spinner.Start()
	time.Sleep(250 * time.Millisecond)
	spinner.Stop()

	output := buf.String()
	if !hasFrame(output) {
		t.Errorf("expected spinner frames in output, got %q", output)
	}
	if !strings.Contains(output, "Parsing cards...") {
		t.Errorf("expected message in output, got %q", output)
	}
	// non-terminal output ends with a bare carriage return
	if !strings.HasSuffix(output, "\r") {
		t.Errorf("expected output to end with carriage return, got %q", output)
	}

	// nothing is drawn after Stop
	n := buf.Len()
	time.Sleep(2 * frameDelay)
	if buf.Len() != n {
		t.Error("spinner kept drawing after Stop()")
	}
}

func TestSpinnerRepeatedCalls(t *testing.T) {
	var buf bytes.Buffer
	spinner := New(context.Background(), &buf, "Parsing cards...")

	spinner.Start()
	spinner.Start()
	time.Sleep(150 * time.Millisecond)
	spinner.Stop()
	spinner.Stop()

	if strings.HasSuffix(buf.String(), "\r\r") {
		t.Errorf("second Stop() cleared the line again: %q", buf.String())
	}
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	spinner := New(context.Background(), &buf, "Parsing cards...")

	spinner.Stop()
	spinner.Start() // stopped spinners stay stopped
	time.Sleep(150 * time.Millisecond)

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestSpinnerProgressLabel(t *testing.T) {
	spinner := New(context.Background(), &bytes.Buffer{}, "Parsing cards")

	if got := spinner.label(); got != "Parsing cards" {
		t.Errorf("label() without progress = %q, want %q", got, "Parsing cards")
	}

	spinner.SetProgress(3, 10)
	if got := spinner.label(); got != "Parsing cards (3/10)" {
		t.Errorf("label() = %q, want %q", got, "Parsing cards (3/10)")
	}
}

func TestSpinnerProgressDrawn(t *testing.T) {
	var buf bytes.Buffer
	spinner := New(context.Background(), &buf, "Parsing cards")
	spinner.SetProgress(2, 5)

	spinner.Start()
	time.Sleep(150 * time.Millisecond)
	spinner.Stop()

	if !strings.Contains(buf.String(), "Parsing cards (2/5)") {
		t.Errorf("expected progress count in output, got %q", buf.String())
	}
}

func TestSpinnerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	spinner := New(ctx, &bytes.Buffer{}, "Parsing cards")
	spinner.Start()
	cancel()

	// Stop must still return once the parent context is gone
	done := make(chan struct{})
	go func() {
		spinner.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() did not return after the context was cancelled")
	}
}

func TestEnabled(t *testing.T) {
	if Enabled(&bytes.Buffer{}) {
		t.Error("Enabled() should be false for a buffer")
	}

	f, err := os.CreateTemp(t.TempDir(), "progress")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()
	if Enabled(f) {
		t.Error("Enabled() should be false for a regular file")
	}
}
