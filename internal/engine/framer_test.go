package engine

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestFramer returns a framer attached to a pipe the test writes into.
func newTestFramer(t *testing.T) (*Framer, io.WriteCloser) {
	t.Helper()
	r, w := io.Pipe()
	f := NewFramer("Vivado%", nil)
	f.Attach(r)
	t.Cleanup(func() { w.Close() })
	return f, w
}

func TestAwaitPromptAtEnd(t *testing.T) {
	f, w := newTestFramer(t)

	go func() {
		w.Write([]byte("synth_design completed\n"))
		w.Write([]byte("Vivado% "))
	}()

	res := f.Await(2 * time.Second)
	require.Equal(t, PromptMatched, res.kind)
	require.Contains(t, res.text, "synth_design completed")
}

func TestAwaitIgnoresPromptMidLine(t *testing.T) {
	f, w := newTestFramer(t)

	go func() {
		// Prompt-like text inside output must not terminate the frame.
		w.Write([]byte("the Vivado% prompt is documented here\n"))
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte("done\nVivado% "))
	}()

	res := f.Await(2 * time.Second)
	require.Equal(t, PromptMatched, res.kind)
	require.Contains(t, res.text, "documented here")
	require.Contains(t, res.text, "done")
}

func TestAwaitIgnoresPromptNotAtLineStart(t *testing.T) {
	f, w := newTestFramer(t)

	go func() {
		// Ends with the prompt text but mid-line: not a boundary.
		w.Write([]byte("output mentioning Vivado%"))
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte("\nVivado% "))
	}()

	res := f.Await(2 * time.Second)
	require.Equal(t, PromptMatched, res.kind)
}

func TestAwaitErrorMarkerThenPrompt(t *testing.T) {
	f, w := newTestFramer(t)

	go func() {
		w.Write([]byte("ERROR: [Synth 8-87] synthesis failed\n"))
		w.Write([]byte("Vivado% "))
	}()

	res := f.Await(2 * time.Second)
	require.Equal(t, ErrorDetected, res.kind)
	require.Contains(t, res.text, "ERROR: [Synth 8-87]")
}

func TestAwaitErrorMarkerWithoutPrompt(t *testing.T) {
	f, w := newTestFramer(t)

	start := time.Now()
	go func() {
		w.Write([]byte("ERROR: [Common 17-39] something broke\n"))
		// No prompt follows; the drain window must close the frame.
	}()

	res := f.Await(30 * time.Second)
	require.Equal(t, ErrorDetected, res.kind)
	require.Contains(t, res.text, "ERROR: [Common 17-39]")
	require.Less(t, time.Since(start), 10*time.Second,
		"error drain window should close well before the idle timeout")
}

func TestAwaitErrorMarkerSplitAcrossReads(t *testing.T) {
	f, w := newTestFramer(t)

	go func() {
		w.Write([]byte("ERROR: [Syn"))
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte("th 8-87] boom\n"))
		w.Write([]byte("Vivado% "))
	}()

	res := f.Await(2 * time.Second)
	require.Equal(t, ErrorDetected, res.kind)
}

func TestAwaitIdleTimeout(t *testing.T) {
	f, w := newTestFramer(t)

	go func() {
		w.Write([]byte("partial output with no prompt\n"))
	}()

	start := time.Now()
	res := f.Await(300 * time.Millisecond)
	elapsed := time.Since(start)

	require.Equal(t, TimedOut, res.kind)
	require.Contains(t, res.text, "partial output")
	require.GreaterOrEqual(t, elapsed, 250*time.Millisecond)
	require.Less(t, elapsed, 5*time.Second)
}

func TestAwaitIdleTimeoutResetsOnOutput(t *testing.T) {
	f, w := newTestFramer(t)

	go func() {
		for i := 0; i < 5; i++ {
			w.Write([]byte("still working\n"))
			time.Sleep(100 * time.Millisecond)
		}
		w.Write([]byte("Vivado% "))
	}()

	// Each write lands inside the idle window, so the command completes
	// even though it runs longer than one idle period.
	res := f.Await(300 * time.Millisecond)
	require.Equal(t, PromptMatched, res.kind)
}

func TestAwaitProcessExit(t *testing.T) {
	f, w := newTestFramer(t)

	go func() {
		w.Write([]byte("fatal crash\n"))
		w.Close()
	}()

	res := f.Await(2 * time.Second)
	require.Equal(t, ProcessExited, res.kind)
	require.Contains(t, res.text, "fatal crash")
}

func TestDrainDiscardsStaleOutput(t *testing.T) {
	f, w := newTestFramer(t)

	go func() {
		w.Write([]byte("late output from a timed-out command\n"))
	}()
	time.Sleep(100 * time.Millisecond)

	stale := f.Drain()
	require.Contains(t, stale, "late output")

	// The next frame starts clean.
	go func() {
		w.Write([]byte("fresh\nVivado% "))
	}()
	res := f.Await(2 * time.Second)
	require.Equal(t, PromptMatched, res.kind)
	require.NotContains(t, res.text, "late output")
}

func TestPromptAtEnd(t *testing.T) {
	f := NewFramer("Vivado%", nil)

	cases := []struct {
		name string
		text string
		want bool
	}{
		{"bare prompt", "Vivado%", true},
		{"prompt with trailing space", "Vivado% ", true},
		{"prompt after newline", "output\nVivado% ", true},
		{"prompt after carriage return", "output\r\nVivado% ", true},
		{"prompt mid-line", "see the Vivado% prompt", false},
		{"prompt not at end", "Vivado% \nmore output", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, f.promptAtEnd(tc.text))
		})
	}
}
