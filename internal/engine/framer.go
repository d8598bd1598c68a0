package engine

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// readChunkSize is the buffer size for each read from the pty.
const readChunkSize = 4096

// errorDrainTimeout is how long the framer keeps reading after an in-band
// error marker, waiting for the engine to finish the response and re-prompt.
const errorDrainTimeout = 2 * time.Second

// chunk is one read from the pty pump goroutine.
type chunk struct {
	data []byte
	err  error
}

// frameResult is the outcome of waiting for one response boundary.
type frameResult struct {
	text string
	kind CompletionKind
}

// Framer turns the engine's raw character stream into discrete response
// boundaries by synchronizing on the interactive prompt. It recognizes four
// completion conditions: the prompt reappearing at the end of the stream, an
// in-band error marker followed by the prompt (or a short drain window), no
// new output within the idle budget, and end of stream.
type Framer struct {
	prompt  string
	chunks  chan chunk
	pending bytes.Buffer
	log     *logrus.Entry
}

// NewFramer creates a framer that frames responses on the given prompt.
func NewFramer(prompt string, log *logrus.Entry) *Framer {
	return &Framer{
		prompt: prompt,
		chunks: make(chan chunk, 64),
		log:    log,
	}
}

// Attach starts pumping reads from r into the framer. The pump goroutine
// exits when r returns an error, which for a pty master happens when the
// child exits or the descriptor is closed.
func (f *Framer) Attach(r io.Reader) {
	go func() {
		buf := make([]byte, readChunkSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				f.chunks <- chunk{data: data}
			}
			if err != nil {
				f.chunks <- chunk{err: err}
				return
			}
		}
	}()
}

// Drain discards any output that accumulated since the last frame completed,
// such as late output from a command whose caller timed out. It returns what
// was discarded so the session can log it.
func (f *Framer) Drain() string {
	for {
		select {
		case c := <-f.chunks:
			if c.err != nil {
				// Put EOF back for the next Await to observe.
				f.chunks <- c
				stale := f.pending.String()
				f.pending.Reset()
				return stale
			}
			f.pending.Write(c.data)
		default:
			stale := f.pending.String()
			f.pending.Reset()
			return stale
		}
	}
}

// Await reads until a response boundary is reached. idleTimeout bounds the
// silence between reads, not the total command duration: a command may run
// for minutes as long as it keeps producing output.
func (f *Framer) Await(idleTimeout time.Duration) frameResult {
	var errorLines []string
	scanned := 0

	timer := time.NewTimer(idleTimeout)
	defer timer.Stop()

	for {
		text := f.pending.String()

		if f.promptAtEnd(text) {
			f.pending.Reset()
			kind := PromptMatched
			if len(errorLines) > 0 {
				kind = ErrorDetected
			}
			return frameResult{text: text, kind: kind}
		}

		if markers := scanErrorLines(text, &scanned); len(markers) > 0 {
			if len(errorLines) == 0 && f.log != nil {
				f.log.WithField("marker", markers[0]).Debug("in-band error marker seen, draining")
			}
			errorLines = append(errorLines, markers...)
			// The command has already failed inside the engine; keep
			// reading only long enough to collect the rest of the message.
			resetTimer(timer, errorDrainTimeout)
		}

		select {
		case c := <-f.chunks:
			if c.err != nil {
				f.pending.Reset()
				return frameResult{text: text, kind: ProcessExited}
			}
			f.pending.Write(c.data)
			if len(errorLines) > 0 {
				resetTimer(timer, errorDrainTimeout)
			} else {
				resetTimer(timer, idleTimeout)
			}
		case <-timer.C:
			f.pending.Reset()
			if len(errorLines) > 0 {
				return frameResult{text: text, kind: ErrorDetected}
			}
			return frameResult{text: text, kind: TimedOut}
		}
	}
}

// promptAtEnd reports whether the prompt appears at the end of text, at the
// start of a line. Both conditions guard against prompt-like substrings
// inside legitimate output: "the Vivado% prompt" mid-report matches neither.
func (f *Framer) promptAtEnd(text string) bool {
	t := strings.TrimRight(text, " \t")
	if !strings.HasSuffix(t, f.prompt) {
		return false
	}
	head := t[:len(t)-len(f.prompt)]
	return head == "" || strings.HasSuffix(head, "\n") || strings.HasSuffix(head, "\r")
}

// scanErrorLines checks complete lines beyond *offset for engine error
// markers and advances *offset past them. Partial lines are left for the
// next call so a marker split across reads is still seen exactly once.
func scanErrorLines(text string, offset *int) []string {
	tail := text[*offset:]
	last := strings.LastIndexByte(tail, '\n')
	if last < 0 {
		return nil
	}
	complete := tail[:last+1]
	*offset += last + 1

	var markers []string
	for _, line := range strings.Split(complete, "\n") {
		line = strings.TrimRight(line, "\r")
		if engineErrorPattern.MatchString(strings.TrimSpace(line)) {
			markers = append(markers, strings.TrimSpace(line))
		}
	}
	return markers
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
