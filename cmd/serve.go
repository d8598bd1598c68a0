package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/edaforge/vivactl/internal/engine"
	"github.com/edaforge/vivactl/internal/tools"
)

// request is one line of input on the serve loop.
type request struct {
	ID        any             `json:"id,omitempty"`
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// response is one line of output. Exactly one of Result or Error is set.
type response struct {
	ID     any    `json:"id,omitempty"`
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func newServeCmd() *cobra.Command {
	var (
		autoStart         bool
		healthIntervalSec int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve tool calls as JSON lines on stdin/stdout",
		Long: "Reads one JSON object per line from stdin ({\"tool\": ..., \"arguments\": {...}}), " +
			"dispatches it against the tool registry, and writes one JSON result per line to stdout. " +
			"The engine session persists across calls until stdin closes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// Logs go to stderr so the stdout protocol stream stays clean.
			logrus.SetOutput(os.Stderr)

			rt := newRuntime(cfg)
			reg := tools.NewRegistry()

			if autoStart {
				if _, err := rt.Engine.Start(); err != nil {
					return fmt.Errorf("starting engine session: %w", err)
				}
			}

			defer func() {
				if err := rt.Engine.Stop(); err != nil {
					logrus.WithError(err).Warn("stopping engine session")
				}
			}()

			if healthIntervalSec > 0 {
				monitor := engine.NewMonitor(rt.Engine, time.Duration(healthIntervalSec)*time.Second)
				monitor.Start()
				defer monitor.Stop()
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				logrus.Info("signal received, stopping engine session")
				_ = rt.Engine.Stop()
				os.Exit(0)
			}()

			return serveLoop(rt, reg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&autoStart, "start", false, "Start the engine session before accepting calls")
	cmd.Flags().IntVar(&healthIntervalSec, "health-interval", 0, "Seconds between background health checks (0 disables)")

	return cmd
}

// serveLoop reads requests line by line until EOF. Malformed lines and tool
// failures are reported on the response line, never by killing the loop.
func serveLoop(rt *tools.Runtime, reg *tools.Registry, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			if encErr := enc.Encode(response{Error: fmt.Sprintf("malformed request: %v", err)}); encErr != nil {
				return encErr
			}
			continue
		}

		resp := response{ID: req.ID, Tool: req.Tool}
		result, err := reg.Dispatch(rt, req.Tool, req.Arguments)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Result = result
		}
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading requests: %w", err)
	}
	return nil
}
