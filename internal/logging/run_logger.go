// Package logging sets up the process-wide zerolog logger and manages a
// per-run file log that captures collaborator prompts and responses for a
// single pipeline invocation.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger for console output.
func Setup(verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// RunLogger writes a detailed trace of one pipeline run to a file under
// logDir. It is safe for use from a single run goroutine; the mutex only
// guards against interleaved writes from helper stages.
type RunLogger struct {
	runID   string
	file    *os.File
	mutex   sync.Mutex
	started time.Time
}

// StartRun creates the run log file. Failure to create the log is not
// fatal to the pipeline; callers receive the error and may continue with a
// nil logger, which disables file tracing.
func StartRun(logDir, runID string) (*RunLogger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run log directory: %w", err)
	}

	name := fmt.Sprintf("run_%s_%s.log", runID, time.Now().Format("20060102_150405"))
	file, err := os.Create(filepath.Join(logDir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	rl := &RunLogger{
		runID:   runID,
		file:    file,
		started: time.Now(),
	}
	rl.Logf("pipeline run %s started at %s", runID, rl.started.Format(time.RFC3339))
	return rl, nil
}

// Logf appends a timestamped line to the run log. Safe on a nil receiver.
func (r *RunLogger) Logf(format string, args ...interface{}) {
	if r == nil {
		return
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()

	elapsed := time.Since(r.started).Round(time.Millisecond)
	fmt.Fprintf(r.file, "[%s] [+%v] %s\n", time.Now().Format("15:04:05.000"), elapsed, fmt.Sprintf(format, args...))
}

// Section writes a visual separator for a pipeline stage.
func (r *RunLogger) Section(title string) {
	if r == nil {
		return
	}
	sep := strings.Repeat("=", 72)
	r.Logf("%s", sep)
	r.Logf("= %s", title)
	r.Logf("%s", sep)
}

// LogPrompt records an outbound collaborator prompt.
func (r *RunLogger) LogPrompt(stage, conversationID, prompt string) {
	if r == nil {
		return
	}
	r.Logf("PROMPT stage=%s conversation=%s (%d chars)", stage, conversationID, len(prompt))
	r.raw(prompt)
}

// LogResponse records a raw collaborator response.
func (r *RunLogger) LogResponse(stage, conversationID, response string) {
	if r == nil {
		return
	}
	r.Logf("RESPONSE stage=%s conversation=%s (%d chars)", stage, conversationID, len(response))
	r.raw(response)
}

// LogError records a recoverable per-record failure.
func (r *RunLogger) LogError(stage string, err error) {
	if r == nil {
		return
	}
	r.Logf("ERROR stage=%s: %v", stage, err)
}

func (r *RunLogger) raw(text string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.file.WriteString(text + "\n")
}

// Close finalizes the run log.
func (r *RunLogger) Close() {
	if r == nil {
		return
	}
	r.Logf("pipeline run %s finished, total duration %v", r.runID, time.Since(r.started).Round(time.Millisecond))
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}
}
