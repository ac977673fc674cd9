// Package session coordinates the listener lifecycle and its IPC surface.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ravitez/vinu/internal/fsm"
	"github.com/ravitez/vinu/internal/ipc"
	"github.com/ravitez/vinu/internal/pipeline"
)

// ErrEmptyTranscript reports a session that produced no utterances.
var ErrEmptyTranscript = errors.New("no speech transcribed")

// Pipeline is the session-facing subset of the live loop.
type Pipeline interface {
	Run(ctx context.Context) (pipeline.Stats, error)
	Drain() error
	Abort() error
}

type action int

const (
	actionStop action = iota + 1
	actionCancel
)

// Result is the complete lifecycle output of one Run invocation.
type Result struct {
	State      fsm.State
	Stats      pipeline.Stats
	Cancelled  bool
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Controller owns session state transitions and maps IPC commands onto the
// running pipeline.
type Controller struct {
	logger *slog.Logger
	pipe   Pipeline

	mu    sync.RWMutex
	state fsm.State

	actions chan action
}

// NewController constructs a controller in the idle state.
func NewController(logger *slog.Logger, pipe Pipeline) *Controller {
	return &Controller{
		logger:  logger,
		pipe:    pipe,
		state:   fsm.StateIdle,
		actions: make(chan action, 1),
	}
}

// State returns the current state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// transition applies one FSM event to the controller state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Run executes one listener lifecycle: start the pipeline, wait for a stop,
// cancel, or context cancellation, then drain or abort accordingly.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{StartedAt: time.Now()}
	finish := func() Result {
		result.State = c.State()
		result.FinishedAt = time.Now()
		return result
	}

	if err := c.transition(fsm.EventStart); err != nil {
		result.Err = err
		return finish()
	}

	runDone := make(chan struct{})
	var runStats pipeline.Stats
	var runErr error
	go func() {
		defer close(runDone)
		runStats, runErr = c.pipe.Run(ctx)
	}()

	waitRun := func() error {
		<-runDone
		result.Stats = runStats
		return runErr
	}

	select {
	case <-runDone:
		if ctx.Err() != nil {
			// Signal cancellation stops the capture, so the pipeline can
			// return on its own before this select wakes. That race is a
			// graceful shutdown, not a failure.
			c.drain(waitRun, &result)
			return finish()
		}
		result.Stats = runStats
		result.Err = runErr
		if result.Err == nil {
			result.Err = errors.New("pipeline stopped unexpectedly")
		}
		_ = c.transition(fsm.EventFail)
		return finish()

	case <-ctx.Done():
		// Signal-driven shutdown drains gracefully, like an IPC stop.
		c.drain(waitRun, &result)
		return finish()

	case a := <-c.actions:
		switch a {
		case actionStop:
			c.drain(waitRun, &result)
			return finish()
		case actionCancel:
			if err := c.transition(fsm.EventCancel); err != nil {
				result.Err = err
				_ = c.transition(fsm.EventFail)
				_ = waitRun()
				return finish()
			}
			if err := c.pipe.Abort(); err != nil {
				result.Err = fmt.Errorf("abort pipeline: %w", err)
				_ = c.transition(fsm.EventFail)
			}
			if err := waitRun(); err != nil && result.Err == nil {
				result.Err = err
				_ = c.transition(fsm.EventFail)
			}
			result.Cancelled = true
			return finish()
		default:
			result.Err = fmt.Errorf("unknown action %d", a)
			_ = c.transition(fsm.EventFail)
			_ = waitRun()
			return finish()
		}
	}
}

// drain performs the graceful stop sequence shared by IPC stop and signals.
func (c *Controller) drain(waitRun func() error, result *Result) {
	if err := c.transition(fsm.EventStop); err != nil {
		result.Err = err
		_ = c.transition(fsm.EventFail)
		_ = waitRun()
		return
	}
	if err := c.pipe.Drain(); err != nil {
		result.Err = fmt.Errorf("drain pipeline: %w", err)
		_ = c.transition(fsm.EventFail)
		_ = waitRun()
		return
	}
	if err := waitRun(); err != nil {
		result.Err = err
		_ = c.transition(fsm.EventFail)
		return
	}
	if result.Stats.Utterances == 0 && result.Err == nil {
		result.Err = ErrEmptyTranscript
	}
	_ = c.transition(fsm.EventDrained)
}

// Handle serves IPC commands for the active listener.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return ipc.Response{OK: true, State: string(c.State()), Message: "status"}
	case ipc.CommandStop:
		return c.request(actionStop, "stop")
	case ipc.CommandCancel:
		return c.request(actionCancel, "cancel")
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// request enqueues a stop or cancel action when state permits it.
func (c *Controller) request(a action, name string) ipc.Response {
	state := c.State()
	if state != fsm.StateListening {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot %s from state %s", name, state)}
	}

	select {
	case c.actions <- a:
		return ipc.Response{OK: true, State: string(state), Message: name + " requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: name + " already requested"}
	}
}

// LogResult emits the structured end-of-session record.
func LogResult(logger *slog.Logger, result Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"state", result.State,
		"cancelled", result.Cancelled,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"utterances", result.Stats.Utterances,
		"dropped_chunks", result.Stats.Dropped,
		"decode_errors", result.Stats.Errors,
	}

	if result.Err != nil && !errors.Is(result.Err, ErrEmptyTranscript) {
		logger.Error("session failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("session complete", fields...)
}
