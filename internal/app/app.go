// Package app dispatches CLI commands and wires the listen pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/ravitez/vinu/internal/asr"
	"github.com/ravitez/vinu/internal/audio"
	"github.com/ravitez/vinu/internal/cli"
	"github.com/ravitez/vinu/internal/config"
	"github.com/ravitez/vinu/internal/doctor"
	"github.com/ravitez/vinu/internal/history"
	"github.com/ravitez/vinu/internal/ipc"
	"github.com/ravitez/vinu/internal/logging"
	"github.com/ravitez/vinu/internal/mel"
	"github.com/ravitez/vinu/internal/observe"
	"github.com/ravitez/vinu/internal/pipeline"
	"github.com/ravitez/vinu/internal/session"
	"github.com/ravitez/vinu/internal/sink"
	"github.com/ravitez/vinu/internal/transcript"
	"github.com/ravitez/vinu/internal/version"
	"github.com/ravitez/vinu/internal/wave"
)

const forwardTimeout = 220 * time.Millisecond

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("vinu"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("vinu"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", w.Message)
	}

	logRuntime, err := logging.New(cfgLoaded.Config.Log.Level)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandListen:
		return r.commandListen(ctx, cfgLoaded.Config, logger)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.CommandStop)
	case cli.CommandCancel:
		return r.forwardOrFail(ctx, ipc.CommandCancel)
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandFeatures:
		return r.commandFeatures(parsed.Args[0])
	case cli.CommandHistory:
		return r.commandHistory(ctx, cfgLoaded.Config, parsed.Args)
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// commandListen runs the live loop: one process owns the microphone and the
// control socket until a stop, cancel, or signal ends the session.
func (r Runner) commandListen(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.SocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: a vinu listener is already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	observeRt, err := observe.Setup(ctx, cfg.Observe, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup metrics: %v\n", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = observeRt.Shutdown(shutdownCtx)
	}()

	sinks, err := r.buildSinks(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = sinks.Close() }()

	engine, err := asr.Open(cfg.Engine, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: open engine: %v\n", err)
		return 1
	}
	defer func() { _ = engine.Close() }()

	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if selection.Warning != "" {
		fmt.Fprintf(r.Stderr, "warning: %s\n", selection.Warning)
	}

	capture, err := audio.StartCapture(ctx, selection.Device, audio.StreamConfig{
		SampleRate:   cfg.Audio.SampleRate,
		ChunkSamples: cfg.Audio.ChunkSamples(),
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: start capture: %v\n", err)
		return 1
	}
	defer capture.Close()

	sessionID := time.Now().UTC().Format("20060102-150405")
	logger.Info("listening",
		"session", sessionID,
		"device", selection.Device.ID,
		"backend", cfg.Engine.Backend,
		"language", cfg.Engine.Language,
	)

	runner := pipeline.NewRunner(cfg, logger, engine, sinks, observeRt.Metrics, capture, r.Stderr, sessionID)
	controller := session.NewController(logger, runner)

	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, controller)
	}()

	sessionDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.Stderr, "stopping")
		case <-sessionDone:
		}
	}()

	result := controller.Run(ctx)
	close(sessionDone)
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	session.LogResult(logger, result)

	if result.Cancelled {
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	}
	if errors.Is(result.Err, session.ErrEmptyTranscript) {
		fmt.Fprintln(r.Stderr, "no speech transcribed")
		return 0
	}
	if result.Err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
		return 1
	}
	return 0
}

// buildSinks assembles the configured utterance destinations around the
// always-on console printer.
func (r Runner) buildSinks(ctx context.Context, cfg config.Config, logger *slog.Logger) (sink.Sink, error) {
	opts := transcript.Options{
		Timestamps:        cfg.Transcript.Timestamps,
		FilterAnnotations: cfg.Transcript.FilterAnnotations,
	}

	sinks := []sink.Sink{sink.NewConsole(r.Stdout, opts)}

	if cfg.Sinks.File != "" {
		fileSink, err := sink.NewFile(cfg.Sinks.File, opts)
		if err != nil {
			return nil, fmt.Errorf("open file sink: %w", err)
		}
		sinks = append(sinks, fileSink)
	}

	if cfg.Sinks.Clipboard {
		clip, err := sink.NewClipboard()
		if err != nil {
			fmt.Fprintf(r.Stderr, "warning: clipboard sink disabled: %v\n", err)
		} else {
			sinks = append(sinks, clip)
		}
	}

	if cfg.Sinks.NATS.URL != "" {
		bus, err := sink.NewBus(cfg.Sinks.NATS.URL, cfg.Sinks.NATS.Subject)
		if err != nil {
			return nil, fmt.Errorf("connect bus sink: %w", err)
		}
		sinks = append(sinks, bus)
	}

	if cfg.History.Path != "" {
		store, err := history.Open(ctx, cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		sinks = append(sinks, sink.NewHistory(store, cfg.History.Keep))
	}

	return sink.NewMulti(logger, sinks...), nil
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

// commandFeatures decodes a WAV file and prints its log-Mel spectrogram
// shape and dB range.
func (r Runner) commandFeatures(path string) int {
	samples, rate, err := wave.DecodeFile(path)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	cfg := mel.DefaultConfig()
	cfg.SampleRate = rate
	if nyquist := float64(rate) / 2; nyquist < cfg.FMax {
		cfg.FMax = nyquist
	}

	matrix, err := mel.Spectrogram(samples, cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	duration := time.Duration(len(samples)) * time.Second / time.Duration(rate)
	min, max := matrix.MinMax()

	fmt.Fprintf(r.Stdout, "file: %s\n", path)
	fmt.Fprintf(r.Stdout, "samples: %d (%.2fs at %d Hz)\n", len(samples), duration.Seconds(), rate)
	fmt.Fprintf(r.Stdout, "log-mel: %d frames x %d bands\n", matrix.Frames, matrix.Bands)
	fmt.Fprintf(r.Stdout, "range: [%.1f, %.1f] dB\n", min, max)
	return 0
}

// commandHistory prints the most recent transcribed utterances.
func (r Runner) commandHistory(ctx context.Context, cfg config.Config, args []string) int {
	if cfg.History.Path == "" {
		fmt.Fprintln(r.Stderr, "error: history is disabled (history.path is \"off\")")
		return 1
	}

	limit := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			fmt.Fprintf(r.Stderr, "error: history count must be a positive integer, got %q\n", args[0])
			return 2
		}
		limit = n
	}

	store, err := history.Open(ctx, cfg.History.Path)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	for _, entry := range entries {
		fmt.Fprintf(r.Stdout, "%s  %s\n", entry.CreatedAt.Local().Format("2006-01-02 15:04:05"), entry.Text)
	}
	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.SocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "idle"
		}
		fmt.Fprintln(r.Stdout, resp.State)
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.SocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: no active vinu listener")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// tryForward sends one command to a running listener. handled is false when
// nobody owns the socket.
func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.IsSocketMissing(err) || ipc.IsConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}
