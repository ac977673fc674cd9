// Package doctor runs readiness diagnostics for config, audio, engine, and IPC.
package doctor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
	"github.com/nats-io/nats.go"

	"github.com/ravitez/vinu/internal/audio"
	"github.com/ravitez/vinu/internal/config"
	"github.com/ravitez/vinu/internal/ipc"
)

// Status is the severity of one check outcome.
type Status string

const (
	StatusPass Status = "PASS"
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Status  Status
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when no check failed. Warnings do not fail the report.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if check.Status == StatusFail {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", check.Status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	checks := []Check{checkConfig(loaded)}
	for _, w := range loaded.Warnings {
		checks = append(checks, Check{Name: "config", Status: StatusWarn, Message: w.Message})
	}

	checks = append(checks,
		checkStateDir(),
		checkAudioSelection(ctx, loaded.Config),
		checkEngine(ctx, loaded.Config.Engine),
		checkSocket(ctx),
	)

	if url := strings.TrimSpace(loaded.Config.Sinks.NATS.URL); url != "" {
		checks = append(checks, checkBus(url))
	}

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Status: StatusWarn, Message: fmt.Sprintf("%q not found; using defaults", loaded.Path)}
	}
	return Check{Name: "config", Status: StatusPass, Message: fmt.Sprintf("loaded %q", loaded.Path)}
}

// checkStateDir verifies the state directory exists and is writable.
func checkStateDir() Check {
	dir, err := config.StateDir()
	if err != nil {
		return Check{Name: "state.dir", Status: StatusFail, Message: err.Error()}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Check{Name: "state.dir", Status: StatusFail, Message: fmt.Sprintf("create %q: %v", dir, err)}
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return Check{Name: "state.dir", Status: StatusFail, Message: fmt.Sprintf("%q is not writable: %v", dir, err)}
	}
	probe.Close()
	os.Remove(probe.Name())
	return Check{Name: "state.dir", Status: StatusPass, Message: fmt.Sprintf("%q is writable", dir)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Status: StatusFail, Message: err.Error()}
	}
	if selection.Warning != "" {
		return Check{Name: "audio.device", Status: StatusWarn, Message: fmt.Sprintf("selected %q (%s)", selection.Device.ID, selection.Warning)}
	}
	return Check{Name: "audio.device", Status: StatusPass, Message: fmt.Sprintf("selected %q", selection.Device.ID)}
}

// checkEngine verifies the configured backend can plausibly transcribe.
func checkEngine(ctx context.Context, cfg config.EngineConfig) Check {
	switch cfg.Backend {
	case config.BackendNative:
		return checkModelFile(cfg.ModelPath)
	case config.BackendServer:
		return checkServerHealth(ctx, cfg.ServerURL)
	case config.BackendExec:
		return checkExecCommand(cfg.Command)
	default:
		return Check{Name: "engine", Status: StatusFail, Message: fmt.Sprintf("unknown backend %q", cfg.Backend)}
	}
}

// checkModelFile verifies the ggml model exists and looks like a model file.
func checkModelFile(path string) Check {
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: "engine.model", Status: StatusFail, Message: fmt.Sprintf("model %q: %v", path, err)}
	}
	if info.IsDir() {
		return Check{Name: "engine.model", Status: StatusFail, Message: fmt.Sprintf("model %q is a directory", path)}
	}
	// Whisper ggml checkpoints are never tiny; a short file is a broken download.
	if info.Size() < 1<<20 {
		return Check{Name: "engine.model", Status: StatusWarn, Message: fmt.Sprintf("model %q is only %d bytes; download may be incomplete", path, info.Size())}
	}
	return Check{Name: "engine.model", Status: StatusPass, Message: fmt.Sprintf("model %q (%d MiB)", path, info.Size()>>20)}
}

// checkServerHealth probes the transcription server's health endpoint.
func checkServerHealth(ctx context.Context, baseURL string) Check {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		return Check{Name: "engine.server", Status: StatusFail, Message: "engine.server_url is empty"}
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	url := strings.TrimRight(base, "/") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Check{Name: "engine.server", Status: StatusFail, Message: err.Error()}
	}

	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Check{Name: "engine.server", Status: StatusFail, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 256))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Check{Name: "engine.server", Status: StatusFail, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, url)}
	}
	return Check{Name: "engine.server", Status: StatusPass, Message: fmt.Sprintf("ready at %s", url)}
}

// checkExecCommand validates the exec backend's command line and binary.
func checkExecCommand(command string) Check {
	if strings.TrimSpace(command) == "" {
		return Check{Name: "engine.exec", Status: StatusFail, Message: "engine.command is empty"}
	}
	argv, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return Check{Name: "engine.exec", Status: StatusFail, Message: fmt.Sprintf("parse command: %v", err)}
	}
	if len(argv) == 0 {
		return Check{Name: "engine.exec", Status: StatusFail, Message: "engine.command parsed to nothing"}
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return Check{Name: "engine.exec", Status: StatusFail, Message: fmt.Sprintf("binary not found in PATH: %s", argv[0])}
	}
	return Check{Name: "engine.exec", Status: StatusPass, Message: fmt.Sprintf("found %s at %s", argv[0], path)}
}

// checkSocket reports whether a live listener owns the control socket.
func checkSocket(ctx context.Context) Check {
	path, err := ipc.SocketPath()
	if err != nil {
		return Check{Name: "ipc.socket", Status: StatusFail, Message: err.Error()}
	}
	alive, err := ipc.Probe(ctx, path, 500*time.Millisecond)
	if err != nil {
		return Check{Name: "ipc.socket", Status: StatusWarn, Message: fmt.Sprintf("probe %s: %v", path, err)}
	}
	if alive {
		return Check{Name: "ipc.socket", Status: StatusPass, Message: fmt.Sprintf("listener running at %s", path)}
	}
	return Check{Name: "ipc.socket", Status: StatusPass, Message: fmt.Sprintf("no listener at %s", path)}
}

// checkBus dials the configured NATS broker.
func checkBus(url string) Check {
	conn, err := nats.Connect(url, nats.Name("vinu-doctor"), nats.Timeout(2*time.Second))
	if err != nil {
		return Check{Name: "sinks.nats", Status: StatusFail, Message: fmt.Sprintf("connect %s: %v", url, err)}
	}
	defer conn.Close()
	return Check{Name: "sinks.nats", Status: StatusPass, Message: fmt.Sprintf("connected to %s", conn.ConnectedUrl())}
}
