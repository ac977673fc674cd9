package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/ravitez/vinu/internal/config"
	"github.com/ravitez/vinu/internal/wave"
)

const serverRequestTimeout = 30 * time.Second

// serverEngine submits each window to a whisper-server /inference endpoint
// as a multipart WAV upload.
type serverEngine struct {
	baseURL  string
	language string
	httpc    *http.Client
}

func newServerEngine(cfg config.EngineConfig) (Engine, error) {
	return &serverEngine{
		baseURL:  cfg.ServerURL,
		language: cfg.Language,
		httpc:    &http.Client{Timeout: serverRequestTimeout},
	}, nil
}

func (e *serverEngine) Transcribe(ctx context.Context, samples []float32) ([]Segment, error) {
	wavData, err := wave.Marshal(samples, config.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("encode inference window: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(wavData); err != nil {
		return nil, fmt.Errorf("write wav form data: %w", err)
	}
	if e.language != "" {
		if err := mw.WriteField("language", e.language); err != nil {
			return nil, fmt.Errorf("write language field: %w", err)
		}
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return nil, fmt.Errorf("write response_format field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	endpoint := e.baseURL + "/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("create inference request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := e.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read inference response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference server returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse inference response: %w", err)
	}

	if result.Text == "" {
		return nil, nil
	}
	return []Segment{{Text: result.Text, End: windowDuration(len(samples))}}, nil
}

func (e *serverEngine) Close() error {
	e.httpc.CloseIdleConnections()
	return nil
}

// windowDuration converts a sample count at the fixed rate to a duration.
func windowDuration(samples int) time.Duration {
	return time.Duration(samples) * time.Second / config.SampleRate
}
