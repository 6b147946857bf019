package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("shiftcast")

// PromptSpec describes one pipeline stage's call: the stage name used
// for logging and error attribution, the system prompt, and the
// generation parameters. Every stage requests JSON output.
type PromptSpec struct {
	Stage       string
	System      string
	Temperature float64
	MaxTokens   int
}

// Invoker is the reasoning primitive every pipeline stage calls: send
// one prompt, get back the raw structured payload or fail.
type Invoker interface {
	Invoke(ctx context.Context, spec PromptSpec, input string) (string, error)
}

// Func adapts a plain function to the Invoker interface.
type Func func(ctx context.Context, spec PromptSpec, input string) (string, error)

func (f Func) Invoke(ctx context.Context, spec PromptSpec, input string) (string, error) {
	return f(ctx, spec, input)
}

// Options configure the HTTP client for the generative endpoint.
type Options struct {
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// Client calls the generateContent REST endpoint and returns the first
// candidate's text payload.
type Client struct {
	endpoint string
	model    string
	apiKey   string
	http     *http.Client
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		model:    opts.Model,
		apiKey:   opts.APIKey,
		http:     &http.Client{Timeout: timeout},
	}
}

type genPart struct {
	Text string `json:"text"`
}

type genContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []genPart `json:"parts"`
}

type genConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type genRequest struct {
	SystemInstruction *genContent  `json:"system_instruction,omitempty"`
	Contents          []genContent `json:"contents"`
	GenerationConfig  genConfig    `json:"generationConfig"`
}

type genResponse struct {
	Candidates []struct {
		Content      genContent `json:"content"`
		FinishReason string     `json:"finishReason,omitempty"`
	} `json:"candidates"`
}

// Invoke sends one prompt and returns the raw text of the first
// candidate. Transport and HTTP-status failures come back as plain
// errors for the retry layer to classify; an empty candidate list is
// malformed output and is never retried.
func (c *Client) Invoke(ctx context.Context, spec PromptSpec, input string) (string, error) {
	ctx, span := tracer.Start(ctx, "reasoning."+spec.Stage,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("reasoning.stage", spec.Stage),
			attribute.String("reasoning.model", c.model),
		),
	)
	defer span.End()

	body := genRequest{
		Contents: []genContent{
			{Role: "user", Parts: []genPart{{Text: input}}},
		},
		GenerationConfig: genConfig{
			Temperature:      spec.Temperature,
			MaxOutputTokens:  spec.MaxTokens,
			ResponseMIMEType: "application/json",
		},
	}
	if spec.System != "" {
		body.SystemInstruction = &genContent{Parts: []genPart{{Text: spec.System}}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.endpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("reasoning request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reasoning service returned %d: %s", resp.StatusCode, truncate(raw, 512))
	}

	var out genResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", Malformed(spec.Stage, fmt.Errorf("decode response: %w", err))
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", Malformed(spec.Stage, errors.New("no candidates in response"))
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := sb.String()

	log.Debug().
		Str("stage", spec.Stage).
		Int("bytes", len(text)).
		Msg("reasoning call complete")
	return text, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// DecodeInto strictly decodes a stage's JSON payload into v, wrapping
// any failure as malformed output. Markdown code fences around the
// payload are tolerated since some models emit them despite the JSON
// response mime type.
func DecodeInto(stage, payload string, v interface{}) error {
	if err := json.Unmarshal([]byte(stripFences(payload)), v); err != nil {
		return Malformed(stage, fmt.Errorf("parse output: %w", err))
	}
	return nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
