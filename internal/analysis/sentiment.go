package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"reviewlens/pkg/domain"
)

const (
	defaultHuggingFaceBaseURL = "https://api-inference.huggingface.co"
	defaultSentimentModel     = "nlptown/bert-base-multilingual-uncased-sentiment"

	// The model truncates internally at 512 tokens; cap input well before
	// that to keep request bodies small.
	maxClassifyChars = 4000
)

// HuggingFaceClassifier calls the Hugging Face inference API for sentiment.
// The hosted model cold-starts on first use, so the first call triggers a
// one-time warm-up that concurrent callers serialize on.
type HuggingFaceClassifier struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	warmOnce sync.Once
}

// NewHuggingFaceClassifier constructs a classifier for the given model.
// baseURL and model fall back to the hosted inference defaults; apiKey may
// be empty for public models.
func NewHuggingFaceClassifier(baseURL, apiKey, model string) *HuggingFaceClassifier {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultHuggingFaceBaseURL
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultSentimentModel
	}
	return &HuggingFaceClassifier{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		// Per-call deadlines come from the caller's context.
		httpClient: &http.Client{},
	}
}

type hfRequest struct {
	Inputs  string     `json:"inputs"`
	Options *hfOptions `json:"options,omitempty"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type hfLabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify implements SentimentClassifier.
func (c *HuggingFaceClassifier) Classify(ctx context.Context, text string) (SentimentResult, error) {
	c.warmOnce.Do(func() { c.warmUp(ctx) })

	if len(text) > maxClassifyChars {
		cut := maxClassifyChars
		// Back up so a multibyte rune is never split.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	scores, err := c.infer(ctx, hfRequest{Inputs: text})
	if err != nil {
		return SentimentResult{}, fmt.Errorf("sentiment classify: %w", err)
	}
	top := hfLabelScore{}
	for _, ls := range scores {
		if ls.Score > top.Score {
			top = ls
		}
	}
	if top.Label == "" {
		return SentimentResult{}, fmt.Errorf("sentiment classify: empty label set: %w", ErrUpstreamUnavailable)
	}
	return SentimentResult{
		Label: mapSentimentLabel(top.Label),
		Score: top.Score,
	}, nil
}

// warmUp forces the hosted model to load. Failure is tolerated: the
// classification call that follows reports its own error.
func (c *HuggingFaceClassifier) warmUp(ctx context.Context) {
	start := time.Now()
	_, err := c.infer(ctx, hfRequest{
		Inputs:  "warm up",
		Options: &hfOptions{WaitForModel: true},
	})
	if err != nil {
		slog.Warn("sentiment model warm-up failed", "model", c.model, "err", err)
		return
	}
	slog.Info("sentiment model ready", "model", c.model, "warm_up_ms", time.Since(start).Milliseconds())
}

func (c *HuggingFaceClassifier) infer(ctx context.Context, payload hfRequest) ([]hfLabelScore, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/models/%s", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var hfErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&hfErr)
		if hfErr.Error != "" {
			return nil, fmt.Errorf("inference api %s: %s: %w", resp.Status, hfErr.Error, ErrUpstreamUnavailable)
		}
		return nil, fmt.Errorf("inference api %s: %w", resp.Status, ErrUpstreamUnavailable)
	}

	// The API nests classification results one level deep: [[{label,score},...]].
	var nested [][]hfLabelScore
	if err := json.NewDecoder(resp.Body).Decode(&nested); err != nil {
		return nil, fmt.Errorf("decode inference response: %w: %s", ErrUpstreamUnavailable, err)
	}
	if len(nested) == 0 {
		return nil, nil
	}
	return nested[0], nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrUpstreamTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s", ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %s", ErrUpstreamUnavailable, err)
}

// mapSentimentLabel normalizes upstream label schemes onto the enum.
// The default model emits "1 star".."5 stars"; other checkpoints emit
// positive/negative or LABEL_n style labels.
func mapSentimentLabel(label string) domain.Sentiment {
	label = strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.HasPrefix(label, "1 star"), strings.HasPrefix(label, "2 star"):
		return domain.SentimentNegative
	case strings.HasPrefix(label, "4 star"), strings.HasPrefix(label, "5 star"):
		return domain.SentimentPositive
	case strings.HasPrefix(label, "3 star"):
		return domain.SentimentNeutral
	case strings.Contains(label, "positive"), label == "pos", label == "label_2":
		return domain.SentimentPositive
	case strings.Contains(label, "negative"), label == "neg", label == "label_0":
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}
