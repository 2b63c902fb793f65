package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-pro"

	// Upstream is asked for 3-5 bullets; anything beyond this is noise.
	maxKeyPoints = 10
)

// GeminiExtractor extracts key points from review text via the Gemini API.
type GeminiExtractor struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewGeminiExtractor constructs an extractor with the provided API key.
func NewGeminiExtractor(baseURL, apiKey, model string) (*GeminiExtractor, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	model = strings.TrimSpace(strings.TrimPrefix(model, "models/"))
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiExtractor{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		// Per-call deadlines come from the caller's context.
		httpClient: &http.Client{},
	}, nil
}

// Extract implements KeyPointExtractor.
func (g *GeminiExtractor) Extract(ctx context.Context, text, productName string) ([]string, error) {
	raw, err := g.generate(ctx, buildKeyPointPrompt(text, productName))
	if err != nil {
		return nil, fmt.Errorf("key point extraction: %w", err)
	}
	return parseKeyPoints(raw), nil
}

func buildKeyPointPrompt(text, productName string) string {
	productContext := ""
	if strings.TrimSpace(productName) != "" {
		productContext = fmt.Sprintf(" for %q", productName)
	}
	return fmt.Sprintf(`Analyze the following product review%s and extract 3-5 brief, bulleted key points.
Focus on product features, quality, and user sentiment.
Return ONLY the bullet points, one per line, without asterisks or numbering.
If the review is gibberish or has no meaningful content, return "No clear key points found".

Review: %q`, productContext, text)
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerateRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *GeminiExtractor) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := geminiGenerateRequest{
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: prompt}},
			},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", extractTransportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp geminiErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return "", fmt.Errorf("gemini api %s: %s: %w", resp.Status, errResp.Error.Message, ErrUpstreamUnavailable)
		}
		return "", fmt.Errorf("gemini api %s: %w", resp.Status, ErrUpstreamUnavailable)
	}
	var genResp geminiGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode gemini response: %w: %s", ErrUpstreamUnavailable, err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty gemini response: %w", ErrUpstreamUnavailable)
	}
	return genResp.Candidates[0].Content.Parts[0].Text, nil
}

func extractTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrUpstreamTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s", ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %s", ErrUpstreamUnavailable, err)
}

// parseKeyPoints turns the model's line-oriented output into clean points:
// bullet/number prefixes stripped, blank lines dropped, case-insensitive
// duplicates removed, capped at maxKeyPoints. The "nothing found" sentinel
// maps to an empty (successful) result.
func parseKeyPoints(raw string) []string {
	points := make([]string, 0, maxKeyPoints)
	seen := make(map[string]struct{}, maxKeyPoints)
	for _, line := range strings.Split(raw, "\n") {
		point := trimBullet(line)
		if point == "" {
			continue
		}
		if strings.EqualFold(point, "No clear key points found") {
			continue
		}
		key := strings.ToLower(point)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		points = append(points, point)
		if len(points) == maxKeyPoints {
			break
		}
	}
	return points
}

func trimBullet(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimLeft(s, "-*•· \t")
	// Numbered lists: "1." / "2)" prefixes.
	if i := strings.IndexAny(s, ".)"); i > 0 && i <= 2 {
		if _, err := strconv.Atoi(s[:i]); err == nil {
			s = s[i+1:]
		}
	}
	return strings.TrimSpace(s)
}
