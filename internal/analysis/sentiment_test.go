package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"reviewlens/pkg/domain"
)

func hfResponse(scores ...hfLabelScore) [][]hfLabelScore {
	return [][]hfLabelScore{scores}
}

func TestClassifyMapsStarLabels(t *testing.T) {
	cases := []struct {
		label string
		want  domain.Sentiment
	}{
		{"1 star", domain.SentimentNegative},
		{"2 stars", domain.SentimentNegative},
		{"3 stars", domain.SentimentNeutral},
		{"4 stars", domain.SentimentPositive},
		{"5 stars", domain.SentimentPositive},
		{"POSITIVE", domain.SentimentPositive},
		{"NEGATIVE", domain.SentimentNegative},
		{"LABEL_2", domain.SentimentPositive},
		{"LABEL_0", domain.SentimentNegative},
		{"LABEL_1", domain.SentimentNeutral},
	}
	for _, tc := range cases {
		t.Run(tc.label, func(t *testing.T) {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(hfResponse(hfLabelScore{Label: tc.label, Score: 0.88}))
			}))
			defer upstream.Close()

			c := NewHuggingFaceClassifier(upstream.URL, "", "test-model")
			res, err := c.Classify(context.Background(), "Battery life is excellent.")
			if err != nil {
				t.Fatalf("classify: %v", err)
			}
			if res.Label != tc.want {
				t.Fatalf("label %q mapped to %q, want %q", tc.label, res.Label, tc.want)
			}
			if res.Score != 0.88 {
				t.Fatalf("score = %v, want 0.88", res.Score)
			}
		})
	}
}

func TestClassifyPicksTopScore(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(hfResponse(
			hfLabelScore{Label: "1 star", Score: 0.1},
			hfLabelScore{Label: "5 stars", Score: 0.7},
			hfLabelScore{Label: "3 stars", Score: 0.2},
		))
	}))
	defer upstream.Close()

	c := NewHuggingFaceClassifier(upstream.URL, "", "test-model")
	res, err := c.Classify(context.Background(), "Great quality and fast shipping.")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Label != domain.SentimentPositive || res.Score != 0.7 {
		t.Fatalf("got (%q, %v), want (positive, 0.7)", res.Label, res.Score)
	}
}

func TestClassifyTimeout(t *testing.T) {
	blocked := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer upstream.Close()
	defer close(blocked)

	c := NewHuggingFaceClassifier(upstream.URL, "", "test-model")
	c.warmOnce.Do(func() {}) // skip warm-up so the deadline applies to the call itself

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := c.Classify(ctx, "Slow upstream review text here.")
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Fatalf("err = %v, want ErrUpstreamTimeout", err)
	}
}

func TestClassifyUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "model is overloaded"})
	}))
	defer upstream.Close()

	c := NewHuggingFaceClassifier(upstream.URL, "", "test-model")
	c.warmOnce.Do(func() {})

	_, err := c.Classify(context.Background(), "Any review text at all.")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestClassifyWarmUpRunsOnce(t *testing.T) {
	var warmups atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req hfRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Options != nil && req.Options.WaitForModel {
			warmups.Add(1)
		}
		_ = json.NewEncoder(w).Encode(hfResponse(hfLabelScore{Label: "4 stars", Score: 0.9}))
	}))
	defer upstream.Close()

	c := NewHuggingFaceClassifier(upstream.URL, "", "test-model")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Classify(context.Background(), "Concurrent first call review."); err != nil {
				t.Errorf("classify: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := warmups.Load(); got != 1 {
		t.Fatalf("warm-up ran %d times, want exactly once", got)
	}
}

func TestClassifyTruncatesLongInput(t *testing.T) {
	var gotLen int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req hfRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotLen = len(req.Inputs)
		_ = json.NewEncoder(w).Encode(hfResponse(hfLabelScore{Label: "3 stars", Score: 0.5}))
	}))
	defer upstream.Close()

	c := NewHuggingFaceClassifier(upstream.URL, "", "test-model")
	c.warmOnce.Do(func() {})

	long := make([]byte, 4500)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := c.Classify(context.Background(), string(long)); err != nil {
		t.Fatalf("classify: %v", err)
	}
	if gotLen != maxClassifyChars {
		t.Fatalf("upstream saw %d chars, want truncated to %d", gotLen, maxClassifyChars)
	}
}

func TestClassifyTruncationKeepsRuneBoundary(t *testing.T) {
	var gotInput string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req hfRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotInput = req.Inputs
		_ = json.NewEncoder(w).Encode(hfResponse(hfLabelScore{Label: "3 stars", Score: 0.5}))
	}))
	defer upstream.Close()

	c := NewHuggingFaceClassifier(upstream.URL, "", "test-model")
	c.warmOnce.Do(func() {})

	// 3-byte runes: 4200 bytes total, the 4000-byte mark falls mid-rune.
	long := strings.Repeat("世", 1400)
	if _, err := c.Classify(context.Background(), long); err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(gotInput) > maxClassifyChars {
		t.Fatalf("upstream saw %d bytes, want at most %d", len(gotInput), maxClassifyChars)
	}
	if !utf8.ValidString(gotInput) {
		t.Fatalf("truncation split a rune, input no longer valid UTF-8")
	}
	if gotInput != long[:len(gotInput)] {
		t.Fatalf("truncated input diverged from prefix of original")
	}
}
