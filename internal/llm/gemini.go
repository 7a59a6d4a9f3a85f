// Package llm optionally polishes event titles and locations using the
// Gemini REST API. The pipeline treats it as best-effort: any failure
// falls back to the heuristic values.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Enrichment is the polished title and location for one message.
type Enrichment struct {
	Title    string `json:"title"`
	Location string `json:"location"`
}

// Enricher produces an Enrichment from a message's raw fields.
type Enricher interface {
	Enrich(ctx context.Context, sender, subject, body string) (*Enrichment, error)
}

// GeminiEnricher talks to Google AI Studio's generateContent endpoint.
type GeminiEnricher struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGeminiEnricher creates an enricher for the given model.
func NewGeminiEnricher(apiKey, model string) *GeminiEnricher {
	return &GeminiEnricher{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const enrichPrompt = `You are given an email announcing an event. Reply with a JSON object
with exactly two string fields: "title" (a short calendar title for the
event, at most 8 words) and "location" (the venue, or "" if none is
mentioned). Do not add any other fields or text.

Sender: %s
Subject: %s

%s`

// Enrich asks the model for a short title and a venue. Responses that are
// not the requested JSON shape are reported as errors so the caller can
// fall back.
func (g *GeminiEnricher) Enrich(ctx context.Context, sender, subject, body string) (*Enrichment, error) {
	req := geminiRequest{
		Contents: []geminiContent{
			{
				Parts: []geminiPart{{Text: fmt.Sprintf(enrichPrompt, sender, subject, body)}},
				Role:  "user",
			},
		},
		GenerationConfig: &geminiGenConfig{
			Temperature:      0,
			ResponseMimeType: "application/json",
		},
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var gResp geminiResponse
	if err := json.Unmarshal(respBody, &gResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if gResp.Error != nil {
		return nil, fmt.Errorf("gemini API error: %s (code %d)", gResp.Error.Message, gResp.Error.Code)
	}
	if len(gResp.Candidates) == 0 || len(gResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from gemini API")
	}

	text := stripFences(gResp.Candidates[0].Content.Parts[0].Text)
	var enrichment Enrichment
	if err := json.Unmarshal([]byte(text), &enrichment); err != nil {
		return nil, fmt.Errorf("failed to parse enrichment: %w", err)
	}
	return &enrichment, nil
}

// stripFences removes a markdown code fence some models wrap JSON in even
// when a JSON mime type was requested.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
