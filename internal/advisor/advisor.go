// Package advisor turns a spending report into conversational advice
// using Gemini. It is optional: without an API key the rest of the
// application runs unaffected.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/core"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.0-flash"

// ErrNotConfigured is returned by New when no API key is available.
var ErrNotConfigured = errors.New("advisor not configured (set GEMINI_API_KEY)")

type Advisor struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, apiKey, model string) (*Advisor, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Advisor{client: client, model: model}, nil
}

// Model returns the configured model name.
func (a *Advisor) Model() string {
	return a.model
}

// Advise answers a question about the given report. The model is told to
// stay within the report's figures; an empty question asks for a general
// assessment.
func (a *Advisor) Advise(ctx context.Context, question string, report core.Report) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildPrompt(question, report)},
			},
		},
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := cleanModelText(resp.Text())
	if text == "" {
		return "", errors.New("empty response from model")
	}
	return text, nil
}

func buildPrompt(question string, report core.Report) string {
	question = strings.TrimSpace(question)
	if question == "" {
		question = "Give a short overall assessment of this spending."
	}

	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		reportJSON = []byte("{}")
	}

	var b strings.Builder
	b.WriteString("You are a personal finance advisor reviewing one user's spending report.\n\n")
	b.WriteString("Ground every statement in the report below and do not invent figures.\n")
	b.WriteString("Answer in plain text, in a few short sentences, without Markdown.\n\n")
	b.WriteString("Spending report (JSON):\n")
	b.Write(reportJSON)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n")
	return b.String()
}

// cleanModelText strips a wrapping Markdown fence if the model ignored
// the plain-text instruction.
func cleanModelText(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	idx := strings.Index(s, "\n")
	if idx == -1 {
		// Single-line weirdness; just return as-is.
		return s
	}
	s = s[idx+1:]

	if end := strings.LastIndex(s, "```"); end != -1 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}
