package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/core"
)

func TestNewWithoutAPIKey(t *testing.T) {
	_, err := New(context.Background(), "", "")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	_, err = New(context.Background(), "   ", "gemini-2.0-flash")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured for blank key, got %v", err)
	}
}

func TestNewDefaultsModel(t *testing.T) {
	a, err := New(context.Background(), "test-key", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Model() != DefaultModel {
		t.Errorf("Model() = %q, want %q", a.Model(), DefaultModel)
	}

	a, err = New(context.Background(), "test-key", "gemini-1.5-pro")
	if err != nil {
		t.Fatalf("New with model: %v", err)
	}
	if a.Model() != "gemini-1.5-pro" {
		t.Errorf("Model() = %q, want gemini-1.5-pro", a.Model())
	}
}

func TestBuildPrompt(t *testing.T) {
	report := core.GenerateReport([]core.Transaction{
		{Date: "2024-01-05", Merchant: "Starbucks", Amount: 4.50, Category: core.CategoryDining, Description: "Starbucks"},
		{Date: "2024-01-20", Merchant: "Shell Gas", Amount: 40.00, Category: core.CategoryTransport, Description: "Shell Gas"},
	})

	prompt := buildPrompt("Where does most of my money go?", report)

	for _, want := range []string{
		"Where does most of my money go?",
		`"totalSpent": 44.5`,
		`"Transport": 40`,
		"do not invent figures",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPromptDefaultQuestion(t *testing.T) {
	prompt := buildPrompt("   ", core.GenerateReport(nil))
	if !strings.Contains(prompt, "overall assessment") {
		t.Errorf("expected default question in prompt:\n%s", prompt)
	}
}

func TestCleanModelText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text untouched",
			in:   "Dining is your largest category.",
			want: "Dining is your largest category.",
		},
		{
			name: "surrounding whitespace trimmed",
			in:   "  advice here \n",
			want: "advice here",
		},
		{
			name: "fenced block unwrapped",
			in:   "```\nDining is your largest category.\n```",
			want: "Dining is your largest category.",
		},
		{
			name: "language fence unwrapped",
			in:   "```text\nSpend less on coffee.\n```",
			want: "Spend less on coffee.",
		},
		{
			name: "single line fence returned as is",
			in:   "```odd```",
			want: "```odd```",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelText(tt.in); got != tt.want {
				t.Errorf("cleanModelText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
