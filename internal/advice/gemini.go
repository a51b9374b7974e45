package advice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-1.5-flash"

// Gemini generates text with the Google Gemini API. One client is created at
// startup and shared by all requests.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini connects a Gemini client with an API key.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini: API key is empty")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return &Gemini{client: cl, model: model}, nil
}

// Generate sends prompt as a single user turn and returns the concatenated
// text parts of the first candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	m := g.client.GenerativeModel(g.model)
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	txt := candidateText(resp)
	if txt == "" {
		return "", errors.New("gemini: empty response")
	}
	return txt, nil
}

// Close releases the underlying connection.
func (g *Gemini) Close() error { return g.client.Close() }

func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}
