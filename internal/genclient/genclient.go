// Package genclient wraps the Gemini client used to generate demo
// walkthrough scripts. It asks the model for JSON output and hands the
// raw candidate text back; validation of that text happens elsewhere.
package genclient

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrNoAPIKey reports missing Gemini credential configuration.
var ErrNoAPIKey = errors.New("gemini api key is not configured")

// Generator wraps the Gemini client and model used for script
// generation.
type Generator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGenerator initializes the Gemini client for the given model.
// Extra options are for tests that redirect the endpoint.
func NewGenerator(ctx context.Context, apiKey, modelName string, extra ...option.ClientOption) (*Generator, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	opts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, extra...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	// The walkthrough schema is enforced downstream; asking for JSON
	// here keeps markdown fences and prose out of the candidate text.
	model.ResponseMIMEType = "application/json"

	return &Generator{client: client, model: model}, nil
}

// Close releases underlying resources.
func (g *Generator) Close() {
	if g == nil || g.client == nil {
		return
	}
	if err := g.client.Close(); err != nil {
		log.Printf("warning: failed to close Gemini client: %v", err)
	}
}

// Generate sends the prompt and returns the first candidate's text
// payload. It never retries; a failed generation is reported to the
// caller verbatim.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.model == nil {
		return "", ErrNoAPIKey
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return extractText(resp)
}

// extractText pulls the first candidate's text part out of a
// generation response.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil ||
		resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidate text in model response")
	}
	part := resp.Candidates[0].Content.Parts[0]
	text, ok := part.(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response part type from model: %T", part)
	}
	return string(text), nil
}
