package feedback

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/admitai/admitai-korea/internal/config"
)

const defaultGeminiModel = "gemini-2.0-flash"

const systemInstruction = "You are an expert college admissions essay consultant who helps Korean students " +
	"apply to U.S. colleges. Give constructive, culturally aware feedback that strengthens the student's " +
	"own voice. Never rewrite the essay for them."

// Gemini generates feedback with the Gemini API
type Gemini struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

// NewGemini creates a Gemini-backed generator. An API key is required.
func NewGemini(ctx context.Context, cfg config.AIConfig) (*Gemini, error) {
	return newGemini(ctx, cfg, genai.HTTPOptions{})
}

func newGemini(ctx context.Context, cfg config.AIConfig, httpOpts genai.HTTPOptions) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required (ai.api_key)")
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	maxTokens := int32(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 800
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini{client: client, model: model, maxTokens: maxTokens}, nil
}

// Model returns the configured model name.
func (g *Gemini) Model() string {
	return g.model
}

// Provider implements Generator
func (g *Gemini) Provider() string {
	return "gemini"
}

// Generate implements Generator
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(buildPrompt(req), genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		MaxOutputTokens:   g.maxTokens,
		Temperature:       genai.Ptr[float32](0.7),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return text, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder
	switch req.Kind {
	case KindCulturalFit:
		b.WriteString("Analyze this essay draft and give specific suggestions for how a Korean student can ")
		b.WriteString("better present their cultural background and experiences for U.S. college admissions. ")
		b.WriteString("Focus on authenticity and cultural pride while keeping the content accessible to U.S. admissions officers.")
	default:
		b.WriteString("Review this answer to a storytelling prompt. Comment on narrative structure, concrete detail, ")
		b.WriteString("and what it reveals about the writer. End with two or three actionable suggestions.")
	}
	if korean(req.Language) {
		b.WriteString(" Respond in Korean.")
	} else {
		b.WriteString(" Respond in English.")
	}
	b.WriteString("\n\nText:\n")
	b.WriteString(req.Text)
	return b.String()
}
