package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// ContentGenerator is the part of *genai.GenerativeModel used for translation.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type GenaiModel string

const (
	GenaiModelFlash GenaiModel = "gemini-1.5-flash"
)

type geminiTranslator struct {
	model ContentGenerator
}

// NewGemini translates with a Gemini model, e.g. client.GenerativeModel(string(GenaiModelFlash)).
func NewGemini(model ContentGenerator) Translator {
	return &geminiTranslator{model: model}
}

func (t *geminiTranslator) Translate(ctx context.Context, text string, source string, target string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	resp, err := t.model.GenerateContent(ctx, genai.Text(prompt(text, source, target)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranslationFailure, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: %w", ErrTranslationFailure, errors.New("no response from model"))
	}

	var translated strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			translated.WriteString(string(text))
		}
	}
	return strings.TrimSpace(translated.String()), nil
}
