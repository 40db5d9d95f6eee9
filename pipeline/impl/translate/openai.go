package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ChatCompletionClient is the part of *openai.Client used for translation.
// This interface is used for mocking the OpenAI client in unit tests.
type ChatCompletionClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type openaiTranslator struct {
	client ChatCompletionClient
	model  string
}

// NewOpenAI translates with a chat completion model, openai.GPT3Dot5Turbo when model is empty.
func NewOpenAI(client ChatCompletionClient, model string) Translator {
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &openaiTranslator{client: client, model: model}
}

func (t *openaiTranslator) Translate(ctx context.Context, text string, source string, target string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	request := openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a professional translator. Translate text accurately while preserving the original meaning and tone.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt(text, source, target),
			},
		},
		Temperature: 0.3,
		MaxTokens:   2000,
	}

	response, err := t.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranslationFailure, err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: %w", ErrTranslationFailure, errors.New("no translation response"))
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

// The text is OCR output of one paragraph, so line breaks have already been replaced by spaces.
func prompt(text string, source string, target string) string {
	return fmt.Sprintf(`Translate the following text%s to %s. Return only the translation on a single line. Do not include any explanations or additional text.

%s`, sourceClause(source), languageName(target), text)
}
