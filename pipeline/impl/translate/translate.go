package translate

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrTranslationFailure is recoverable: callers keep the original text.
var ErrTranslationFailure = errors.New("translation failed")

// AutoDetect lets the backend detect the source language.
const AutoDetect = "auto"

// Translator turns text in the source language into the target language.
// Language codes are BCP 47 tags, e.g. "en", "uk", "pt-BR"; source may be AutoDetect.
type Translator interface {
	Translate(ctx context.Context, text string, source string, target string) (string, error)
}

// Func adapts a plain function to Translator.
type Func func(ctx context.Context, text string, source string, target string) (string, error)

func (f Func) Translate(ctx context.Context, text string, source string, target string) (string, error) {
	return f(ctx, text, source, target)
}

// Identity returns the text unchanged. Used when no translation backend is configured.
type Identity struct{}

func (Identity) Translate(_ context.Context, text string, _ string, _ string) (string, error) {
	return text, nil
}

// WithNumericPassthrough never sends numbers to the backend. A text that parses as an
// integer once thousands-separator commas and digit-group underscores are removed is
// returned as that integer. E.g., "1,234" -> "1234", "1_000" -> "1000"
func WithNumericPassthrough(translator Translator) Translator {
	return Func(func(ctx context.Context, text string, source string, target string) (string, error) {
		if number, ok := parseInteger(text); ok {
			return number, nil
		}
		return translator.Translate(ctx, text, source, target)
	})
}

func parseInteger(text string) (string, bool) {
	digits, ok := withoutDigitGroupUnderscores(strings.TrimSpace(strings.ReplaceAll(text, ",", "")))
	if !ok {
		return "", false
	}
	value, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return "", false
	}
	return value.String(), true
}

// Underscores are only accepted between two digits. E.g., "1_000" but not "_1" or "1__0".
func withoutDigitGroupUnderscores(text string) (string, bool) {
	isDigit := func(c byte) bool { return c >= '0' && c <= '9' }
	var digits strings.Builder
	for i := 0; i < len(text); i++ {
		if text[i] != '_' {
			digits.WriteByte(text[i])
			continue
		}
		if i == 0 || i == len(text)-1 || !isDigit(text[i-1]) || !isDigit(text[i+1]) {
			return "", false
		}
	}
	return digits.String(), true
}

// WithRetry retries failed translations at a constant interval, at most maxRetries times.
// Retries stop early when ctx is done.
func WithRetry(translator Translator, interval time.Duration, maxRetries uint64) Translator {
	return Func(func(ctx context.Context, text string, source string, target string) (string, error) {
		return backoff.RetryWithData(func() (string, error) {
			return translator.Translate(ctx, text, source, target)
		}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), maxRetries), ctx))
	})
}

// ParseLanguage validates a language code. AutoDetect parses to language.Und.
func ParseLanguage(code string) (language.Tag, error) {
	if code == "" || code == AutoDetect {
		return language.Und, nil
	}
	tag, err := language.Parse(code)
	if err != nil {
		return language.Und, fmt.Errorf("invalid language %q: %w", code, err)
	}
	return tag, nil
}

// languageName returns the English name of a language code for prompts. E.g., "uk" -> "Ukrainian"
func languageName(code string) string {
	tag, err := ParseLanguage(code)
	if err != nil || tag == language.Und {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

func sourceClause(source string) string {
	if source == "" || source == AutoDetect {
		return ""
	}
	return " from " + languageName(source)
}
