// Package translator translates abstracts with a language model. It never
// fails: when the model is missing or errors, the source text is returned.
package translator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ryosukesatoh/arxiv-digest/internal/fallback"
	"github.com/ryosukesatoh/arxiv-digest/internal/llm"
)

type Translator struct {
	language  string
	completer llm.Completer
	log       zerolog.Logger
}

// New returns a translator into language. A nil completer turns it into a
// pass-through.
func New(language string, completer llm.Completer, log zerolog.Logger) *Translator {
	return &Translator{
		language:  language,
		completer: completer,
		log:       log.With().Str("component", "translator").Logger(),
	}
}

func (t *Translator) Translate(ctx context.Context, text string) fallback.Result[string] {
	if t.completer == nil {
		return fallback.Default(text, fallback.ErrNoCredentials)
	}

	return fallback.Do(ctx, t.log, "translate", text, func(ctx context.Context) (string, error) {
		return t.completer.Complete(ctx, llm.Request{
			System:      fmt.Sprintf("Translate the user message from English to %s.", t.language),
			User:        text,
			Temperature: 0.2,
		})
	})
}
