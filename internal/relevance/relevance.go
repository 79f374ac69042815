// Package relevance decides whether an abstract belongs to a configured
// research field by asking a language model a yes/no question.
package relevance

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ryosukesatoh/arxiv-digest/internal/fallback"
	"github.com/ryosukesatoh/arxiv-digest/internal/llm"
)

// Classifier filters abstracts by field. The zero field disables filtering.
type Classifier struct {
	field     string
	completer llm.Completer
	log       zerolog.Logger
}

// New returns a classifier for field. A nil completer means no model
// credentials are configured.
func New(field string, completer llm.Completer, log zerolog.Logger) *Classifier {
	return &Classifier{
		field:     strings.TrimSpace(field),
		completer: completer,
		log:       log.With().Str("component", "relevance").Logger(),
	}
}

// Enabled reports whether a target field is configured.
func (c *Classifier) Enabled() bool {
	return c.field != ""
}

// Classify reports whether abstract belongs to the configured field. With no
// field every abstract matches. With a field but no model the answer is false.
// A failed model call also yields false.
func (c *Classifier) Classify(ctx context.Context, abstract string) fallback.Result[bool] {
	if !c.Enabled() {
		return fallback.Ok(true)
	}
	if c.completer == nil {
		return fallback.Default(false, fallback.ErrNoCredentials)
	}

	return fallback.Do(ctx, c.log, "classify", false, func(ctx context.Context) (bool, error) {
		answer, err := c.completer.Complete(ctx, llm.Request{
			User:        prompt(c.field, abstract),
			Temperature: 0,
		})
		if err != nil {
			return false, err
		}
		return isYes(answer), nil
	})
}

func prompt(field, abstract string) string {
	return fmt.Sprintf("Does the following abstract belong to the field '%s'? Answer Yes or No.\n%s", field, abstract)
}

func isYes(answer string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "yes")
}
