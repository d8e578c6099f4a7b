// Package ai wraps the language model behind small capability interfaces.
// Callers depend on the interfaces so tests can swap in fakes.
package ai

import (
	"context"
	"errors"

	"keuangan/internal/clock"
	"keuangan/internal/core"
)

// ErrUnavailable is returned when no model is configured.
var ErrUnavailable = errors.New("ai model unavailable")

// Extractor turns free text or a receipt image into transaction candidates.
// An empty slice with a nil error means the model found nothing.
type Extractor interface {
	ExtractText(ctx context.Context, text string, now clock.Info) ([]core.RawTransaction, error)
	ExtractImage(ctx context.Context, image []byte, mimeType string, now clock.Info) ([]core.RawTransaction, error)
}

// IntentClassifier decides what a non-command message is asking for.
type IntentClassifier interface {
	ClassifyIntent(ctx context.Context, text string, now clock.Info) (core.QueryIntent, error)
}

// Answerer answers an open question given a rendered financial context.
type Answerer interface {
	Answer(ctx context.Context, question, financialContext string, now clock.Info) (string, error)
}

// HelpWriter produces the /help text.
type HelpWriter interface {
	Help(ctx context.Context) (string, error)
}

// Model is the full capability set.
type Model interface {
	Extractor
	IntentClassifier
	Answerer
	HelpWriter
}

// Unavailable is the Model used when no API key is configured.
type Unavailable struct{}

var _ Model = Unavailable{}

func (Unavailable) ExtractText(context.Context, string, clock.Info) ([]core.RawTransaction, error) {
	return nil, ErrUnavailable
}

func (Unavailable) ExtractImage(context.Context, []byte, string, clock.Info) ([]core.RawTransaction, error) {
	return nil, ErrUnavailable
}

func (Unavailable) ClassifyIntent(context.Context, string, clock.Info) (core.QueryIntent, error) {
	return core.QueryIntent{}, ErrUnavailable
}

func (Unavailable) Answer(context.Context, string, string, clock.Info) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) Help(context.Context) (string, error) {
	return "", ErrUnavailable
}
