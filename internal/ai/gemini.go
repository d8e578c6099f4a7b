package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"keuangan/internal/clock"
	"keuangan/internal/core"
	"keuangan/internal/log"
)

// DefaultModelName is used when GEMINI_MODEL is unset.
const DefaultModelName = "gemini-2.5-flash"

// generator is the single model call every capability goes through.
type generator interface {
	generate(ctx context.Context, parts []*genai.Part, jsonOut bool) (string, error)
}

type genaiGenerator struct {
	client *genai.Client
	model  string
}

func (g *genaiGenerator) generate(ctx context.Context, parts []*genai.Part, jsonOut bool) (string, error) {
	contents := []*genai.Content{{Role: "user", Parts: parts}}
	var cfg *genai.GenerateContentConfig
	if jsonOut {
		cfg = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty response from model")
	}
	return text, nil
}

// Gemini implements Model on top of the Gemini API.
type Gemini struct {
	gen    generator
	logger *log.Logger
}

var _ Model = (*Gemini)(nil)

// NewGemini creates a Gemini client for apiKey and model.
func NewGemini(ctx context.Context, apiKey, model string, logger *log.Logger) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}
	if model == "" {
		model = DefaultModelName
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGemini(&genaiGenerator{client: client, model: model}, logger), nil
}

func newGemini(gen generator, logger *log.Logger) *Gemini {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Gemini{gen: gen, logger: logger.WithComponent(log.ComponentAI)}
}

func (g *Gemini) ExtractText(ctx context.Context, text string, now clock.Info) ([]core.RawTransaction, error) {
	raw, err := g.gen.generate(ctx, []*genai.Part{{Text: textExtractionPrompt(text, now)}}, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrExtraction, err)
	}
	return g.decodeCandidates(ctx, raw)
}

func (g *Gemini) ExtractImage(ctx context.Context, image []byte, mimeType string, now clock.Info) ([]core.RawTransaction, error) {
	parts := []*genai.Part{
		{Text: imageExtractionPrompt(now)},
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
	}
	raw, err := g.gen.generate(ctx, parts, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrExtraction, err)
	}
	return g.decodeCandidates(ctx, raw)
}

func (g *Gemini) decodeCandidates(ctx context.Context, raw string) ([]core.RawTransaction, error) {
	out, err := ParseCandidates(raw)
	if err != nil {
		g.logger.WarnContext(ctx, "Model returned unparsable candidates",
			log.FieldOperation, log.OpExtract, log.FieldError, err.Error())
		return nil, err
	}
	return out, nil
}

func (g *Gemini) ClassifyIntent(ctx context.Context, text string, now clock.Info) (core.QueryIntent, error) {
	raw, err := g.gen.generate(ctx, []*genai.Part{{Text: intentPrompt(text, now)}}, true)
	if err != nil {
		return core.QueryIntent{}, err
	}
	return ParseIntent(raw)
}

func (g *Gemini) Answer(ctx context.Context, question, financialContext string, now clock.Info) (string, error) {
	text, err := g.gen.generate(ctx, []*genai.Part{{Text: answerPrompt(question, financialContext, now)}}, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (g *Gemini) Help(ctx context.Context) (string, error) {
	text, err := g.gen.generate(ctx, []*genai.Part{{Text: helpPrompt}}, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// ParseCandidates decodes a model reply into candidates. A single object is
// accepted as a one-element array. Elements are decoded one by one; a field
// of the wrong JSON type only affects its own candidate, and elements that
// are not objects are skipped.
func ParseCandidates(raw string) ([]core.RawTransaction, error) {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return nil, fmt.Errorf("%w: empty model output", core.ErrExtraction)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(clean), &elems); err != nil {
		one, err := decodeCandidate([]byte(clean))
		if err != nil {
			return nil, fmt.Errorf("%w: decode candidates: %w", core.ErrExtraction, err)
		}
		return []core.RawTransaction{one}, nil
	}
	out := make([]core.RawTransaction, 0, len(elems))
	for _, elem := range elems {
		c, err := decodeCandidate(elem)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// looseCandidate accepts any JSON type in every field.
type looseCandidate struct {
	Amount      *core.RawValue `json:"amount"`
	Category    *core.RawValue `json:"category"`
	Description *core.RawValue `json:"description"`
	Date        *core.RawValue `json:"date"`
}

func decodeCandidate(data []byte) (core.RawTransaction, error) {
	var c core.RawTransaction
	if err := json.Unmarshal(data, &c); err == nil {
		return c, nil
	}
	var loose looseCandidate
	if err := json.Unmarshal(data, &loose); err != nil {
		return core.RawTransaction{}, err
	}
	return core.RawTransaction{
		Amount:      loose.Amount,
		Category:    rawText(loose.Category),
		Description: rawText(loose.Description),
		Date:        rawText(loose.Date),
	}, nil
}

func rawText(v *core.RawValue) *string {
	if v == nil {
		return nil
	}
	s := v.Text
	return &s
}

// ParseIntent decodes and validates an intent object.
func ParseIntent(raw string) (core.QueryIntent, error) {
	var q core.QueryIntent
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &q); err != nil {
		return core.QueryIntent{}, fmt.Errorf("decode intent: %w", err)
	}
	q.Kind = core.IntentKind(strings.ToUpper(strings.TrimSpace(string(q.Kind))))
	if err := q.Validate(); err != nil {
		return core.QueryIntent{}, err
	}
	return q, nil
}

// cleanModelJSON strips Markdown fences and any prose around the outermost
// JSON array or object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return ""
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}
	closer := "]"
	if s[start] == '{' {
		closer = "}"
	}
	if end := strings.LastIndex(s, closer); end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}
