// Package classify routes an inbound chat message to the handler that
// should process it.
package classify

import (
	"context"
	"errors"
	"strings"

	"keuangan/internal/ai"
	"keuangan/internal/clock"
	"keuangan/internal/core"
	"keuangan/internal/log"
)

// DefaultThreshold is the minimum intent confidence for the query route.
const DefaultThreshold = 0.7

// Command names.
const (
	CmdHelp   = "help"
	CmdTotal  = "total"
	CmdList   = "list"
	CmdDelete = "delete"
	CmdReport = "report"
)

var knownCommands = map[string]bool{
	CmdHelp: true, CmdTotal: true, CmdList: true, CmdDelete: true, CmdReport: true,
}

type Kind int

const (
	Ignore Kind = iota
	Command
	Media
	Query
	Narration
)

func (k Kind) String() string {
	switch k {
	case Command:
		return "command"
	case Media:
		return "media"
	case Query:
		return "query"
	case Narration:
		return "narration"
	default:
		return "ignore"
	}
}

// ParsedCommand is a slash command split into name and arguments.
type ParsedCommand struct {
	Name  string
	Args  []string
	Known bool
}

// Route is the outcome of classification. When the intent model failed the
// route is Narration with Fallback set and Cause holding the error.
type Route struct {
	Kind     Kind
	Command  ParsedCommand
	Intent   core.QueryIntent
	Fallback bool
	Cause    error
}

type Classifier struct {
	intents   ai.IntentClassifier
	threshold float64
	logger    *log.Logger
}

// New creates a classifier. A nil intents classifier sends every plain text
// message down the fallback narration branch.
func New(intents ai.IntentClassifier, logger *log.Logger) *Classifier {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Classifier{
		intents:   intents,
		threshold: DefaultThreshold,
		logger:    logger.WithComponent(log.ComponentClassifier),
	}
}

// WithThreshold overrides DefaultThreshold.
func (c *Classifier) WithThreshold(t float64) *Classifier {
	c.threshold = t
	return c
}

// ParseCommand splits a slash command. ok is false when body is not a command.
func ParseCommand(body string) (cmd ParsedCommand, ok bool) {
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, "/") {
		return ParsedCommand{}, false
	}
	fields := strings.Fields(body[1:])
	if len(fields) == 0 {
		return ParsedCommand{Known: false}, true
	}
	name := strings.ToLower(fields[0])
	return ParsedCommand{Name: name, Args: fields[1:], Known: knownCommands[name]}, true
}

// Classify never returns an error; model failures surface as Route.Fallback.
func (c *Classifier) Classify(ctx context.Context, msg core.InboundEvent, now clock.Info) Route {
	if cmd, ok := ParseCommand(msg.Body); ok {
		return Route{Kind: Command, Command: cmd}
	}
	if msg.HasMedia {
		return Route{Kind: Media}
	}
	text := strings.TrimSpace(msg.Body)
	if text == "" {
		return Route{Kind: Ignore}
	}
	if c.intents == nil {
		return Route{Kind: Narration, Fallback: true, Cause: ai.ErrUnavailable}
	}

	intent, err := c.intents.ClassifyIntent(ctx, text, now)
	if err != nil {
		c.logger.WarnContext(ctx, "Intent classification failed, treating as narration",
			log.FieldOperation, log.OpClassify, log.FieldError, err.Error(), log.FieldFallback, true)
		return Route{Kind: Narration, Fallback: true, Cause: err}
	}
	if intent.Kind.IsQuery() && intent.Confidence >= c.threshold {
		return Route{Kind: Query, Intent: intent}
	}
	return Route{Kind: Narration, Intent: intent}
}

// IsFallback reports whether the route fell back because the model failed.
func (r Route) IsFallback() bool {
	return r.Fallback && r.Cause != nil
}

// Unavailable reports whether the fallback happened because no model is configured.
func (r Route) Unavailable() bool {
	return errors.Is(r.Cause, ai.ErrUnavailable)
}
