package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"keuangan/internal/cli"
	"keuangan/internal/config"
	"keuangan/internal/core"
	"keuangan/internal/log"
	"keuangan/internal/query"
)

// globals holds options shared by every command.
type globals struct {
	Sender   string `help:"Sender ID to act as. Defaults to the first authorized number."`
	LogLevel string `name:"log-level" default:"warn" help:"Log level [debug info warn error]."`
}

type sendCmd struct {
	Text []string `arg:"" help:"Message text, e.g. \"/list\" or \"makan siang 25rb\"."`
}

type listCmd struct{}

type totalCmd struct{}

type reportCmd struct {
	Period []string `arg:"" optional:"" help:"Month and year, e.g. \"maret 2024\" or \"3 2024\"."`
}

type deleteCmd struct {
	ID int `arg:"" help:"Transaction number as shown by list."`
}

type askCmd struct {
	Period   string   `help:"Answer without the AI over a period [today yesterday this_week last_week this_month last_month this_year]."`
	Category string   `help:"Answer without the AI for one category, e.g. Makanan."`
	Mine     bool     `help:"Only count the sender's own transactions."`
	Question []string `arg:"" optional:"" help:"Free-form question for the AI advisor."`
}

type addCmd struct {
	Text []string `arg:"" help:"Narration such as \"gaji 5jt, makan 25rb\"."`
}

func (c *sendCmd) Run(g *globals) error {
	return g.dispatch(strings.Join(c.Text, " "))
}

func (c *listCmd) Run(g *globals) error {
	return g.dispatch("/list")
}

func (c *totalCmd) Run(g *globals) error {
	return g.dispatch("/total")
}

func (c *reportCmd) Run(g *globals) error {
	return g.dispatch(strings.TrimSpace("/report " + strings.Join(c.Period, " ")))
}

func (c *deleteCmd) Run(g *globals) error {
	return g.dispatch("/delete " + strconv.Itoa(c.ID))
}

func (c *askCmd) Run(g *globals) error {
	app, cfg, err := g.bootstrap()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()
	txs, err := app.Backend.Store.ListAll(ctx)
	if err != nil {
		return err
	}
	now := app.Clock.Now(ctx)
	engine := query.New(app.Model, app.Logger)

	if c.Period != "" || c.Category != "" || c.Mine {
		filters := core.QueryFilters{Period: c.Period, Category: c.Category}
		if c.Mine {
			filters.UserScope = core.ScopeSelf
		}
		intent := core.QueryIntent{Kind: core.IntentStructuredQuery, Confidence: 1, Filters: &filters}
		_, err = fmt.Fprintln(os.Stdout, engine.AnswerStructuredFor(core.NormalizeSenderID(g.senderFor(cfg)), intent, txs, now))
		return err
	}

	question := strings.TrimSpace(strings.Join(c.Question, " "))
	if question == "" {
		return fmt.Errorf("%w: give a question or a filter flag", core.ErrInvalidArgument)
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.AITimeout)
	defer cancel()
	_, err = fmt.Fprintln(os.Stdout, engine.AnswerOpen(ctx, question, txs, now))
	return err
}

func (c *addCmd) Run(g *globals) error {
	text := strings.TrimSpace(strings.Join(c.Text, " "))
	if strings.HasPrefix(text, "/") {
		return fmt.Errorf("%w: narration must not start with '/'", core.ErrInvalidArgument)
	}
	return g.dispatch(text)
}

// handler is the part of the message service ledgerctl drives.
type handler interface {
	Handle(ctx context.Context, ev core.InboundEvent) (string, bool)
}

func (g *globals) bootstrap() (*cli.App, *config.Config, error) {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(g.LogLevel)
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	app, err := cli.Bootstrap(context.Background(), logger, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Ledger opened", log.FieldBackend, app.Backend.Type.String())
	return app, cfg, nil
}

func (g *globals) dispatch(text string) error {
	app, cfg, err := g.bootstrap()
	if err != nil {
		return err
	}
	defer app.Close()
	return send(context.Background(), app.Service, g.senderFor(cfg), text, os.Stdout)
}

func (g *globals) senderFor(cfg *config.Config) string {
	if g.Sender != "" {
		return g.Sender
	}
	if len(cfg.AuthorizedNumbers) > 0 {
		return cfg.AuthorizedNumbers[0]
	}
	return "ledgerctl"
}

// send runs text through h as sender and prints the reply.
func send(ctx context.Context, h handler, sender, text string, w io.Writer) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: empty message", core.ErrInvalidArgument)
	}
	reply, ok := h.Handle(ctx, core.InboundEvent{SenderID: sender, Body: text})
	if !ok {
		return fmt.Errorf("no reply for sender %q; check AUTHORIZED_NUMBERS", sender)
	}
	_, err := fmt.Fprintln(w, reply)
	return err
}
