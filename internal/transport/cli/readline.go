package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/sandevgo/chainbot/internal/config"
	"github.com/sandevgo/chainbot/internal/core"
	"github.com/sandevgo/chainbot/internal/service/agent"
	"github.com/sandevgo/chainbot/pkg/conv"
	"github.com/sandevgo/chainbot/pkg/log"
)

const defaultSessionID = "cli-local"

type ReadLine struct {
	cfg     *config.AppConfig
	agent   *agent.Agent
	router  core.CmdRouter
	sink    core.EventSink
	session *agent.Session
	rl      *readline.Instance
}

func NewReadLine(cfg *config.AppConfig, ag *agent.Agent, router core.CmdRouter, sink core.EventSink, session *agent.Session) (*ReadLine, error) {
	if err := os.MkdirAll(cfg.RuntimePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     filepath.Join(cfg.RuntimePath, "input_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &ReadLine{
		cfg:     cfg,
		agent:   ag,
		router:  router,
		sink:    sink,
		session: session,
		rl:      rl,
	}, nil
}

func (r *ReadLine) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Msg("interactive chat started, type 'exit' to quit")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if len(line) == 0 {
					return nil
				}
				continue
			} else if err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "exit" || line == "quit" {
			return nil
		}
		if line == "" {
			continue
		}

		if out, handled := r.router.Execute(ctx, defaultSessionID, line); handled {
			r.sink.Panel(core.ChainName, conv.MarkdownToText(out))
			continue
		}

		turn, err := r.agent.Respond(ctx, r.session, line)
		if err != nil {
			logger.Error().Err(err).Msg("turn failed")
			r.sink.Error("Turn failed", err)
			continue
		}

		if text := turn.Text(); text != "" {
			r.sink.Panel(core.ChainName, conv.MarkdownToText(text))
		}
	}
}

func (r *ReadLine) Shutdown(ctx context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}
