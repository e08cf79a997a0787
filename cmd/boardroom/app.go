package main

import (
	"context"
	"fmt"
	"log/slog"

	"knittex.app/boardroom/common/id"
	"knittex.app/boardroom/common/llm"
	"knittex.app/boardroom/common/logger"
	"knittex.app/boardroom/common/otel"
	"knittex.app/boardroom/core/config"
	"knittex.app/boardroom/internal/brain"
	"knittex.app/boardroom/internal/kv"
	"knittex.app/boardroom/internal/model"
	"knittex.app/boardroom/internal/session"
	"knittex.app/boardroom/internal/store"
)

// app is one wired session: config, telemetry, storage and controller.
type app struct {
	cfg       config.Config
	language  model.Language
	kv        kv.Store
	telemetry *otel.Telemetry
	ctrl      *session.Controller
	runErr    chan error
}

func newApp(ctx context.Context, opts *rootOptions, initial model.Counterpart, confirmer session.Confirmer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.language != "" {
		cfg.Session.Language = opts.language
	}
	if opts.backend != "" {
		cfg.Storage.Backend = opts.backend
	}
	if opts.expert {
		cfg.Session.ExpertMode = true
	}
	if !opts.verbose {
		cfg.Quiet = true
	}

	language, err := model.ParseLanguage(cfg.Session.Language)
	if err != nil {
		return nil, err
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		return nil, fmt.Errorf("setting up telemetry: %w", err)
	}
	logger.Setup(cfg)

	slog.InfoContext(ctx, "boardroom starting",
		"env", cfg.Env,
		"provider", cfg.LLM.Provider,
		"storage", cfg.Storage.Backend,
		"language", language)

	if err := id.Init(cfg.NodeID); err != nil {
		return nil, fmt.Errorf("initializing id generator: %w", err)
	}

	records, err := kv.Open(ctx, cfg.Storage)
	if err != nil {
		_ = telemetry.Shutdown(ctx)
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Backend, err)
	}

	var client llm.Client
	if cfg.LLM.Enabled() {
		client, err = llm.New(ctx, llm.Config{
			Provider: cfg.LLM.Provider,
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Model:    cfg.LLM.SingleModel,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to create llm client, replies will report a missing key", "error", err)
			client = nil
		}
	}

	orchestrator := brain.NewOrchestrator(brain.OrchestratorConfig{
		SingleModel:   cfg.LLM.SingleModel,
		GroupModel:    cfg.LLM.GroupModel,
		HistoryWindow: cfg.Session.HistoryWindow,
		Timeout:       cfg.LLM.Timeout,
		ExpertMode:    cfg.Session.ExpertMode,
	}, client)

	ctrl := session.New(session.Config{
		Language:   language,
		ReplyDelay: cfg.Session.ReplyDelay,
		Initial:    initial,
	},
		store.NewConversationStore(records, cfg.Storage.Namespace),
		store.NewNoteStore(records, cfg.Storage.Namespace),
		orchestrator,
		confirmer,
	)

	a := &app{
		cfg:       cfg,
		language:  language,
		kv:        records,
		telemetry: telemetry,
		ctrl:      ctrl,
		runErr:    make(chan error, 1),
	}
	go func() {
		a.runErr <- ctrl.Run(ctx)
	}()

	return a, nil
}

// close stops the session, then releases storage and flushes telemetry.
func (a *app) close(ctx context.Context) {
	a.ctrl.Stop()
	if err := <-a.runErr; err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "session ended with error", "error", err)
	}
	if err := a.kv.Close(); err != nil {
		slog.ErrorContext(ctx, "failed to close storage", "error", err)
	}
	if err := a.telemetry.Shutdown(context.WithoutCancel(ctx)); err != nil {
		slog.ErrorContext(ctx, "failed to flush telemetry", "error", err)
	}
}
