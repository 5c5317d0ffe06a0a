package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/chris/focus/config"
	"github.com/chris/focus/internal/agent"
	"github.com/chris/focus/internal/api"
	"github.com/chris/focus/internal/db"
	"github.com/chris/focus/internal/discord"
	"github.com/chris/focus/internal/llm"
	"github.com/chris/focus/internal/persona"
	"github.com/chris/focus/internal/scheduler"
	"github.com/chris/focus/internal/tools"
)

const usage = `usage: focus <command> [flags]

commands:
  serve               run the HTTP API, Discord bot and scheduled jobs
  chat -user <id>     chat with the coach from the terminal
  token -user <id>    create an API token for a user`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	level, _ := config.ParseLogLevel(cfg.LogLevel) // validated by Load
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	})))

	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		err = runServe(cfg)
	case "chat":
		err = runChat(cfg, args)
	case "token":
		err = runToken(cfg, args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("fatal", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func openDB(cfg *config.Config) (*db.DB, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	database, err := db.Open(cfg.DatabasePath, loc)
	if err != nil {
		return nil, err
	}
	if err := database.Ping(context.Background()); err != nil {
		database.Close()
		return nil, fmt.Errorf("database health check: %w", err)
	}
	return database, nil
}

func newOrchestrator(cfg *config.Config, database *db.DB) (*agent.Orchestrator, error) {
	if err := cfg.RequireProvider(); err != nil {
		return nil, err
	}

	pc := llm.ProviderConfig{Provider: cfg.LLMProvider, Model: cfg.LLMModel}
	switch cfg.LLMProvider {
	case "openai":
		pc.APIKey = cfg.OpenAIKey
	case "anthropic":
		pc.APIKey, pc.AuthToken = cfg.AnthropicKey, cfg.AnthropicToken
	case "ollama":
		pc.BaseURL = cfg.OllamaBaseURL
	}
	client, err := llm.NewClient(pc)
	if err != nil {
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}

	personas := persona.Default()
	if cfg.Persona != "auto" {
		if p, ok := personas.Get(cfg.Persona); !ok || !p.Available {
			slog.Warn("unknown or unavailable persona, using default", "persona", cfg.Persona)
		}
	}

	return agent.New(agent.Config{
		Client:           client,
		Store:            database,
		Tools:            tools.NewRegistry(cfg.ToolTimeout),
		Personas:         personas,
		Policy:           persona.PolicyFor(cfg.Persona),
		LLMTimeout:       cfg.LLMTimeout,
		MaxContextTokens: cfg.MaxContextTokens,
		ListLimit:        cfg.ContextListLimit,
		Location:         database.Location(),
	}), nil
}

func runServe(cfg *config.Config) error {
	database, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	orch, err := newOrchestrator(cfg, database)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var dmSend func(string, string) error
	if cfg.DiscordToken != "" {
		bot, err := discord.NewBot(cfg.DiscordToken, orch, database)
		if err != nil {
			return fmt.Errorf("starting Discord bot: %w", err)
		}
		defer bot.Close()
		dmSend = bot.SendDM
	}

	sched := scheduler.New(scheduler.Config{
		Streaks:       database,
		CheckIns:      orch,
		Location:      database.Location(),
		SweepCron:     cfg.StreakSweepCron,
		CheckInCron:   cfg.CheckInCron,
		CheckInUserID: cfg.CheckInUserID,
		WebhookURL:    cfg.DiscordWebhook,
		DMSend:        dmSend,
	})
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           api.NewHandler(database, orch).Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Two completion calls plus tools must fit.
		WriteTimeout: 2*cfg.LLMTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr, "provider", cfg.LLMProvider, "persona", cfg.Persona)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runChat(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	userID := fs.String("user", "", "user id to chat as")
	sessionID := fs.String("session", "", "resume a chat session")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return errors.New("chat: -user is required")
	}

	database, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	orch, err := newOrchestrator(cfg, database)
	if err != nil {
		return err
	}

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)

	// Check if stdin is a pipe (non-interactive)
	stat, _ := os.Stdin.Stat()
	isPipe := (stat.Mode() & os.ModeCharDevice) == 0

	if !isPipe {
		fmt.Print("focus> ")
	}
	session := *sessionID
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "exit" || input == "quit" {
			break
		}
		if input != "" {
			reply, err := orch.Run(ctx, agent.Turn{UserID: *userID, Message: input, SessionID: session})
			var te *agent.TurnError
			switch {
			case errors.As(err, &te):
				fmt.Fprintln(os.Stderr, te.Message)
			case err != nil:
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			default:
				fmt.Println(reply.Message)
				if reply.SessionID != "" {
					session = reply.SessionID
				}
			}
			if isPipe {
				break // single exchange in pipe mode
			}
		}
		if !isPipe {
			fmt.Print("focus> ")
		}
	}
	return scanner.Err()
}

func runToken(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	userID := fs.String("user", "", "user id the token authenticates as")
	label := fs.String("label", "cli", "label to remember the token by")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return errors.New("token: -user is required")
	}

	database, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	token, err := database.CreateToken(context.Background(), *userID, *label)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
