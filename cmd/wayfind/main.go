// Package main provides the wayfind CLI: a headless page-browsing agent
// that takes a goal and a starting URL, browses a simulated session, and
// prints a grounded answer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wayfindhq/wayfind/pkg/agent"
	"github.com/wayfindhq/wayfind/pkg/browser"
	"github.com/wayfindhq/wayfind/pkg/config"
	"github.com/wayfindhq/wayfind/pkg/llm/openai"
	"github.com/wayfindhq/wayfind/pkg/llm/tokenizer"
	"github.com/wayfindhq/wayfind/pkg/observe"
	"github.com/wayfindhq/wayfind/pkg/summary"
	"github.com/wayfindhq/wayfind/pkg/tools"
	"github.com/wayfindhq/wayfind/pkg/types"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration.
type CLIConfig struct {
	Goal        string
	StartURL    string
	Mode        string
	MaxSteps    int
	MaxChars    int
	MaxElements int
	Detail      bool
	Model       string
	APIKey      string
	BaseURL     string
	ConfigFile  string
	ShowVersion bool
}

func main() {
	cli := parseFlags()
	if cli.ShowVersion {
		fmt.Printf("wayfind v%s\n", version)
		return
	}
	if cli.Goal == "" || cli.StartURL == "" {
		fmt.Fprintln(os.Stderr, "both --goal and --url are required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nshutting down")
		cancel()
	}()

	if err := run(ctx, cli); err != nil {
		fmt.Fprintf(os.Stderr, "wayfind: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() CLIConfig {
	var cli CLIConfig
	flag.StringVar(&cli.Goal, "goal", "", "natural-language goal for the agent")
	flag.StringVar(&cli.StartURL, "url", "", "starting URL")
	flag.StringVar(&cli.Mode, "mode", "assist", "agent mode: observe or assist")
	flag.IntVar(&cli.MaxSteps, "max-steps", 0, "step budget (default from config)")
	flag.IntVar(&cli.MaxChars, "max-chars", 0, "observation text budget (default from config)")
	flag.IntVar(&cli.MaxElements, "max-elements", 0, "observation element budget (default from config)")
	flag.BoolVar(&cli.Detail, "detail", false, "detail mode: larger budgets and structured answers")
	flag.StringVar(&cli.Model, "model", "", "model name (default from provider)")
	flag.StringVar(&cli.APIKey, "api-key", "", "API key (default OPENAI_API_KEY)")
	flag.StringVar(&cli.BaseURL, "base-url", "", "API base URL (default OPENAI_BASE_URL)")
	flag.StringVar(&cli.ConfigFile, "config", "", "config file path (default ~/.wayfind/config.yaml)")
	flag.BoolVar(&cli.ShowVersion, "version", false, "print version and exit")
	flag.Parse()
	return cli
}

func run(ctx context.Context, cli CLIConfig) error {
	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cli.MaxSteps > 0 {
		cfg.MaxSteps = cli.MaxSteps
	}
	if cli.MaxChars > 0 {
		cfg.Budgets.MaxChars = cli.MaxChars
	}
	if cli.MaxElements > 0 {
		cfg.Budgets.MaxElements = cli.MaxElements
	}
	if cli.Detail {
		cfg.ApplyDetailMode()
	}

	mode := types.ModeAssist
	if cli.Mode == string(types.ModeObserve) {
		mode = types.ModeObserve
	}

	var providerOpts []openai.ProviderOption
	if cli.Model != "" {
		providerOpts = append(providerOpts, openai.WithModel(cli.Model))
	}
	if cli.BaseURL != "" {
		providerOpts = append(providerOpts, openai.WithBaseURL(cli.BaseURL))
	}
	provider, err := openai.NewProvider(cli.APIKey, providerOpts...)
	if err != nil {
		return err
	}

	policy, err := browser.NewURLPolicy(cfg.Policy.BlockedHosts)
	if err != nil {
		return fmt.Errorf("invalid URL policy: %w", err)
	}
	fetcher := browser.NewHTTPFetcher(time.Duration(cfg.Fetch.TimeoutSeconds)*time.Second, cfg.Fetch.UserAgent)
	observer := observe.New(cfg.Budgets)
	session := browser.NewSession(fetcher, observer, policy)

	if _, err := session.OpenTab(ctx, cli.StartURL); err != nil {
		return fmt.Errorf("failed to open %s: %w", cli.StartURL, err)
	}

	tok, err := tokenizer.New()
	if err != nil {
		// Token counting degrades to a character estimate.
		tok = nil
	}
	svc := summary.NewService(provider, tok, cfg, cli.Detail)
	searcher := tools.NewDuckDuckGoSearcher(fetcher)

	a := agent.New(provider, session, svc, searcher, agent.Options{
		Mode:       mode,
		MaxSteps:   cfg.MaxSteps,
		DetailMode: cli.Detail,
	})
	answer := a.Run(ctx, cli.Goal)
	if answer == "" {
		answer = "No answer could be produced within the step budget."
	}
	fmt.Println(answer)
	return nil
}
