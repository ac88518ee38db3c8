// Package config holds the runtime configuration for the browsing agent:
// observation budgets, fetch settings, model sampling profiles, and the
// URL policy. Values load from an optional YAML file layered over defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ObservationBudgets bounds every field of an Observation. Zero values are
// replaced by defaults at load time.
type ObservationBudgets struct {
	MaxChars        int `yaml:"max_chars"`
	MaxElements     int `yaml:"max_elements"`
	MaxBlocks       int `yaml:"max_blocks"`
	MaxBlockChars   int `yaml:"max_block_chars"`
	MaxPrimaryChars int `yaml:"max_primary_chars"`
	MaxOutline      int `yaml:"max_outline"`
	MaxOutlineChars int `yaml:"max_outline_chars"`
	MaxItems        int `yaml:"max_items"`
	MaxItemChars    int `yaml:"max_item_chars"`
	MaxComments     int `yaml:"max_comments"`
	MaxCommentChars int `yaml:"max_comment_chars"`
	MaxLinksPerItem int `yaml:"max_links_per_item"`
}

// FetchSettings configures the HTTP fetch collaborator.
type FetchSettings struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	UserAgent      string `yaml:"user_agent"`
}

// SamplingProfile is one set of generation parameters for the model.
type SamplingProfile struct {
	Temperature       float64 `yaml:"temperature"`
	TopP              float64 `yaml:"top_p"`
	MaxTokens         int     `yaml:"max_tokens"`
	RepetitionPenalty float64 `yaml:"repetition_penalty"`
}

// URLPolicy lists glob patterns for hosts that navigation must refuse.
type URLPolicy struct {
	BlockedHosts []string `yaml:"blocked_hosts"`
}

// Config is the full runtime configuration.
type Config struct {
	Budgets  ObservationBudgets `yaml:"budgets"`
	Fetch    FetchSettings      `yaml:"fetch"`
	Sampling SamplingProfile    `yaml:"sampling"`
	Detail   SamplingProfile    `yaml:"detail_sampling"`
	Policy   URLPolicy          `yaml:"url_policy"`
	MaxSteps int                `yaml:"max_steps"`
}

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Budgets: ObservationBudgets{
			MaxChars:        12000,
			MaxElements:     120,
			MaxBlocks:       30,
			MaxBlockChars:   900,
			MaxPrimaryChars: 1200,
			MaxOutline:      50,
			MaxOutlineChars: 160,
			MaxItems:        24,
			MaxItemChars:    240,
			MaxComments:     24,
			MaxCommentChars: 360,
			MaxLinksPerItem: 6,
		},
		Fetch: FetchSettings{
			TimeoutSeconds: 15,
			UserAgent:      defaultUserAgent,
		},
		Sampling: SamplingProfile{
			Temperature: 0.2,
			TopP:        0.9,
			MaxTokens:   1024,
		},
		Detail: SamplingProfile{
			Temperature:       0.6,
			TopP:              0.95,
			MaxTokens:         1536,
			RepetitionPenalty: 1.1,
		},
		Policy: URLPolicy{
			BlockedHosts: []string{
				"localhost",
				"127.*",
				"0.0.0.0",
				"169.254.*",
				"metadata.google.internal",
				"*.internal",
			},
		},
		MaxSteps: 6,
	}
}

// Load reads a YAML config file layered over defaults. If path is empty it
// tries ~/.wayfind/config.yaml; a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(home, ".wayfind", "config.yaml")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.fillZero()
	return cfg, nil
}

// fillZero restores defaults for fields a partial config file left unset.
func (c *Config) fillZero() {
	def := Default()
	fillInts(&c.Budgets, &def.Budgets)
	if c.Fetch.TimeoutSeconds == 0 {
		c.Fetch.TimeoutSeconds = def.Fetch.TimeoutSeconds
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = def.Fetch.UserAgent
	}
	if c.Sampling.MaxTokens == 0 {
		c.Sampling = def.Sampling
	}
	if c.Detail.MaxTokens == 0 {
		c.Detail = def.Detail
	}
	if c.MaxSteps == 0 {
		c.MaxSteps = def.MaxSteps
	}
}

func fillInts(dst, def *ObservationBudgets) {
	set := func(field, fallback *int) {
		if *field == 0 {
			*field = *fallback
		}
	}
	set(&dst.MaxChars, &def.MaxChars)
	set(&dst.MaxElements, &def.MaxElements)
	set(&dst.MaxBlocks, &def.MaxBlocks)
	set(&dst.MaxBlockChars, &def.MaxBlockChars)
	set(&dst.MaxPrimaryChars, &def.MaxPrimaryChars)
	set(&dst.MaxOutline, &def.MaxOutline)
	set(&dst.MaxOutlineChars, &def.MaxOutlineChars)
	set(&dst.MaxItems, &def.MaxItems)
	set(&dst.MaxItemChars, &def.MaxItemChars)
	set(&dst.MaxComments, &def.MaxComments)
	set(&dst.MaxCommentChars, &def.MaxCommentChars)
	set(&dst.MaxLinksPerItem, &def.MaxLinksPerItem)
}

// ApplyDetailMode raises observation budgets the way detail mode expects:
// more text and more elements for deeper summaries.
func (c *Config) ApplyDetailMode() {
	if c.Budgets.MaxChars == Default().Budgets.MaxChars {
		c.Budgets.MaxChars = 16000
	}
	if c.Budgets.MaxElements == Default().Budgets.MaxElements {
		c.Budgets.MaxElements = 160
	}
}
