package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Venue    VenueConfig    `yaml:"venue"`
	LLM      LLMConfig      `yaml:"llm"`
	Trading  TradingConfig  `yaml:"trading"`
	Wallet   WalletConfig   `yaml:"wallet"`
	Deploy   DeployConfig   `yaml:"deploy"`
	Telegram TelegramConfig `yaml:"telegram"`
	Web      WebConfig      `yaml:"web"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type VenueConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	AccountID      string `yaml:"account_id"`
	ChainID        int64  `yaml:"chain_id"`
	Mock           bool   `yaml:"mock"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type LLMConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxSteps       int    `yaml:"max_steps"`
	MaxTokens      int    `yaml:"max_tokens"`
}

type TradingConfig struct {
	Symbols    []string `yaml:"symbols"`
	MinPercent float64  `yaml:"min_percent"`
	MaxPercent float64  `yaml:"max_percent"`
}

type WalletConfig struct {
	PrivateKey string `yaml:"private_key"`
}

type DeployConfig struct {
	TickInterval string `yaml:"tick_interval"`
	LogCap       int    `yaml:"log_cap"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type WebConfig struct {
	Port int `yaml:"port"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Venue.TimeoutSeconds == 0 {
		cfg.Venue.TimeoutSeconds = 30
	}
	if cfg.Venue.ChainID == 0 {
		cfg.Venue.ChainID = 137 // Polygon mainnet
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o"
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 120
	}
	if cfg.LLM.MaxSteps == 0 {
		cfg.LLM.MaxSteps = 5
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 1024
	}
	if len(cfg.Trading.Symbols) == 0 {
		cfg.Trading.Symbols = []string{"AAPL", "TSLA", "NVDA", "MSFT", "AMZN", "GOOGL", "META", "SPY"}
	}
	if cfg.Trading.MinPercent == 0 {
		cfg.Trading.MinPercent = 10
	}
	if cfg.Trading.MaxPercent == 0 {
		cfg.Trading.MaxPercent = 50
	}
	if cfg.Deploy.TickInterval == "" {
		cfg.Deploy.TickInterval = "20s"
	}
	if cfg.Deploy.LogCap == 0 {
		cfg.Deploy.LogCap = 50
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func (c *Config) Validate() error {
	if !c.Venue.Mock {
		if c.Venue.BaseURL == "" {
			return fmt.Errorf("venue.base_url is required")
		}
		if c.Venue.APIKey == "" {
			return fmt.Errorf("venue.api_key is required")
		}
		if c.Wallet.PrivateKey == "" {
			return fmt.Errorf("wallet.private_key is required when venue.mock is false")
		}
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	if c.Trading.MinPercent <= 0 || c.Trading.MaxPercent > 100 || c.Trading.MinPercent > c.Trading.MaxPercent {
		return fmt.Errorf("invalid trading percent bounds [%v, %v]", c.Trading.MinPercent, c.Trading.MaxPercent)
	}
	if _, err := time.ParseDuration(c.Deploy.TickInterval); err != nil {
		return fmt.Errorf("invalid deploy.tick_interval %q: %w", c.Deploy.TickInterval, err)
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}

func (c *Config) IsMock() bool {
	return c.Venue.Mock
}

func (c *Config) VenueTimeout() time.Duration {
	return time.Duration(c.Venue.TimeoutSeconds) * time.Second
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func (c *Config) DeployTickInterval() time.Duration {
	d, _ := time.ParseDuration(c.Deploy.TickInterval)
	return d
}

// HasSymbol reports whether sym is in the tradable catalog, ignoring case.
func (c *Config) HasSymbol(sym string) bool {
	for _, s := range c.Trading.Symbols {
		if strings.EqualFold(s, sym) {
			return true
		}
	}
	return false
}
