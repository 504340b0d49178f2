package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file picked up from the working directory when
// DREAMSCOPE_CONFIG is not set. A missing file means "use the defaults".
const DefaultPath = "dreamscope-smoke.yaml"

type Config struct {
	TargetURL  string           `json:"target_url" yaml:"target_url"`
	OutputDir  string           `json:"output_dir" yaml:"output_dir"`
	Browser    BrowserConfig    `json:"browser" yaml:"browser"`
	Navigation NavigationConfig `json:"navigation" yaml:"navigation"`
	Settle     SettleConfig     `json:"settle" yaml:"settle"`
	UI         UIConfig         `json:"ui" yaml:"ui"`
	Policy     PolicyConfig     `json:"policy" yaml:"policy"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Log        LogConfig        `json:"log" yaml:"log"`
	Gateways   GatewaysConfig   `json:"gateways" yaml:"gateways"`
}

type BrowserConfig struct {
	Headless      bool     `json:"headless" yaml:"headless"`
	WindowWidth   int      `json:"window_width" yaml:"window_width"`
	WindowHeight  int      `json:"window_height" yaml:"window_height"`
	ActionTimeout Duration `json:"action_timeout" yaml:"action_timeout"`
	ExecPath      string   `json:"exec_path,omitempty" yaml:"exec_path,omitempty"`
}

// NavigationConfig tunes the "page settled" heuristic used after the first load.
type NavigationConfig struct {
	Timeout     Duration `json:"timeout" yaml:"timeout"`
	IdleQuiet   Duration `json:"idle_quiet" yaml:"idle_quiet"`
	MaxInflight int      `json:"max_inflight" yaml:"max_inflight"`
}

type SettleConfig struct {
	Short    Duration `json:"short" yaml:"short"`
	Save     Duration `json:"save" yaml:"save"`
	History  Duration `json:"history" yaml:"history"`
	Analysis Duration `json:"analysis" yaml:"analysis"`
}

// UIConfig holds the DOM hooks the walkthrough relies on.
type UIConfig struct {
	RecordLabel    string   `json:"record_label" yaml:"record_label"`
	HistoryLabel   string   `json:"history_label" yaml:"history_label"`
	AnalysisLabel  string   `json:"analysis_label" yaml:"analysis_label"`
	SaveLabel      string   `json:"save_label" yaml:"save_label"`
	InputSelector  string   `json:"input_selector" yaml:"input_selector"`
	EntrySelectors []string `json:"entry_selectors" yaml:"entry_selectors"`
	AnalyzeLabels  []string `json:"analyze_labels" yaml:"analyze_labels"`
}

type PolicyConfig struct {
	AllowedHosts   []string `json:"allowed_hosts" yaml:"allowed_hosts"`
	DeniedPatterns []string `json:"denied_patterns" yaml:"denied_patterns"`
}

type JournalConfig struct {
	Path string `json:"path" yaml:"path"`
}

type LogConfig struct {
	Path  string `json:"path" yaml:"path"`
	Level string `json:"level" yaml:"level"`
}

type GatewaysConfig struct {
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
	Discord  DiscordConfig  `json:"discord" yaml:"discord"`
}

type TelegramConfig struct {
	Token   string `json:"token" yaml:"token"`
	ChatID  int64  `json:"chat_id" yaml:"chat_id"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

type DiscordConfig struct {
	Token     string `json:"token" yaml:"token"`
	ChannelID string `json:"channel_id" yaml:"channel_id"`
	Enabled   bool   `json:"enabled" yaml:"enabled"`
}

// Default returns the configuration that reproduces the fixed walkthrough.
func Default() *Config {
	return &Config{
		TargetURL: "http://localhost:8001",
		OutputDir: "test_screenshots",
		Browser: BrowserConfig{
			Headless:      false,
			WindowWidth:   1280,
			WindowHeight:  720,
			ActionTimeout: Duration(30 * time.Second),
		},
		Navigation: NavigationConfig{
			Timeout:     Duration(30 * time.Second),
			IdleQuiet:   Duration(500 * time.Millisecond),
			MaxInflight: 0,
		},
		Settle: SettleConfig{
			Short:    Duration(1 * time.Second),
			Save:     Duration(2 * time.Second),
			History:  Duration(2 * time.Second),
			Analysis: Duration(3 * time.Second),
		},
		UI: UIConfig{
			RecordLabel:    "記録",
			HistoryLabel:   "履歴",
			AnalysisLabel:  "分析",
			SaveLabel:      "記録する",
			InputSelector:  "textarea#dream-input",
			EntrySelectors: []string{".dream-item", ".dream-entry", `[class*="dream"]`},
			AnalyzeLabels:  []string{"分析", "AI分析", "analyze"},
		},
		Policy: PolicyConfig{
			AllowedHosts: []string{"localhost", "127.0.0.1", "::1"},
		},
		Log: LogConfig{
			Path:  filepath.Join("logs", "dreamscope-smoke.jsonl"),
			Level: "info",
		},
	}
}

// Resolve picks the config path from DREAMSCOPE_CONFIG, falling back to
// DefaultPath. explicit reports whether the environment named the file.
func Resolve() (path string, explicit bool) {
	if p := os.Getenv("DREAMSCOPE_CONFIG"); p != "" {
		return p, true
	}
	return DefaultPath, false
}

// LoadConfig reads path over the defaults. A missing file is only an error
// when the path was given explicitly.
func LoadConfig(path string, explicit bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}

	if u := os.Getenv("DREAMSCOPE_TARGET_URL"); u != "" {
		cfg.TargetURL = u
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return json.Unmarshal(data, cfg)
	default:
		return yaml.Unmarshal(data, cfg)
	}
}

// Validate rejects configurations the walkthrough cannot run with.
func (c *Config) Validate() error {
	if c.TargetURL == "" {
		return errors.New("config: target_url is required")
	}
	if c.OutputDir == "" {
		return errors.New("config: output_dir is required")
	}
	if c.UI.InputSelector == "" {
		return errors.New("config: ui.input_selector is required")
	}
	if len(c.UI.EntrySelectors) == 0 {
		return errors.New("config: ui.entry_selectors must not be empty")
	}
	if len(c.UI.AnalyzeLabels) == 0 {
		return errors.New("config: ui.analyze_labels must not be empty")
	}
	if c.Navigation.MaxInflight < 0 {
		return errors.New("config: navigation.max_inflight must be >= 0")
	}
	return nil
}

// GetTelegramConfig returns telegram config if enabled
func (c *Config) GetTelegramConfig() (TelegramConfig, bool) {
	tg := c.Gateways.Telegram
	if tg.Enabled && tg.Token != "" && tg.ChatID != 0 {
		return tg, true
	}
	return TelegramConfig{}, false
}

// GetDiscordConfig returns discord config if enabled
func (c *Config) GetDiscordConfig() (DiscordConfig, bool) {
	dc := c.Gateways.Discord
	if dc.Enabled && dc.Token != "" && dc.ChannelID != "" {
		return dc, true
	}
	return DiscordConfig{}, false
}
