package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"dual-dex-bot/internal/venue"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log          LoggingConfig      `yaml:"log"`
	Lock         LockConfig         `yaml:"lock"`
	State        StateConfig        `yaml:"state"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Timescale    TimescaleConfig    `yaml:"timescale"`
	Network      NetworkConfig      `yaml:"network"`
	Hyperliquid  HyperliquidConfig  `yaml:"hyperliquid"`
	Pacifica     PacificaConfig     `yaml:"pacifica"`
	Strategy     StrategyConfig     `yaml:"strategy"`
	Verification VerificationConfig `yaml:"verification"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type LockConfig struct {
	Path string `yaml:"path"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

type TimescaleConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	QueueSize       int           `yaml:"queue_size"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type NetworkConfig struct {
	ProxyURL string `yaml:"proxy_url"`
}

type HyperliquidConfig struct {
	BaseURL           string             `yaml:"base_url"`
	Timeout           time.Duration      `yaml:"timeout"`
	RequestsPerSecond float64            `yaml:"requests_per_second"`
	LotSizes          map[string]float64 `yaml:"lot_sizes"`
}

type PacificaConfig struct {
	BaseURL           string             `yaml:"base_url"`
	WSURL             string             `yaml:"ws_url"`
	Timeout           time.Duration      `yaml:"timeout"`
	RequestsPerSecond float64            `yaml:"requests_per_second"`
	PriceTimeout      time.Duration      `yaml:"price_timeout"`
	ExpiryWindow      time.Duration      `yaml:"expiry_window"`
	LotSizes          map[string]float64 `yaml:"lot_sizes"`
	FallbackPrices    map[string]float64 `yaml:"fallback_prices"`
	ProbeSizes        []float64          `yaml:"probe_sizes"`
	SlippagePercent   float64            `yaml:"slippage_percent"`
}

type StrategyConfig struct {
	AccountBalance float64            `yaml:"account_balance"`
	MinRiskPct     float64            `yaml:"min_risk_pct"`
	MaxRiskPct     float64            `yaml:"max_risk_pct"`
	MinHold        time.Duration      `yaml:"min_hold"`
	MaxHold        time.Duration      `yaml:"max_hold"`
	MinCycleWait   time.Duration      `yaml:"min_cycle_wait"`
	MaxCycleWait   time.Duration      `yaml:"max_cycle_wait"`
	Symbols        []string           `yaml:"symbols"`
	Leverage       map[string]float64 `yaml:"leverage"`
	Slippage       float64            `yaml:"slippage"`
	CloseOnStart   *bool              `yaml:"close_on_start"`
	EquityTimeout  time.Duration      `yaml:"equity_timeout"`
}

// SweepOnStart reports whether pre-existing positions are closed before the
// first cycle. Unset means true.
func (s StrategyConfig) SweepOnStart() bool {
	return s.CloseOnStart == nil || *s.CloseOnStart
}

type VerificationConfig struct {
	Retries     int           `yaml:"retries"`
	Delay       time.Duration `yaml:"delay"`
	Epsilon     float64       `yaml:"epsilon"`
	CloseBuffer float64       `yaml:"close_buffer"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.File != "" {
		if cfg.Log.MaxSizeMB == 0 {
			cfg.Log.MaxSizeMB = 50
		}
		if cfg.Log.MaxBackups == 0 {
			cfg.Log.MaxBackups = 5
		}
		if cfg.Log.MaxAgeDays == 0 {
			cfg.Log.MaxAgeDays = 14
		}
	}
	if cfg.Lock.Path == "" {
		cfg.Lock.Path = "data/dual-dex-bot.lock"
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/dual-dex-bot.db"
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = "127.0.0.1:9102"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Hyperliquid.BaseURL == "" {
		cfg.Hyperliquid.BaseURL = "https://api.hyperliquid.xyz"
	}
	if cfg.Hyperliquid.Timeout == 0 {
		cfg.Hyperliquid.Timeout = 10 * time.Second
	}
	if cfg.Hyperliquid.RequestsPerSecond == 0 {
		cfg.Hyperliquid.RequestsPerSecond = 5
	}
	if cfg.Pacifica.BaseURL == "" {
		cfg.Pacifica.BaseURL = "https://api.pacifica.fi/api/v1"
	}
	if cfg.Pacifica.WSURL == "" {
		cfg.Pacifica.WSURL = "wss://ws.pacifica.fi/ws"
	}
	if cfg.Pacifica.Timeout == 0 {
		cfg.Pacifica.Timeout = 10 * time.Second
	}
	if cfg.Pacifica.RequestsPerSecond == 0 {
		cfg.Pacifica.RequestsPerSecond = 5
	}
	if cfg.Pacifica.PriceTimeout == 0 {
		cfg.Pacifica.PriceTimeout = 5 * time.Second
	}
	if cfg.Pacifica.ExpiryWindow == 0 {
		cfg.Pacifica.ExpiryWindow = 5 * time.Second
	}
	if len(cfg.Pacifica.LotSizes) == 0 {
		cfg.Pacifica.LotSizes = map[string]float64{
			"BTC":  0.00001,
			"ETH":  0.01,
			"HYPE": 1,
			"SOL":  0.01,
			"BNB":  0.01,
		}
	}
	if len(cfg.Pacifica.FallbackPrices) == 0 {
		cfg.Pacifica.FallbackPrices = map[string]float64{
			"BTC":  65000,
			"ETH":  3500,
			"HYPE": 0.25,
			"SOL":  150,
			"BNB":  600,
		}
	}
	if len(cfg.Pacifica.ProbeSizes) == 0 {
		cfg.Pacifica.ProbeSizes = []float64{0.001, 0.01, 0.1, 1.0}
	}
	if cfg.Strategy.AccountBalance == 0 {
		cfg.Strategy.AccountBalance = 500
	}
	if cfg.Strategy.MinRiskPct == 0 {
		cfg.Strategy.MinRiskPct = 50
	}
	if cfg.Strategy.MaxRiskPct == 0 {
		cfg.Strategy.MaxRiskPct = 80
	}
	if cfg.Strategy.MinHold == 0 {
		cfg.Strategy.MinHold = 2 * time.Minute
	}
	if cfg.Strategy.MaxHold == 0 {
		cfg.Strategy.MaxHold = 5 * time.Minute
	}
	if cfg.Strategy.MinCycleWait == 0 {
		cfg.Strategy.MinCycleWait = 30 * time.Second
	}
	if cfg.Strategy.MaxCycleWait == 0 {
		cfg.Strategy.MaxCycleWait = 120 * time.Second
	}
	if cfg.Strategy.Slippage == 0 {
		cfg.Strategy.Slippage = 0.01
	}
	if cfg.Pacifica.SlippagePercent == 0 {
		cfg.Pacifica.SlippagePercent = cfg.Strategy.Slippage * 100
	}
	if cfg.Strategy.EquityTimeout == 0 {
		cfg.Strategy.EquityTimeout = 5 * time.Second
	}
	if cfg.Verification.Retries == 0 {
		cfg.Verification.Retries = 3
	}
	if cfg.Verification.Delay == 0 {
		cfg.Verification.Delay = 5 * time.Second
	}
	if cfg.Verification.Epsilon == 0 {
		cfg.Verification.Epsilon = 1e-6
	}
	if cfg.Verification.CloseBuffer == 0 {
		cfg.Verification.CloseBuffer = 0.01
	}
	for i, symbol := range cfg.Strategy.Symbols {
		cfg.Strategy.Symbols[i] = normalizeSymbol(symbol)
	}
	cfg.Strategy.Leverage = upperKeys(cfg.Strategy.Leverage)
	cfg.Hyperliquid.LotSizes = upperKeys(cfg.Hyperliquid.LotSizes)
	cfg.Pacifica.LotSizes = upperKeys(cfg.Pacifica.LotSizes)
	cfg.Pacifica.FallbackPrices = upperKeys(cfg.Pacifica.FallbackPrices)
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// upperKeys rewrites symbol-keyed maps so lookups by normalized symbol hit.
func upperKeys(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[normalizeSymbol(k)] = v
	}
	return out
}

func validate(cfg *Config) error {
	s := cfg.Strategy
	if s.AccountBalance <= 0 {
		return errors.New("strategy.account_balance must be > 0")
	}
	if s.MinRiskPct <= 0 || s.MaxRiskPct > 100 || s.MinRiskPct >= s.MaxRiskPct {
		return errors.New("strategy risk range must satisfy 0 < min_risk_pct < max_risk_pct <= 100")
	}
	if s.MinHold <= 0 || s.MinHold >= s.MaxHold {
		return errors.New("strategy hold range must satisfy 0 < min_hold < max_hold")
	}
	if s.MinCycleWait < 0 || s.MinCycleWait > s.MaxCycleWait {
		return errors.New("strategy cycle wait range must satisfy 0 <= min_cycle_wait <= max_cycle_wait")
	}
	if s.Slippage < 0 || s.Slippage >= 1 {
		return errors.New("strategy.slippage must be in [0, 1)")
	}
	if len(s.Symbols) == 0 {
		return errors.New("strategy.symbols is required")
	}
	for _, symbol := range s.Symbols {
		lev, ok := s.Leverage[symbol]
		if !ok {
			return fmt.Errorf("strategy.leverage missing %s: %w", symbol, venue.ErrConfiguration)
		}
		if lev <= 0 || lev > 100 {
			return fmt.Errorf("strategy.leverage %s must be in (0, 100]: %w", symbol, venue.ErrConfiguration)
		}
		if lot := cfg.Hyperliquid.LotSizes[symbol]; lot <= 0 {
			return fmt.Errorf("hyperliquid.lot_sizes missing %s: %w", symbol, venue.ErrConfiguration)
		}
		if lot := cfg.Pacifica.LotSizes[symbol]; lot <= 0 {
			return fmt.Errorf("pacifica.lot_sizes missing %s: %w", symbol, venue.ErrConfiguration)
		}
	}
	if cfg.Verification.Retries < 1 {
		return errors.New("verification.retries must be >= 1")
	}
	if cfg.Verification.Delay < 0 {
		return errors.New("verification.delay must be >= 0")
	}
	if proxy := strings.TrimSpace(cfg.Network.ProxyURL); proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.New("network.proxy_url must be an http:// or https:// url")
		}
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	if cfg.Telegram.Enabled && (strings.TrimSpace(cfg.Telegram.Token) == "" || strings.TrimSpace(cfg.Telegram.ChatID) == "") {
		return errors.New("telegram.token and telegram.chat_id are required when telegram is enabled")
	}
	if cfg.Timescale.Enabled && strings.TrimSpace(cfg.Timescale.DSN) == "" {
		return errors.New("timescale.dsn is required when timescale is enabled")
	}
	return nil
}
