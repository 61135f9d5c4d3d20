// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type TelegramConfig struct {
	Token         string  `mapstructure:"token"`
	ChannelID     string  `mapstructure:"channel_id"`
	AdminIDs      []int64 `mapstructure:"admin_ids"`
	VideoPath     string  `mapstructure:"video_path"`
	TimeVideoPath string  `mapstructure:"time_video_path"`
	Commands      bool    `mapstructure:"commands"`
}

type Config struct {
	ProgramID string   `mapstructure:"program_id"`
	RPCList   []string `mapstructure:"rpc_list"`
	Network   string   `mapstructure:"network"`

	PollIntervalMs         int   `mapstructure:"poll_interval_ms"`
	LookbackMs             int   `mapstructure:"lookback_ms"`
	SignatureLimit         int   `mapstructure:"signature_limit"`
	MaxProcessedSignatures int   `mapstructure:"max_processed_signatures"`
	MaxKnownAnnouncements  int   `mapstructure:"max_known_announcements"`
	EndedGraceMs           int64 `mapstructure:"ended_grace_ms"`

	DefaultTicketPrice          uint64  `mapstructure:"default_ticket_price"`
	MinTicketPrice              uint64  `mapstructure:"min_ticket_price"`
	DefaultMaxTickets           int     `mapstructure:"default_max_tickets"`
	DefaultDurationHours        int     `mapstructure:"default_duration_hours"`
	DefaultPrize                uint64  `mapstructure:"default_prize"`
	PlatformFee                 float64 `mapstructure:"platform_fee"`
	AnnounceUnattributedWinners bool    `mapstructure:"announce_unattributed_winners"`

	RequestTimeoutMs int `mapstructure:"request_timeout_ms"`
	RPCRetries       int `mapstructure:"rpc_retries"`
	FetchConcurrency int `mapstructure:"fetch_concurrency"`

	Telegram    TelegramConfig `mapstructure:"telegram"`
	WebhookURL  string         `mapstructure:"webhook_url"`
	StatusAddr  string         `mapstructure:"status_addr"`
	JournalFile string         `mapstructure:"journal_file"`
	// ReportDir receives the daily announcement report on shutdown.
	ReportDir string `mapstructure:"report_dir"`

	DebugLogging bool   `mapstructure:"debug_logging"`
	LogFile      string `mapstructure:"log_file"`
	// SpillFile keeps lines the terminal UI log buffer evicts.
	SpillFile string `mapstructure:"spill_file"`
}

const (
	DefaultRPC                    = "https://api.devnet.solana.com"
	DefaultNetwork                = "devnet"
	DefaultPollIntervalMs         = 60_000
	DefaultLookbackMs             = 300_000
	DefaultSignatureLimit         = 100
	DefaultMaxProcessedSignatures = 1000
	DefaultMaxKnownAnnouncements  = 1000
	DefaultEndedGraceMs           = 600_000
	DefaultTicketPrice            = 50_000_000
	DefaultMinTicketPrice         = 1_000_000
	DefaultMaxTickets             = 100
	DefaultDurationHours          = 24
	DefaultPrize                  = 500_000_000
	DefaultPlatformFee            = 0.05
	DefaultRequestTimeoutMs       = 10_000
	DefaultRPCRetries             = 2
	DefaultFetchConcurrency       = 4
	DefaultStatusAddr             = ":8080"
	DefaultLogFile                = "raffle-monitor.log"

	// getSignaturesForAddress accepts at most 1000.
	maxSignatureLimit = 1000

	envPrefix = "RAFFLE_MONITOR"
)

// legacyEnv maps keys to the variable names the bot was historically
// deployed with.
var legacyEnv = map[string]string{
	"program_id":          "RAFFLE_PROGRAM_ID",
	"network":             "SOLANA_NETWORK",
	"poll_interval_ms":    "POLLING_INTERVAL_MS",
	"telegram.token":      "TELEGRAM_BOT_TOKEN",
	"telegram.channel_id": "TELEGRAM_CHANNEL_ID",
}

// LoadEnvFiles loads dotenv files that exist; missing files are skipped.
func LoadEnvFiles(files ...string) error {
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// LoadConfig reads the optional config file at path, then applies
// environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	defaults := map[string]interface{}{
		"rpc_list":                      []string{DefaultRPC},
		"network":                       DefaultNetwork,
		"poll_interval_ms":              DefaultPollIntervalMs,
		"lookback_ms":                   DefaultLookbackMs,
		"signature_limit":               DefaultSignatureLimit,
		"max_processed_signatures":      DefaultMaxProcessedSignatures,
		"max_known_announcements":       DefaultMaxKnownAnnouncements,
		"ended_grace_ms":                DefaultEndedGraceMs,
		"default_ticket_price":          DefaultTicketPrice,
		"min_ticket_price":              DefaultMinTicketPrice,
		"default_max_tickets":           DefaultMaxTickets,
		"default_duration_hours":        DefaultDurationHours,
		"default_prize":                 DefaultPrize,
		"platform_fee":                  DefaultPlatformFee,
		"announce_unattributed_winners": true,
		"request_timeout_ms":            DefaultRequestTimeoutMs,
		"rpc_retries":                   DefaultRPCRetries,
		"fetch_concurrency":             DefaultFetchConcurrency,
		"status_addr":                   DefaultStatusAddr,
		"log_file":                      DefaultLogFile,
		"debug_logging":                 false,
		"webhook_url":                   "",
		"journal_file":                  "",
		"report_dir":                    "",
		"spill_file":                    "",
		"telegram.video_path":           "",
		"telegram.time_video_path":      "",
		"telegram.commands":             false,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := bindEnvironment(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := loadEnvironmentVariables(&cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func bindEnvironment(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// loadEnvironmentVariables applies the list-valued variables, which accept
// comma separated values.
func loadEnvironmentVariables(cfg *Config) error {
	if raw := firstEnv(envPrefix+"_RPC_LIST", "SOLANA_RPC_URL"); raw != "" {
		if rpcs := splitList(raw); len(rpcs) > 0 {
			cfg.RPCList = rpcs
		}
	}
	cfg.RPCList = splitList(strings.Join(cfg.RPCList, ","))

	if raw := firstEnv(envPrefix+"_TELEGRAM_ADMIN_IDS", "ADMIN_IDS"); raw != "" {
		ids := make([]int64, 0)
		for _, item := range splitList(raw) {
			id, err := strconv.ParseInt(item, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid admin id %q: %w", item, err)
			}
			ids = append(ids, id)
		}
		cfg.Telegram.AdminIDs = ids
	}
	return nil
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			return value
		}
	}
	return ""
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if clean := strings.TrimSpace(item); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}

func validateConfig(cfg *Config) error {
	if cfg.ProgramID == "" {
		return errors.New("missing program_id in configuration")
	}
	if _, err := solana.PublicKeyFromBase58(cfg.ProgramID); err != nil {
		return fmt.Errorf("invalid program_id: %w", err)
	}
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return fmt.Errorf("invalid RPC URL %q: %w", rpcURL, err)
		}
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	if cfg.WebhookURL != "" {
		if err := validateURLWithCache(cfg.WebhookURL, "https"); err != nil {
			return errors.New("webhook URL must use HTTPS")
		}
	}
	if cfg.Telegram.Token != "" && cfg.Telegram.ChannelID == "" {
		return errors.New("telegram.channel_id is required when telegram.token is set")
	}
	if cfg.Telegram.Commands && cfg.Telegram.Token == "" {
		return errors.New("telegram.commands requires telegram.token")
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	switch {
	case cfg.PollIntervalMs <= 0:
		return errors.New("invalid poll_interval_ms")
	case cfg.LookbackMs <= cfg.PollIntervalMs:
		return errors.New("lookback_ms must be greater than poll_interval_ms")
	case cfg.SignatureLimit <= 0 || cfg.SignatureLimit > maxSignatureLimit:
		return fmt.Errorf("signature_limit must be within 1..%d", maxSignatureLimit)
	case cfg.MaxProcessedSignatures <= 0:
		return errors.New("invalid max_processed_signatures")
	case cfg.MaxKnownAnnouncements <= 0:
		return errors.New("invalid max_known_announcements")
	case cfg.EndedGraceMs < 0:
		return errors.New("invalid ended_grace_ms")
	case cfg.MinTicketPrice == 0:
		return errors.New("invalid min_ticket_price")
	case cfg.DefaultTicketPrice < cfg.MinTicketPrice:
		return errors.New("default_ticket_price is below min_ticket_price")
	case cfg.DefaultMaxTickets <= 0:
		return errors.New("invalid default_max_tickets")
	case cfg.DefaultDurationHours <= 0:
		return errors.New("invalid default_duration_hours")
	case cfg.PlatformFee < 0 || cfg.PlatformFee >= 1:
		return errors.New("platform_fee must be within [0, 1)")
	case cfg.RequestTimeoutMs <= 0:
		return errors.New("invalid request_timeout_ms")
	case cfg.RPCRetries < 0:
		return errors.New("invalid rpc_retries")
	case cfg.FetchConcurrency <= 0:
		return errors.New("invalid fetch_concurrency")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL + "|" + protocol); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL+"|"+protocol, parsed)
	return nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c *Config) Lookback() time.Duration {
	return time.Duration(c.LookbackMs) * time.Millisecond
}

func (c *Config) EndedGrace() time.Duration {
	return time.Duration(c.EndedGraceMs) * time.Millisecond
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

func (c *Config) DefaultDuration() time.Duration {
	return time.Duration(c.DefaultDurationHours) * time.Hour
}

// TelegramEnabled reports whether announcements go to Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.Token != "" && c.Telegram.ChannelID != ""
}
