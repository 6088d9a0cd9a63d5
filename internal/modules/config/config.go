package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDirENV      = "CONFIG_DIR"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	chatTelegramENV   = "TELEGRAM_CHAT_ID"
	databaseDSN       = "DATABASE_DSN"
	apiKeyENV         = "BINANCE_API_KEY"
	secretKeyENV      = "BINANCE_SECRET_KEY"
	exchangeEnvENV    = "EXCHANGE_ENV"
	symbolENV         = "SYMBOL"

	EnvTestnet = "testnet"
	EnvMainnet = "mainnet"
)

// Decimal — точное число из YAML. Значение берётся как текст, без float.
type Decimal struct {
	decimal.Decimal
}

func MustDecimal(s string) Decimal {
	return Decimal{decimal.RequireFromString(s)}
}

func (d *Decimal) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("decimal %q: %w", raw, err)
	}
	d.Decimal = v
	return nil
}

// Config ...
type Config struct {
	InstanceID string `yaml:"instance_id"`
	Symbol     string `yaml:"symbol"`

	Exchange struct {
		Env         string        `yaml:"env"` // testnet | mainnet
		APIKey      string        `yaml:"api_key"`
		SecretKey   string        `yaml:"secret_key"`
		RestURL     string        `yaml:"rest_url"` // пусто — по env
		WSURL       string        `yaml:"ws_url"`
		RestTimeout time.Duration `yaml:"rest_timeout"`
		RecvWindow  int64         `yaml:"recv_window"`
	} `yaml:"exchange"`

	Order struct {
		Levels             int           `yaml:"levels"`
		NotionalPerOrder   Decimal       `yaml:"notional_per_order"`
		PriceOffsetPercent Decimal       `yaml:"price_offset_percent"`
		RefreshInterval    time.Duration `yaml:"refresh_interval"`
	} `yaml:"order"`

	Risk struct {
		CheckInterval          time.Duration `yaml:"check_interval"`
		InitialCapital         Decimal       `yaml:"initial_capital"`
		MaxNetPositionRatio    Decimal       `yaml:"max_net_position_ratio"`
		LiquidationMaxAttempts int           `yaml:"liquidation_max_attempts"`
		LiquidationSettleDelay time.Duration `yaml:"liquidation_settle_delay"`
		FallbackEpsilon        Decimal       `yaml:"fallback_epsilon"`
	} `yaml:"risk"`

	Supervisor struct {
		RestartBackoff    time.Duration `yaml:"restart_backoff"`
		MaxBackoff        time.Duration `yaml:"max_backoff"`
		BackoffMultiplier float64       `yaml:"backoff_multiplier"`
		MaxRestarts       int           `yaml:"max_restarts"` // 0 — без ограничения
		CheckInterval     time.Duration `yaml:"check_interval"`
		StableRun         time.Duration `yaml:"stable_run"` // 0 — max(restart_backoff, max_backoff)
		ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"supervisor"`

	Monitor struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"monitor"`

	Logging struct {
		Level        string `yaml:"level"`
		LogDirectory string `yaml:"log_directory"`
		LogToCSV     bool   `yaml:"log_to_csv"`
		QueueSize    int    `yaml:"queue_size"`
	} `yaml:"logging"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	DB string `yaml:"db_dsn"`

	Service struct {
		HealthAddr string `yaml:"health_addr"`
	} `yaml:"service"`

	Tracing struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
	} `yaml:"tracing"`
}

// Default — значения, если в файле ничего не задано.
func Default() Config {
	var c Config
	c.InstanceID = "mm_v1"
	c.Symbol = "BTCUSDT"

	c.Exchange.Env = EnvTestnet
	c.Exchange.RestTimeout = 10 * time.Second
	c.Exchange.RecvWindow = 5000

	c.Order.Levels = 3
	c.Order.NotionalPerOrder = MustDecimal("100")
	c.Order.PriceOffsetPercent = MustDecimal("0.25")
	c.Order.RefreshInterval = 5 * time.Second

	c.Risk.CheckInterval = time.Second
	c.Risk.InitialCapital = MustDecimal("200")
	c.Risk.MaxNetPositionRatio = MustDecimal("0.5")
	c.Risk.LiquidationMaxAttempts = 5
	c.Risk.LiquidationSettleDelay = time.Second
	c.Risk.FallbackEpsilon = MustDecimal("0.0005")

	c.Supervisor.RestartBackoff = 2 * time.Second
	c.Supervisor.MaxBackoff = 2 * time.Second
	c.Supervisor.BackoffMultiplier = 1
	c.Supervisor.CheckInterval = 5 * time.Second
	c.Supervisor.ShutdownTimeout = 30 * time.Second

	c.Monitor.Interval = 10 * time.Second

	c.Logging.Level = "info"
	c.Logging.LogDirectory = "./logs"
	c.Logging.LogToCSV = true
	c.Logging.QueueSize = 1024

	c.Service.HealthAddr = ":8080"
	c.Tracing.Host = "localhost"
	c.Tracing.Port = 6831
	return c
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	configFileName := getenvDefault(configFilePathENV, "values_local.yaml")
	dir := getenvDefault(configDirENV, "configs")

	cfg, err := Load(dir + string(os.PathSeparator) + configFileName)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load читает YAML поверх дефолтов, затем env, затем валидирует.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(apiKeyENV); v != "" {
		c.Exchange.APIKey = v
	}
	if v := os.Getenv(secretKeyENV); v != "" {
		c.Exchange.SecretKey = v
	}
	c.Exchange.Env = strings.ToLower(getenvDefault(exchangeEnvENV, c.Exchange.Env))
	c.Symbol = strings.ToUpper(getenvDefault(symbolENV, c.Symbol))

	if token := os.Getenv(tokenTelegramENV); token != "" {
		c.Telegram.Token = token
	}
	c.Telegram.ChatID = int64FromEnv(chatTelegramENV, c.Telegram.ChatID)

	if dsn := os.Getenv(databaseDSN); dsn != "" {
		c.DB = dsn
	}
}

func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Symbol != "", "symbol is required")
	check(c.Exchange.Env == EnvTestnet || c.Exchange.Env == EnvMainnet, "exchange.env must be testnet or mainnet, got %q", c.Exchange.Env)
	check(c.Exchange.RestTimeout > 0, "exchange.rest_timeout must be > 0")

	check(c.Order.Levels >= 1, "order.levels must be >= 1")
	check(c.Order.NotionalPerOrder.IsPositive(), "order.notional_per_order must be > 0")
	check(c.Order.PriceOffsetPercent.IsPositive(), "order.price_offset_percent must be > 0")
	check(c.Order.RefreshInterval > 0, "order.refresh_interval must be > 0")

	check(c.Risk.CheckInterval > 0, "risk.check_interval must be > 0")
	check(c.Risk.InitialCapital.IsPositive(), "risk.initial_capital must be > 0")
	check(c.Risk.MaxNetPositionRatio.IsPositive(), "risk.max_net_position_ratio must be > 0")
	check(c.Risk.LiquidationMaxAttempts >= 1, "risk.liquidation_max_attempts must be >= 1")
	check(c.Risk.LiquidationSettleDelay >= 0, "risk.liquidation_settle_delay must be >= 0")
	check(c.Risk.FallbackEpsilon.IsPositive(), "risk.fallback_epsilon must be > 0")

	check(c.Supervisor.RestartBackoff > 0, "supervisor.restart_backoff must be > 0")
	check(c.Supervisor.BackoffMultiplier >= 1, "supervisor.backoff_multiplier must be >= 1")
	check(c.Supervisor.MaxRestarts >= 0, "supervisor.max_restarts must be >= 0")
	check(c.Supervisor.CheckInterval > 0, "supervisor.check_interval must be > 0")
	check(c.Supervisor.StableRun >= 0, "supervisor.stable_run must be >= 0")

	check(c.Monitor.Interval > 0, "monitor.interval must be > 0")
	check(c.Logging.QueueSize > 0, "logging.queue_size must be > 0")

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func int64FromEnv(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
