package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "CAMPUSPAY_"

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout  time.Duration `koanf:"read_timeout"`
		WriteTimeout time.Duration `koanf:"write_timeout"`
		IdleTimeout  time.Duration `koanf:"idle_timeout"`
	} `koanf:"http"`

	// Backend is the campus payments API. Timeout 0 means calls wait until the
	// transport resolves or errors.
	Backend struct {
		BaseURL string        `koanf:"base_url"`
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"backend"`

	ReaderBridge struct {
		Target       string        `koanf:"target"`
		Timeout      time.Duration `koanf:"timeout"`
		UseTLS       bool          `koanf:"use_tls"`
		CACertPath   string        `koanf:"ca_cert_path"`
		ServerName   string        `koanf:"server_name"`
		MaxRecvBytes int           `koanf:"max_recv_bytes"`
		MaxSendBytes int           `koanf:"max_send_bytes"`
	} `koanf:"reader_bridge"`

	MySQL struct {
		DSN             string        `koanf:"dsn"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	} `koanf:"mysql"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Settlement struct {
		LockTTL   time.Duration `koanf:"lock_ttl"`
		LedgerTTL time.Duration `koanf:"ledger_ttl"`
	} `koanf:"settlement"`

	Rabbit struct {
		URL        string `koanf:"url"`
		Exchange   string `koanf:"exchange"`
		RoutingKey string `koanf:"routing_key"`
		Queue      string `koanf:"queue"`
		Prefetch   int    `koanf:"prefetch"`
		// DeadLetter nacks failed gaps without requeue so the queue's
		// dead-letter exchange receives them.
		DeadLetter bool `koanf:"dead_letter"`
	} `koanf:"rabbitmq"`

	Kafka struct {
		Brokers     []string `koanf:"brokers"`
		GroupID     string   `koanf:"group_id"`
		TopicOrders string   `koanf:"topic_orders"`
	} `koanf:"kafka"`

	Telegram struct {
		Token  string `koanf:"token"`
		ChatID int64  `koanf:"chat_id"`
	} `koanf:"telegram"`

	Security struct {
		JWTSecret string        `koanf:"jwt_secret"`
		Issuer    string        `koanf:"issuer"`
		Audience  string        `koanf:"audience"`
		TTL       time.Duration `koanf:"ttl"`
		Operators []Operator    `koanf:"operators"`
	} `koanf:"security"`

	CryptoConfig struct {
		KeyID     string `koanf:"key_id"`
		AES256B64 string `koanf:"aes256_b64url"`
		RSAPubPEM string `koanf:"rsa_pub_pem"`
		RSAPriPEM string `koanf:"rsa_pri_pem"`
	} `koanf:"crypto"`
}

// Operator is a terminal API client. SecretHash is a bcrypt hash.
type Operator struct {
	ID         string   `koanf:"id"`
	SecretHash string   `koanf:"secret_hash"`
	Perms      []string `koanf:"perms"`
	Enabled    bool     `koanf:"enabled"`
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/staging/prod). Optional: allow missing for local runs.
	_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())

	// 3) environment variables override (prefix CAMPUSPAY_, nested with __)
	// e.g. CAMPUSPAY_BACKEND__BASE_URL, CAMPUSPAY_REDIS__PASSWORD
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "campuspay-terminal"
	}
	if c.App.LogFile == "" {
		c.App.LogFile = "./logs/app.log"
	}
	if c.Settlement.LockTTL <= 0 {
		c.Settlement.LockTTL = 5 * time.Minute
	}
	if c.Rabbit.Exchange == "" {
		c.Rabbit.Exchange = "payment.events"
	}
	if c.Rabbit.RoutingKey == "" {
		c.Rabbit.RoutingKey = "payment.gap"
	}
	if c.Rabbit.Queue == "" {
		c.Rabbit.Queue = "payment.reconcile.q"
	}
	if c.Security.TTL <= 0 {
		c.Security.TTL = time.Hour
	}
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url required")
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret required")
	}
	if len(c.Kafka.Brokers) > 0 && (c.Kafka.GroupID == "" || c.Kafka.TopicOrders == "") {
		return fmt.Errorf("kafka.group_id and kafka.topic_orders required when kafka.brokers is set")
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram.chat_id required when telegram.token is set")
	}
	return nil
}
