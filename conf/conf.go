package conf

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	QueueBackendRedis = "redis"
	QueueBackendSqs   = "sqs"
)

type Config struct {
	HttpAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	JwtKey   string `env:"JWT_KEY,required,notEmpty"`
	LogJson  bool   `env:"LOG_JSON" envDefault:"true"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Env      string `env:"ENV" envDefault:"dev"`

	CorsOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	AwsRegion string `env:"AWS_REGION" envDefault:"eu-central-1"`

	// judge work queue transport; change events always go through redis
	QueueBackend  string `env:"QUEUE_BACKEND" envDefault:"redis"`
	RedisUrl      string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	JudgeSqsUrl   string `env:"JUDGE_SQS_QUEUE_URL"`
	JudgeQueue    string `env:"JUDGE_QUEUE" envDefault:"judge"`
	ChangeTopic   string `env:"RECORD_CHANGE_TOPIC" envDefault:"record_change"`
	BrokerRetries int    `env:"BROKER_CONNECT_ATTEMPTS" envDefault:"10"`

	BrokerRetryDelay time.Duration `env:"BROKER_RETRY_DELAY" envDefault:"5s"`
	ClaimStaleAfter  time.Duration `env:"CLAIM_STALE_AFTER" envDefault:"10m"`
	ChangeWindow     time.Duration `env:"RECORD_CHANGE_WINDOW" envDefault:"500ms"`

	RecordTable   string `env:"DDB_RECORD_TABLE" envDefault:"ojcore_records"`
	StandingTable string `env:"DDB_STANDING_TABLE" envDefault:"ojcore_standings"`

	Postgres Postgres
}

// Load reads an optional .env file and parses the environment into Config.
func Load() (Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.QueueBackend {
	case QueueBackendRedis:
	case QueueBackendSqs:
		if c.JudgeSqsUrl == "" {
			return fmt.Errorf("JUDGE_SQS_QUEUE_URL must be set when QUEUE_BACKEND=sqs")
		}
	default:
		return fmt.Errorf("unknown QUEUE_BACKEND %q", c.QueueBackend)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("bad LOG_LEVEL: %w", err)
	}
	if c.BrokerRetries < 1 {
		return fmt.Errorf("BROKER_CONNECT_ATTEMPTS must be positive")
	}
	return nil
}

// SlogLevel parses LogLevel; validated by Load.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	_ = lvl.UnmarshalText([]byte(c.LogLevel))
	return lvl
}

// AwsConfig loads the shared SDK config with the same bounded retryer the
// tester queue clients use.
func (c Config) AwsConfig(ctx context.Context) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(c.AwsRegion),
		config.WithRetryer(func() aws.Retryer {
			return retry.AddWithMaxAttempts(retry.NewStandard(), 10)
		}),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return cfg, nil
}
