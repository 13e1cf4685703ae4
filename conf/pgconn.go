package conf

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

type Postgres struct {
	Host           string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port           string `env:"POSTGRES_PORT" envDefault:"5432"`
	User           string `env:"POSTGRES_USER" envDefault:"ojcore"`
	Password       string `env:"POSTGRES_PW"`
	PasswordSecret string `env:"POSTGRES_PASSWORD_SECRET_NAME"`
	DB             string `env:"POSTGRES_DB" envDefault:"ojcore"`
	SSLMode        string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
}

// ConnString resolves the password (from AWS Secrets Manager unless the host
// is local or no secret name is configured) and formats a libpq DSN.
func (p Postgres) ConnString(ctx context.Context, region string) (string, error) {
	pw := p.Password
	if p.Host != "localhost" && p.PasswordSecret != "" {
		secretValue, err := getSecretFromAWS(ctx, region, p.PasswordSecret)
		if err != nil {
			return "", fmt.Errorf("failed to get postgres password from AWS: %w", err)
		}
		var secret struct {
			Password string `json:"password"`
		}
		if err := json.Unmarshal([]byte(secretValue), &secret); err != nil {
			return "", fmt.Errorf("failed to parse postgres password secret: %w", err)
		}
		pw = secret.Password
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, pw, p.DB, p.SSLMode), nil
}

func getSecretFromAWS(ctx context.Context, region string, secretName string) (string, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return "", err
	}
	svc := secretsmanager.NewFromConfig(cfg)
	input := &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	result, err := svc.GetSecretValue(ctx, input)
	if err != nil {
		return "", err
	}
	if result.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", secretName)
	}
	return *result.SecretString, nil
}
