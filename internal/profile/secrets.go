package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsManagerResolver reads passwords from AWS Secrets Manager using the
// shared AWS config and the profile's aws_profile / aws_region.
type SecretsManagerResolver struct{}

type secretCreds struct {
	Password string `json:"password"`
}

// Password fetches p.PasswordSecret. The secret may be a bare string or a
// JSON object with a "password" key.
func (SecretsManagerResolver) Password(ctx context.Context, p Profile) (string, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if p.AWSProfile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(p.AWSProfile))
	}
	if p.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(p.AWSRegion))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("load AWS config: %w", err)
	}

	sm := secretsmanager.NewFromConfig(cfg)
	out, err := sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(p.PasswordSecret)})
	if err != nil {
		return "", fmt.Errorf("failed to fetch secret '%s': %w", p.PasswordSecret, err)
	}
	return passwordFromSecret(aws.ToString(out.SecretString))
}

func passwordFromSecret(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") {
		var creds secretCreds
		if err := json.Unmarshal([]byte(trimmed), &creds); err != nil {
			return "", fmt.Errorf("decode secret: %w", err)
		}
		if creds.Password == "" {
			return "", fmt.Errorf("secret has no password field")
		}
		return creds.Password, nil
	}
	if trimmed == "" {
		return "", fmt.Errorf("secret is empty")
	}
	return trimmed, nil
}
