package algolia

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// mockSecretsManagerClient implements SecretsManagerClient for testing
type mockSecretsManagerClient struct {
	secretValue *string
	err         error
	requested   string
}

func (m *mockSecretsManagerClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	m.requested = aws.ToString(params.SecretId)
	if m.err != nil {
		return nil, m.err
	}

	return &secretsmanager.GetSecretValueOutput{
		SecretString: m.secretValue,
	}, nil
}

func TestAWSSecrets_Success(t *testing.T) {
	ctx := context.Background()
	secretJSON := `{"app_id":"test-app-id","write_api_key":"test-api-key"}`

	client := &mockSecretsManagerClient{
		secretValue: aws.String(secretJSON),
	}

	secrets, err := AWSSecrets(ctx, client, "production")()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if client.requested != "production/algolia" {
		t.Errorf("Expected secret id 'production/algolia', got '%s'", client.requested)
	}
	if secrets.AppID != "test-app-id" {
		t.Errorf("Expected AppID to be 'test-app-id', got '%s'", secrets.AppID)
	}
	if secrets.WriteApiKey != "test-api-key" {
		t.Errorf("Expected WriteApiKey to be 'test-api-key', got '%s'", secrets.WriteApiKey)
	}
}

func TestAWSSecretsFromARN_Success(t *testing.T) {
	ctx := context.Background()
	arn := "arn:aws:secretsmanager:us-east-1:123456789012:secret:algolia"
	client := &mockSecretsManagerClient{
		secretValue: aws.String(`{"app_id":"arn-app","write_api_key":"arn-key"}`),
	}

	secrets, err := AWSSecretsFromARN(ctx, client, arn)()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if client.requested != arn {
		t.Errorf("Expected secret id %q, got %q", arn, client.requested)
	}
	if secrets.AppID != "arn-app" || secrets.WriteApiKey != "arn-key" {
		t.Errorf("Unexpected secrets: %+v", secrets)
	}
}

func TestAWSSecrets_Errors(t *testing.T) {
	ctx := context.Background()
	arn := "arn:aws:secretsmanager:us-east-1:123456789012:secret:algolia"

	tests := []struct {
		name     string
		client   *mockSecretsManagerClient
		fetch    func(SecretsManagerClient) FetchSecrets
		expected string
		exact    bool
	}{
		{
			name:     "get secret error",
			client:   &mockSecretsManagerClient{err: errors.New("secrets manager error")},
			fetch:    func(c SecretsManagerClient) FetchSecrets { return AWSSecrets(ctx, c, "production") },
			expected: "failed to get secret from AWS Secrets Manager at path production/algolia",
		},
		{
			name:     "nil secret string",
			client:   &mockSecretsManagerClient{},
			fetch:    func(c SecretsManagerClient) FetchSecrets { return AWSSecrets(ctx, c, "production") },
			expected: "secret at path production/algolia has no string value",
			exact:    true,
		},
		{
			name:     "invalid JSON",
			client:   &mockSecretsManagerClient{secretValue: aws.String(`{"app_id":"test-app-id","write_api_key":}`)},
			fetch:    func(c SecretsManagerClient) FetchSecrets { return AWSSecrets(ctx, c, "production") },
			expected: "failed to unmarshal secret JSON at path production/algolia",
		},
		{
			name:     "arn nil secret string",
			client:   &mockSecretsManagerClient{},
			fetch:    func(c SecretsManagerClient) FetchSecrets { return AWSSecretsFromARN(ctx, c, arn) },
			expected: "secret with ARN " + arn + " has no string value",
			exact:    true,
		},
		{
			name:     "arn get secret error",
			client:   &mockSecretsManagerClient{err: errors.New("access denied")},
			fetch:    func(c SecretsManagerClient) FetchSecrets { return AWSSecretsFromARN(ctx, c, arn) },
			expected: "failed to get secret from AWS Secrets Manager with ARN " + arn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fetch(tt.client)()
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if tt.exact && err.Error() != tt.expected {
				t.Errorf("Expected error message '%s', got '%s'", tt.expected, err.Error())
			}
			if !tt.exact && !strings.Contains(err.Error(), tt.expected) {
				t.Errorf("Expected error to contain '%s', got '%s'", tt.expected, err.Error())
			}
		})
	}
}

func TestAWSSecrets_EnvironmentPath(t *testing.T) {
	ctx := context.Background()
	secretJSON := `{"app_id":"staging-app-id","write_api_key":"staging-api-key"}`

	client := &mockSecretsManagerClient{
		secretValue: aws.String(secretJSON),
	}

	secrets, err := AWSSecrets(ctx, client, "staging")()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if client.requested != "staging/algolia" {
		t.Errorf("Expected secret id 'staging/algolia', got '%s'", client.requested)
	}
	if secrets.AppID != "staging-app-id" {
		t.Errorf("Expected AppID to be 'staging-app-id', got '%s'", secrets.AppID)
	}
	if secrets.WriteApiKey != "staging-api-key" {
		t.Errorf("Expected WriteApiKey to be 'staging-api-key', got '%s'", secrets.WriteApiKey)
	}
}
