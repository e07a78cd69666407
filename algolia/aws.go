package algolia

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsManagerClient defines the interface for AWS Secrets Manager operations.
type SecretsManagerClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecrets reads credentials from the secret "{environment}/algolia".
// The secret holds JSON with app_id and write_api_key fields.
func AWSSecrets(ctx context.Context, client SecretsManagerClient, env string) FetchSecrets {
	return secretFetcher(ctx, client, fmt.Sprintf("%s/algolia", env), "at path")
}

// AWSSecretsFromARN reads credentials from the secret with the given ARN.
func AWSSecretsFromARN(ctx context.Context, client SecretsManagerClient, secretArn string) FetchSecrets {
	return secretFetcher(ctx, client, secretArn, "with ARN")
}

func secretFetcher(ctx context.Context, client SecretsManagerClient, secretID, label string) FetchSecrets {
	return func() (Secrets, error) {
		result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: aws.String(secretID),
		})
		if err != nil {
			return Secrets{}, fmt.Errorf("failed to get secret from AWS Secrets Manager %s %s: %w", label, secretID, err)
		}

		if result.SecretString == nil {
			return Secrets{}, fmt.Errorf("secret %s %s has no string value", label, secretID)
		}

		var secrets Secrets
		if err := json.Unmarshal([]byte(aws.ToString(result.SecretString)), &secrets); err != nil {
			return Secrets{}, fmt.Errorf("failed to unmarshal secret JSON %s %s: %w", label, secretID, err)
		}

		return secrets, nil
	}
}
