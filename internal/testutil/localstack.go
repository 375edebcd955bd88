package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/siwarga/rwrt-backend/internal/config"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
	"github.com/testcontainers/testcontainers-go/wait"
)

type TestLocalStack struct {
	Container *localstack.LocalStackContainer
	Endpoint  string
	SES       *ses.Client
}

// NewTestLocalStack starts LocalStack with SES and S3 enabled
func NewTestLocalStack(t *testing.T) *TestLocalStack {
	ctx := context.Background()

	container, err := localstack.Run(ctx,
		"localstack/localstack:3.0",
		testcontainers.WithReuseByName("rwrt-backend-test-localstack"),
		testcontainers.CustomizeRequest(testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Env: map[string]string{
					"SERVICES": "ses,s3",
				},
			},
		}),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForLog("Ready.").
					WithOccurrence(1).
					WithStartupTimeout(60*time.Second),
				wait.ForListeningPort("4566/tcp").
					WithStartupTimeout(60*time.Second),
			),
		),
	)
	require.NoError(t, err, "Failed to start LocalStack container")

	endpoint, err := container.PortEndpoint(ctx, "4566/tcp", "http")
	require.NoError(t, err, "Failed to get LocalStack endpoint")

	ls := &TestLocalStack{
		Container: container,
		Endpoint:  endpoint,
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "test", SecretAccessKey: "test", Source: "HardcodedCredentials"}, nil
		})),
	)
	require.NoError(t, err, "Failed to load AWS config")

	ls.SES = ses.NewFromConfig(cfg, func(o *ses.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	t.Cleanup(func() {
		ls.Close()
	})

	return ls
}

// AWSConfig points the application AWS services at the container
func (ls *TestLocalStack) AWSConfig(bucket string) config.AWSConfig {
	return config.AWSConfig{
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		EndpointURL:     ls.Endpoint,
		Bucket:          bucket,
		FromEmail:       "noreply@rw05.example.com",
		PresignExpiry:   5 * time.Minute,
	}
}

func (ls *TestLocalStack) Close() {
	if ls.Container != nil {
		ls.Container.Terminate(context.Background())
	}
}

// Cleanup removes verified SES identities between tests
func (ls *TestLocalStack) Cleanup(t *testing.T) {
	ctx := context.Background()

	listOut, err := ls.SES.ListIdentities(ctx, &ses.ListIdentitiesInput{})
	if err != nil {
		t.Logf("Failed to list identities: %v", err)
		return
	}

	for _, identity := range listOut.Identities {
		_, err := ls.SES.DeleteIdentity(ctx, &ses.DeleteIdentityInput{
			Identity: &identity,
		})
		if err != nil {
			t.Logf("Failed to delete identity %s: %v", identity, err)
		}
	}
}
