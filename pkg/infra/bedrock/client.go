package bedrock

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Runtime is the subset of the Bedrock runtime API used for moderation.
// *bedrockruntime.Client satisfies it.
//
//go:generate mockery --name=Runtime --dir=. --output=./mocks --filename=runtime_mock.go --case=underscore --with-expecter
type Runtime interface {
	ApplyGuardrail(
		ctx context.Context,
		params *bedrockruntime.ApplyGuardrailInput,
		optFns ...func(*bedrockruntime.Options),
	) (*bedrockruntime.ApplyGuardrailOutput, error)
	Converse(
		ctx context.Context,
		params *bedrockruntime.ConverseInput,
		optFns ...func(*bedrockruntime.Options),
	) (*bedrockruntime.ConverseOutput, error)
}

type Credentials struct {
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	SessionToken string `mapstructure:"session_token"`
	Region       string `mapstructure:"region"`
}

func (c Credentials) key() string {
	return c.AccessKey + "|" + c.Region
}

// Pool hands out one runtime client per access key and region.
type Pool struct {
	clients sync.Map
	sf      singleflight.Group
	logger  *logrus.Logger
}

func NewPool(logger *logrus.Logger) *Pool {
	return &Pool{logger: logger}
}

func (p *Pool) Get(ctx context.Context, creds Credentials) (Runtime, error) {
	if creds.Region == "" {
		return nil, fmt.Errorf("aws region is required")
	}
	key := creds.key()
	if v, ok := p.clients.Load(key); ok {
		return v.(Runtime), nil
	}
	v, err, _ := p.sf.Do(key, func() (any, error) {
		if v, ok := p.clients.Load(key); ok {
			return v, nil
		}
		opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(creds.Region)}
		if creds.AccessKey != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(aws.CredentialsProviderFunc(
				func(context.Context) (aws.Credentials, error) {
					return aws.Credentials{
						AccessKeyID:     creds.AccessKey,
						SecretAccessKey: creds.SecretKey,
						SessionToken:    creds.SessionToken,
					}, nil
				},
			)))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			if p.logger != nil {
				p.logger.WithError(err).Error("failed to load AWS config")
			}
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		var rt Runtime = bedrockruntime.NewFromConfig(awsCfg)
		p.clients.Store(key, rt)
		return rt, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Runtime), nil
}
