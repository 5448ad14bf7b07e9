package mainconfig

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/wolfman30/smilebright-frontdesk/internal/clinic"
	appconfig "github.com/wolfman30/smilebright-frontdesk/internal/config"
	"github.com/wolfman30/smilebright-frontdesk/internal/conversation"
	"github.com/wolfman30/smilebright-frontdesk/pkg/logging"
)

// LoadAWSConfig centralizes AWS SDK initialization so both binaries share the
// same LocalStack/production wiring.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, err
	}

	if endpoint := cfg.AWSEndpointOverride; endpoint != "" {
		awsCfg.EndpointResolverWithOptions = aws.EndpointResolverWithOptionsFunc(
			func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
				if service != bedrockruntime.ServiceID {
					return aws.Endpoint{}, &aws.EndpointNotFoundError{}
				}
				return aws.Endpoint{
					URL:           endpoint,
					PartitionID:   "aws",
					SigningRegion: cfg.AWSRegion,
				}, nil
			},
		)
	}

	return awsCfg, nil
}

// ClinicProfile applies the CLINIC_* overrides to the default practice.
func ClinicProfile(cfg *appconfig.Config) *clinic.Config {
	profile := clinic.DefaultConfig()
	if name := strings.TrimSpace(cfg.ClinicName); name != "" {
		profile.Name = name
	}
	if tz := strings.TrimSpace(cfg.ClinicTimezone); tz != "" {
		profile.Timezone = tz
	}
	if cfg.MaxAdvanceDays > 0 {
		profile.MaxAdvanceDays = cfg.MaxAdvanceDays
	}
	return profile
}

// LLMClient builds the configured provider, wrapped with the fallback when
// one is set. It returns nil when LLM_PROVIDER is "none". The close func
// releases provider connections and is always safe to call.
func LLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (conversation.LLMClient, func(), error) {
	noop := func() {}
	if cfg.LLMProvider == appconfig.ProviderNone {
		logger.Warn("no LLM provider configured; free text gets canned answers")
		return nil, noop, nil
	}

	primary, closePrimary, err := providerClient(ctx, cfg, cfg.LLMProvider)
	if err != nil {
		return nil, noop, err
	}
	logger.Info("using LLM provider", "provider", cfg.LLMProvider)

	if cfg.LLMFallback == appconfig.ProviderNone || cfg.LLMFallback == cfg.LLMProvider {
		return primary, closePrimary, nil
	}
	fallback, closeFallback, err := providerClient(ctx, cfg, cfg.LLMFallback)
	if err != nil {
		logger.Warn("fallback LLM unavailable", "provider", cfg.LLMFallback, "error", err)
		return primary, closePrimary, nil
	}
	logger.Info("LLM fallback enabled", "provider", cfg.LLMFallback)
	return conversation.NewFallbackLLMClient(logger,
		conversation.Provider{Name: cfg.LLMProvider, Client: primary},
		conversation.Provider{Name: cfg.LLMFallback, Client: fallback},
	), func() {
		closePrimary()
		closeFallback()
	}, nil
}

// Model returns the request model id. Gemini clients carry their own model,
// so Bedrock's id wins whenever Bedrock serves as primary or fallback.
func Model(cfg *appconfig.Config) string {
	if cfg.LLMProvider == appconfig.ProviderBedrock || cfg.LLMFallback == appconfig.ProviderBedrock {
		return cfg.BedrockModelID
	}
	return cfg.GeminiModelID
}

func providerClient(ctx context.Context, cfg *appconfig.Config, provider string) (conversation.LLMClient, func(), error) {
	switch provider {
	case appconfig.ProviderBedrock:
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("mainconfig: load aws config: %w", err)
		}
		return conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg)), func() {}, nil
	case appconfig.ProviderGemini:
		client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, nil, fmt.Errorf("mainconfig: gemini client: %w", err)
		}
		return client, func() { _ = client.Close() }, nil
	default:
		return nil, nil, errors.New("mainconfig: unknown LLM provider " + provider)
	}
}
