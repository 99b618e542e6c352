package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/ThomasGates3/ai-powered-iam/internal/platform/awsconfig"
	"github.com/ThomasGates3/ai-powered-iam/internal/platform/config"
	"github.com/ThomasGates3/ai-powered-iam/internal/platform/postgres"
	"github.com/ThomasGates3/ai-powered-iam/internal/platform/redis"
	"github.com/ThomasGates3/ai-powered-iam/internal/policy/oracle"
	"github.com/ThomasGates3/ai-powered-iam/internal/policy/service"
	"github.com/ThomasGates3/ai-powered-iam/internal/policy/store"
	"github.com/ThomasGates3/ai-powered-iam/internal/policy/synth"
)

type backends struct {
	generator service.Generator
	store     service.Store
	closers   []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func buildBackends(ctx context.Context, cfg config.Server, log *slog.Logger) (*backends, error) {
	b := &backends{}

	var awsCfg aws.Config
	if cfg.NeedsAWS() {
		c, err := awsconfig.Load(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		awsCfg = c
	}

	gen, err := buildGenerator(ctx, cfg.Generator, awsCfg)
	if err != nil {
		return nil, err
	}
	b.generator = gen

	if err := b.buildStore(ctx, cfg.Store, awsCfg, log); err != nil {
		b.close()
		return nil, err
	}
	return b, nil
}

func buildGenerator(ctx context.Context, cfg config.Generator, awsCfg aws.Config) (service.Generator, error) {
	switch cfg.Backend {
	case config.GeneratorHeuristic:
		return synth.New(), nil
	case config.GeneratorOpenRouter:
		client := oracle.NewOpenRouterClient(oracle.OpenRouterConfig{
			APIKey:  cfg.OpenRouterAPIKey,
			BaseURL: cfg.OpenRouterURL,
			Model:   cfg.OpenRouterModel,
			Timeout: cfg.Timeout,
		})
		return oracle.NewGenerator(oracle.ProviderOpenRouter, client), nil
	case config.GeneratorBedrock:
		client := oracle.NewBedrockClient(awsconfig.Bedrock(awsCfg), cfg.BedrockModelID)
		return oracle.NewGenerator(oracle.ProviderBedrock, client), nil
	case config.GeneratorGemini:
		client, err := oracle.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return oracle.NewGenerator(oracle.ProviderGemini, client), nil
	default:
		return nil, fmt.Errorf("unknown generator backend %q", cfg.Backend)
	}
}

func (b *backends) buildStore(ctx context.Context, cfg config.Store, awsCfg aws.Config, log *slog.Logger) error {
	switch cfg.Backend {
	case config.StoreMemory:
		log.Warn("using in-memory policy store; records are lost on restart")
		b.store = store.NewInMemory()
	case config.StoreRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.store = store.NewRedis(client.Client)
	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, pool.Close)
		pg := store.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		b.store = pg
	case config.StoreDynamoDB:
		b.store = store.NewDynamo(awsconfig.DynamoDB(awsCfg), cfg.DynamoTable)
	default:
		return fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
	return nil
}
