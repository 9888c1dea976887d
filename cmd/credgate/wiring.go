package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	goCred "github.com/MrEthical07/goCred"
	"github.com/MrEthical07/goCred/internal/config"
	"github.com/MrEthical07/goCred/source"
)

// buildEngine wires sources and the attempt store from settings. The
// returned cleanup closes the engine and every handle it opened.
func buildEngine(ctx context.Context, s *config.Settings, logger *zap.Logger) (*goCred.Engine, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	sources, closeSources, err := buildSources(ctx, s, logger)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, closeSources)

	builder := goCred.New().
		WithConfig(s.EngineConfig()).
		WithLogger(logger).
		WithSources(sources...)

	if s.Attempts.Store == config.StoreRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     s.Redis.Addr,
			Password: s.Redis.Password,
			DB:       s.Redis.DB,
		})
		closers = append(closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("redis ping %s: %w", s.Redis.Addr, err)
		}
		builder.WithRedis(client)
	}

	engine, err := builder.Build()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, engine.Close)
	return engine, cleanup, nil
}

// buildSources returns the enabled sources in lookup order: remote
// directory, local database, bootstrap administrator.
func buildSources(ctx context.Context, s *config.Settings, logger *zap.Logger) ([]goCred.CredentialSource, func(), error) {
	var (
		sources []goCred.CredentialSource
		closers []func()
	)
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	dirCfg := source.DirectoryConfig{
		BaseURL:  s.Directory.URL,
		APIKey:   s.Directory.Key,
		Table:    s.Directory.Table,
		MaxTries: s.Directory.Retries,
		Timeout:  s.Directory.Timeout,
		Logger:   logger,
	}
	if dirCfg.Enabled() {
		dir, err := source.NewDirectory(dirCfg, newTokenVerifier(s))
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, dir)
	}

	if s.Database.Driver != "" {
		db, err := source.OpenDatabase(ctx, s.Database.Driver, s.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = db.Close() })
		src, err := source.NewDatabase(db, s.Database.Driver)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		sources = append(sources, src)
	}

	// NewBootstrap returns a typed nil when unconfigured.
	if admin := source.NewBootstrap(s.Bootstrap.AdminEmail, s.Bootstrap.AdminPassword); admin != nil {
		sources = append(sources, admin)
	}

	if len(sources) == 0 {
		return nil, nil, errors.New("no credential source configured: set CREDGATE_DIRECTORY_URL, CREDGATE_DATABASE_DSN or CREDGATE_BOOTSTRAP_ADMIN_EMAIL")
	}
	return sources, cleanup, nil
}

func newTokenVerifier(s *config.Settings) *source.TokenVerifier {
	var exchanger source.TokenExchanger
	switch s.Token.ExchangeMode {
	case config.ExchangeOAuth2:
		tokenURL := s.OAuth2.TokenURL
		if tokenURL == "" {
			tokenURL = s.Token.ExchangeURL
		}
		if tokenURL == "" {
			tokenURL = s.Directory.URL + "/auth/v1/token"
		}
		exchanger = source.NewOAuth2Exchanger(source.OAuth2Config{
			ClientID:     s.OAuth2.ClientID,
			ClientSecret: s.OAuth2.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       s.OAuth2.Scopes,
		}, nil)
	default:
		exchanger = source.NewRESTExchanger(s.Directory.URL, s.Token.ExchangeURL, s.Directory.Key, nil)
	}
	return source.NewTokenVerifier(exchanger, s.Token.JWTSecret)
}
