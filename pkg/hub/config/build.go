package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"
	"github.com/tendant/resource-hub/pkg/hub"
	"github.com/tendant/resource-hub/pkg/hub/identity"
	"github.com/tendant/resource-hub/pkg/hub/metrics"
	"github.com/tendant/resource-hub/pkg/hub/objectkey"
	"github.com/tendant/resource-hub/pkg/hub/repo/memory"
	repopg "github.com/tendant/resource-hub/pkg/hub/repo/postgres"
	fsstorage "github.com/tendant/resource-hub/pkg/hub/storage/fs"
	memorystorage "github.com/tendant/resource-hub/pkg/hub/storage/memory"
	miniostorage "github.com/tendant/resource-hub/pkg/hub/storage/minio"
	s3storage "github.com/tendant/resource-hub/pkg/hub/storage/s3"
)

// Runtime holds everything built from a Config.
type Runtime struct {
	Config     *Config
	Hub        *hub.Hub
	Repository hub.Repository
	BlobStore  hub.BlobStore
	Metrics    *metrics.Recorder
	TokenAuth  *jwtauth.JWTAuth // nil when JWT_SECRET is empty
	Logger     *slog.Logger

	pool *pgxpool.Pool
}

// NewLogger returns the slog logger selected by LogFormat, LogLevel and
// Environment: JSON in production, tint colourised text otherwise.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	format := c.LogFormat
	if format == "" {
		format = "text"
		if c.Environment == "production" {
			format = "json"
		}
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{Level: level, TimeFormat: time.Kitchen}))
}

// Build constructs the stores and the hub. A nil provider selects JWT
// identities when JWT_SECRET is set and anonymous callers otherwise.
func (c *Config) Build(ctx context.Context, logger *slog.Logger, provider hub.IdentityProvider) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{Config: c, Logger: logger, Metrics: metrics.New()}

	if c.JWTSecret != "" {
		rt.TokenAuth = identity.NewTokenAuth(c.JWTSecret)
	}
	if provider == nil {
		provider = hub.Anonymous
		if rt.TokenAuth != nil {
			provider = identity.JWT{}
		}
	}

	repo, err := c.buildRepository(ctx, rt)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	rt.Repository = repo

	store, err := c.buildBlobStore(ctx)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build storage backend: %w", err)
	}
	rt.BlobStore = store

	keys, err := objectkey.New(c.Hub.ObjectKeys)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.Hub, err = hub.New(
		hub.WithRepository(repo),
		hub.WithBlobStore(store),
		hub.WithIdentityProvider(provider),
		hub.WithCatalog(c.Catalog()),
		hub.WithKeyGenerator(keys),
		hub.WithLogger(logger),
		hub.WithMetrics(rt.Metrics),
		hub.WithCallTimeout(c.Hub.CallTimeout),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// Ping checks that the metadata store is reachable.
func (rt *Runtime) Ping(ctx context.Context) error {
	if rt.pool == nil {
		return nil
	}
	return rt.pool.Ping(ctx)
}

// Close releases the database pool.
func (rt *Runtime) Close() {
	if rt.pool != nil {
		rt.pool.Close()
	}
}

func (c *Config) buildRepository(ctx context.Context, rt *Runtime) (hub.Repository, error) {
	dbType, err := c.DatabaseType()
	if err != nil {
		return nil, err
	}
	if dbType == "memory" {
		return memory.New(), nil
	}

	cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema := c.DBSchema; schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	rt.pool = pool

	if c.AutoMigrate {
		if err := repopg.Migrate(ctx, pool); err != nil {
			return nil, err
		}
	}
	return repopg.NewWithPool(pool), nil
}

func (c *Config) buildBlobStore(ctx context.Context) (hub.BlobStore, error) {
	target, err := c.Storage()
	if err != nil {
		return nil, err
	}

	switch target.Scheme {
	case "memory":
		if c.StoragePublicURL != "" {
			return memorystorage.New(memorystorage.WithURLPrefix(strings.TrimSuffix(c.StoragePublicURL, "/") + "/")), nil
		}
		return memorystorage.New(), nil

	case "file":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   target.Path,
			URLPrefix: c.StoragePublicURL,
		})

	case "s3":
		q := target.Query
		return s3storage.New(s3storage.Config{
			Region:                 queryString(q, "region", c.S3.Region),
			Bucket:                 target.Bucket,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               queryString(q, "endpoint", c.S3.Endpoint),
			UsePathStyle:           queryBool(q, "path_style", c.S3.UsePathStyle),
			PresignDuration:        c.S3.PresignDuration,
			PublicBaseURL:          c.StoragePublicURL,
			EnableSSE:              c.S3.EnableSSE,
			SSEAlgorithm:           c.S3.SSEAlgorithm,
			SSEKMSKeyID:            c.S3.SSEKMSKeyID,
			CreateBucketIfNotExist: queryBool(q, "create_bucket", c.S3.CreateBucket),
		})

	case "minio":
		q := target.Query
		return miniostorage.New(ctx, miniostorage.Config{
			Endpoint:               queryString(q, "endpoint", c.MinIO.Endpoint),
			AccessKeyID:            c.MinIO.AccessKeyID,
			SecretAccessKey:        c.MinIO.SecretAccessKey,
			Bucket:                 target.Bucket,
			UseSSL:                 queryBool(q, "ssl", c.MinIO.UseSSL),
			Region:                 c.MinIO.Region,
			PublicBaseURL:          c.StoragePublicURL,
			CreateBucketIfNotExist: queryBool(q, "create_bucket", c.MinIO.CreateBucket),
		})
	}
	return nil, fmt.Errorf("unsupported storage scheme: %s", target.Scheme)
}
