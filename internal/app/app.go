package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"

	"github.com/MikhailRaia/codekeeper/internal/auth"
	"github.com/MikhailRaia/codekeeper/internal/cache"
	"github.com/MikhailRaia/codekeeper/internal/config"
	"github.com/MikhailRaia/codekeeper/internal/handler"
	"github.com/MikhailRaia/codekeeper/internal/logger"
	"github.com/MikhailRaia/codekeeper/internal/middleware"
	"github.com/MikhailRaia/codekeeper/internal/proto"
	"github.com/MikhailRaia/codekeeper/internal/service"
	"github.com/MikhailRaia/codekeeper/internal/storage"
	"github.com/MikhailRaia/codekeeper/internal/storage/file"
	"github.com/MikhailRaia/codekeeper/internal/storage/gormstore"
	"github.com/MikhailRaia/codekeeper/internal/storage/memory"
	"github.com/MikhailRaia/codekeeper/internal/storage/postgres"
)

type App struct {
	config     *config.Config
	handler    http.Handler
	grpcServer *grpc.Server
	storage    storage.Storage
	closers    []io.Closer
}

// NewApp builds every component from cfg. Resources opened before a
// failure are released.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := newStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		config:  cfg,
		storage: store,
	}

	resolveCache, err := newCache(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if closer, ok := resolveCache.(io.Closer); ok {
		a.closers = append(a.closers, closer)
	}

	if cfg.JWTSecret == config.DevJWTSecret {
		log.Warn().Msg("Using the development JWT secret, set JWT_SECRET in production")
	}
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)

	mappingService := service.NewMappingService(store, resolveCache)
	userService := service.NewUserService(store, jwtService)

	httpHandler := handler.NewHandler(mappingService, userService, store, middleware.NewAuthMiddleware(jwtService), handler.Options{
		BaseURL:      cfg.BaseURL,
		CORSOrigins:  cfg.CORSOrigins,
		RateLimit:    cfg.RateLimit,
		RateBurst:    cfg.RateBurst,
		TokenTTL:     jwtService.TTL(),
		SecureCookie: cfg.SecureCookies(),
	})
	a.handler = httpHandler.RegisterRoutes()

	grpcAuth := middleware.NewGRPCAuthMiddleware(jwtService, proto.MappingService_Resolve_FullMethodName)
	a.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(grpcAuth.UnaryInterceptor))
	proto.RegisterMappingServiceServer(a.grpcServer, handler.NewMappingGRPCServer(mappingService, cfg.BaseURL))

	return a, nil
}

func newStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch {
	case cfg.DatabaseDSN != "":
		switch cfg.DatabaseDriver {
		case "", "postgres":
			log.Info().Msg("Using PostgreSQL storage")
			return postgres.NewStorage(ctx, cfg.DatabaseDSN)
		case gormstore.DriverPostgres, gormstore.DriverMySQL, gormstore.DriverSQLite:
			log.Info().Str("driver", cfg.DatabaseDriver).Msg("Using gorm storage")
			return gormstore.NewStorage(cfg.DatabaseDriver, cfg.DatabaseDSN, logger.NewGormLogger(logger.GormLogLevel()))
		default:
			return nil, fmt.Errorf("%w: %s", gormstore.ErrUnknownDriver, cfg.DatabaseDriver)
		}
	case cfg.FileStoragePath != "":
		log.Info().Str("path", cfg.FileStoragePath).Msg("Using file storage")
		return file.NewStorage(cfg.FileStoragePath)
	default:
		log.Info().Msg("Using in-memory storage")
		return memory.NewStorage(), nil
	}
}

func newCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if cfg.CacheTTL <= 0 {
		return cache.Nop{}, nil
	}
	if cfg.RedisAddr != "" {
		log.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis resolve cache")
		return cache.NewRedis(ctx, cfg.RedisAddr, cfg.CacheTTL)
	}
	return cache.NewMemory(cfg.CacheTTL), nil
}

// Run serves HTTP and gRPC until ctx is cancelled or a server fails, then
// shuts both down and releases resources.
func (a *App) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              a.config.ServerAddress,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)

	go func() {
		log.Info().
			Str("address", a.config.ServerAddress).
			Str("base_url", a.config.BaseURL).
			Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.config.GRPCAddress != "" {
		lis, err := net.Listen("tcp", a.config.GRPCAddress)
		if err != nil {
			_ = httpServer.Close()
			a.Close()
			return fmt.Errorf("failed to listen for gRPC: %w", err)
		}
		go func() {
			log.Info().Str("address", a.config.GRPCAddress).Msg("Starting gRPC server")
			if err := a.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	case runErr = <-errCh:
		log.Error().Err(runErr).Msg("Server failed, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	a.stopGRPC(shutdownCtx)
	a.Close()

	log.Info().Msg("Server stopped")
	return runErr
}

func (a *App) stopGRPC(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		a.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		a.grpcServer.Stop()
	}
}

// Close releases the storage and cache.
func (a *App) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close resource")
		}
	}
	if err := a.storage.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close storage")
	}
}
