package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"tictactoe-server/internal/config"
	"tictactoe-server/internal/registry"
	"tictactoe-server/internal/repository"
	"tictactoe-server/internal/repository/storage"
	"tictactoe-server/internal/service"
	"tictactoe-server/internal/transport/tcp"
)

var (
	ErrPortOutOfRange = errors.New("port number out of range")
	ErrAddrNotFound   = errors.New("redis address string is empty")
	ErrUnknownStorage = errors.New("unknown storage type")
)

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	port, err := strconv.Atoi(conf.Port)
	if err != nil || port < 1024 || port > 65535 {
		return fmt.Errorf("%w: %s", ErrPortOutOfRange, conf.Port)
	}

	userRepo, closeStorage, err := buildUserRepository(ctx, conf)
	if err != nil {
		return fmt.Errorf("could not set up credential storage: %w", err)
	}

	defer func() {
		if err = closeStorage(); err != nil {
			log.Error("could not close credential storage", "error", err)
		}
	}()

	authService := service.NewAuthService(userRepo)
	sessionRegistry := registry.New(ctx, logger, authService)
	server := tcp.New(logger, sessionRegistry, conf.IdleTimeout)

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting TCP server", "port", conf.Port)
		if srvErr := server.Start(ctx, conf.Port); srvErr != nil {
			log.Error("TCP server error", "error", srvErr)
			errCh <- srvErr
		}
	}()

	select {
	case err = <-errCh:
		return fmt.Errorf("TCP server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

func buildUserRepository(ctx context.Context, conf *config.Config) (repository.UserRepository, func() error, error) {
	switch conf.Storage.Type {
	case config.StorageSQLite:
		sqliteStorage, err := storage.NewSQLiteStorage(conf.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open sqlite storage: %w", err)
		}
		if err = sqliteStorage.Init(ctx); err != nil {
			return nil, nil, fmt.Errorf("could not init sqlite storage: %w", err)
		}

		return repository.NewSQLiteUserRepository(sqliteStorage.Connection), sqliteStorage.Close, nil
	case config.StorageRedis:
		addr := conf.Storage.Redis.GetRedisAddr()
		if addr == "" {
			return nil, nil, ErrAddrNotFound
		}

		redisStorage, err := storage.NewRedisStorage(ctx, addr)
		if err != nil {
			return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
		}

		return repository.NewRedisUserRepository(redisStorage.Connection), redisStorage.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownStorage, conf.Storage.Type)
	}
}
