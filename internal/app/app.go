package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/godilite/bonus-panel/internal/config"
	handler "github.com/godilite/bonus-panel/internal/grpc"
	"github.com/godilite/bonus-panel/internal/repository"
	"github.com/godilite/bonus-panel/internal/rules"
	"github.com/godilite/bonus-panel/internal/service"
	"github.com/godilite/bonus-panel/internal/sheet"
	panelhandler "github.com/godilite/bonus-panel/internal/transport/http/handlers/panel"
	"github.com/godilite/bonus-panel/pkg/cache"
	dbbuilder "github.com/godilite/bonus-panel/pkg/database"
	grpcsrv "github.com/godilite/bonus-panel/pkg/grpc/server"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	logger     *zap.Logger
	dbPool     *sql.DB
	cache      cache.Cacher
	grpcServer *grpcsrv.Server
	httpServer *http.Server
	httpLis    net.Listener
}

// NewApp loads the rules and wires the record source, cache, service and both
// servers. Rules that fail to load abort startup.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rs, err := rules.Load(rules.Paths{
		Weights:     cfg.WeightsPath,
		Indicators:  cfg.IndicatorsPath,
		Supervisors: cfg.SupervisorsPath,
	}, rules.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("rules load failed: %w", err)
	}
	logger.Info("Rules loaded",
		zap.String("fingerprint", rs.Fingerprint()),
		zap.Strings("roles", rs.Roles()),
		zap.Strings("months", rs.Months()))

	a := &App{logger: logger}
	checks := map[string]ReadyCheck{}

	var source service.RecordSource
	switch cfg.RecordSource {
	case config.SourceSQLite:
		dbPool, err := dbbuilder.New(ctx,
			dbbuilder.WithDriver(cfg.DBDriver),
			dbbuilder.WithDataSource(cfg.DBPath),
			dbbuilder.WithMigrations(repository.Schema),
		)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
		a.dbPool = dbPool
		source = repository.NewRecordRepository(dbPool)
		checks["database"] = dbPool.PingContext
		logger.Info("Database pool initialized", zap.String("path", cfg.DBPath))
	default:
		wb, err := sheet.Open(cfg.WorkbookPath, logger)
		if err != nil {
			return nil, fmt.Errorf("workbook init failed: %w", err)
		}
		source = wb
		checks["workbook"] = func(ctx context.Context) error {
			_, err := wb.Months(ctx)
			return err
		}
	}

	a.cache = cache.Noop{}
	if cfg.CacheEnabled {
		cacheClient, err := cache.New(ctx, cache.WithAddress(cfg.RedisAddr))
		if err != nil {
			a.closeStores()
			return nil, fmt.Errorf("cache init failed: %w", err)
		}
		a.cache = cacheClient
		checks["cache"] = cacheClient.Ping
		logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))
	}

	bonusService := service.NewBonusService(source, rs, cfg.QuarterMonths, cfg.QuarterLabel, logger)

	grpcHandlers := handler.NewGRPCHandlers(bonusService, a.cache, logger, cfg.CacheTTL)
	grpcServer, err := grpcsrv.New(
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
		grpcsrv.WithLogging(true),
		grpcsrv.WithRecovery(true),
	)
	if err != nil {
		a.closeStores()
		return nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}
	grpcServer.RegisterServiceWithHealth(handler.ServiceName, func(s *grpc.Server) {
		handler.RegisterBonusPanelServer(s, grpcHandlers)
	})
	a.grpcServer = grpcServer

	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = grpcServer.Shutdown(ctx)
		a.closeStores()
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.HTTPAddr, err)
	}
	a.httpLis = httpLis

	panels := panelhandler.NewHandler(bonusService, a.cache, logger, cfg.CacheTTL)
	a.httpServer = &http.Server{
		Handler:           NewRouter(logger, panels, checks),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

// HTTPAddr returns the dashboard's listening address.
func (a *App) HTTPAddr() net.Addr {
	return a.httpLis.Addr()
}

// GRPCAddr returns the gRPC listening address.
func (a *App) GRPCAddr() net.Addr {
	return a.grpcServer.Addr()
}

// Run serves until ctx is done or SIGINT/SIGTERM arrives, then shuts both
// servers down.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application starting")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.grpcServer.Start()

	httpErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server started", zap.String("addr", a.httpLis.Addr().String()))
		if err := a.httpServer.Serve(a.httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
		close(httpErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-httpErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	a.logger.Info("application shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", zap.Error(err))
	}
	if err := a.grpcServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("grpc shutdown error", zap.Error(err))
	}
	a.closeStores()

	if shutdownCtx.Err() == context.DeadlineExceeded {
		a.logger.Warn("shutdown completed but deadline exceeded")
	} else {
		a.logger.Info("graceful shutdown completed successfully")
	}

	_ = a.logger.Sync()
	return runErr
}

func (a *App) closeStores() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("cache shutdown error", zap.Error(err))
		}
	}
	if a.dbPool != nil {
		if err := a.dbPool.Close(); err != nil {
			a.logger.Error("database shutdown error", zap.Error(err))
		}
	}
}
