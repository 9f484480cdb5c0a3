package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/FACorreiaa/statement-import/internal/domain/import/categorize"
	"github.com/FACorreiaa/statement-import/internal/domain/import/currency"
	"github.com/FACorreiaa/statement-import/internal/domain/import/parser"
	"github.com/FACorreiaa/statement-import/internal/domain/import/repository"
	"github.com/FACorreiaa/statement-import/internal/domain/import/service"
	"github.com/FACorreiaa/statement-import/pkg/config"
	"github.com/FACorreiaa/statement-import/pkg/db"
)

// Dependencies holds everything the commands share
type Dependencies struct {
	Config *config.Config
	DB     *db.DB // nil unless POSTGRES_ENABLED
	Logger *slog.Logger

	// Repositories
	Transactions repository.TransactionRepository
	Mappings     repository.MappingRepository

	// Services
	Registry      *prometheus.Registry
	Metrics       *service.Metrics
	Engine        *service.Engine
	ImportService *service.ImportService
}

// InitDependencies connects storage and builds the import services
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initServices(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	logger.Debug("dependencies initialized", slog.Bool("postgres", deps.DB != nil))
	return deps, nil
}

// initDatabase connects to Postgres and runs migrations when enabled
func (d *Dependencies) initDatabase(ctx context.Context) error {
	if !d.Config.Database.Enabled {
		return nil
	}

	database, err := db.New(ctx, db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}
	d.DB = database

	if err := d.DB.RunMigrations(ctx); err != nil {
		d.DB.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed")
	return nil
}

// initRepositories picks Postgres or the in-memory store
func (d *Dependencies) initRepositories() {
	if d.DB != nil {
		d.Transactions = repository.NewPostgresTransactionRepository(d.DB.Pool)
		d.Mappings = repository.NewPostgresMappingRepository(d.DB.Pool)
		return
	}

	mem := repository.NewMemoryRepository()
	d.Transactions = mem
	d.Mappings = mem
}

func (d *Dependencies) initServices() error {
	importCfg := d.Config.Import

	resolverOpts := []categorize.Option{categorize.WithDefault(importCfg.DefaultCategory)}
	if importCfg.CategoryRules != "" {
		rules, err := categorize.LoadRulesFile(importCfg.CategoryRules)
		if err != nil {
			return err
		}
		resolverOpts = append(resolverOpts, categorize.WithExtraRules(rules))
		d.Logger.Info("category rules loaded",
			slog.String("path", importCfg.CategoryRules),
			slog.Int("rules", len(rules)),
		)
	}
	resolver, err := categorize.NewResolver(resolverOpts...)
	if err != nil {
		return fmt.Errorf("failed to build category resolver: %w", err)
	}

	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.Metrics = service.NewMetrics(d.Registry)

	d.Engine = service.NewEngine(d.Logger).
		WithRepository(d.Transactions).
		WithCategoryResolver(resolver).
		WithCurrencyDetector(currency.NewDetector(currency.DefaultRegistry(), importCfg.DefaultCurrency, d.Logger)).
		WithDateParser(&parser.DateParser{
			Now:         time.Now,
			Location:    time.UTC,
			PastYears:   importCfg.DatePastYears,
			FutureYears: importCfg.DateFutureYears,
		}).
		WithMetrics(d.Metrics).
		WithDefaultCard(importCfg.DefaultCard).
		WithDefaultCategory(importCfg.DefaultCategory).
		WithHeaderScanRows(importCfg.HeaderScanRows)

	handler := service.NewSpreadsheetHandler(parser.NewTabularDecoder(), d.Engine, importCfg.PreviewRows)
	d.ImportService = service.NewImportService(d.Logger, handler).
		WithMappingRepository(d.Mappings)
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
}
