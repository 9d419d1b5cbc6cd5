package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/alexanderramin/foreman/internal/cli"
	"github.com/alexanderramin/foreman/internal/cli/formatter"
	"github.com/alexanderramin/foreman/internal/config"
	"github.com/alexanderramin/foreman/internal/db"
	"github.com/alexanderramin/foreman/internal/repository"
	"github.com/alexanderramin/foreman/internal/service"
	"github.com/mattn/go-isatty"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		formatter.DisableColor()
	}

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Wire repositories
	projectRepo := repository.NewSQLiteProjectRepo(database)
	resourceRepo := repository.NewSQLiteResourceRepo(database)
	planRepo := repository.NewSQLitePlanRepo(database)
	itemRepo := repository.NewSQLitePlanItemRepo(database)
	detailRepo := repository.NewSQLiteDetailLineRepo(database)

	var leaseStore repository.LeaseStore = repository.NewSQLiteLeaseStore(database)
	if cfg.LeaseBackend == config.LeaseBackendRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
		}
		leaseStore = repository.NewRedisLeaseStore(client)
	}

	// Competing writers either wait out the busy timeout or lose a version
	// check; both are retried on a fresh transaction.
	uow := db.NewSQLiteUnitOfWork(database, db.WithRetry(cfg.TxAttempts, func(err error) bool {
		return db.IsBusy(err) || errors.Is(err, repository.ErrStaleVersion)
	}))

	var observer service.UseCaseObserver = service.NoopUseCaseObserver{}
	if cfg.LogUseCases {
		observer = service.NewLogUseCaseObserver(os.Stderr, cfg.LogLevel)
	}

	// Wire services
	leases := service.NewLeaseService(leaseStore, planRepo, cfg.LeaseTTL, nil, observer)

	app := &cli.App{
		Directory: service.NewDirectoryService(projectRepo, resourceRepo, nil),
		Plans:     service.NewPlanService(planRepo, uow, nil, observer),
		Leases:    leases,
		Tree:      service.NewTreeService(itemRepo, leases, uow, nil, observer),
		Ledger:    service.NewLedgerService(itemRepo, detailRepo, leases, uow, nil, observer),
		Progress: service.NewProgressService(
			repository.NewSQLiteProgressRepo(database),
			repository.NewSQLiteProgressItemRepo(database),
			repository.NewSQLiteProgressDetailRepo(database),
			uow, nil, cfg.CompletionRequiresFull, observer),
		Transfers: service.NewTransferService(repository.NewSQLiteTransferRepo(database), uow, nil, observer),
		Inventory: service.NewInventoryService(repository.NewSQLiteInventoryRepo(database), uow, nil, observer),
		Import:    service.NewImportService(leases, uow, nil, observer),
		Actor:     cfg.ActorID,
	}

	// Execute root command
	rootCmd := cli.NewRootCmd(app)
	return rootCmd.ExecuteContext(context.Background())
}
