package main

import (
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ozdirect/pricesync/internal/adapters/cli"
	"github.com/ozdirect/pricesync/internal/adapters/persistence"
	"github.com/ozdirect/pricesync/internal/adapters/storefront"
	"github.com/ozdirect/pricesync/internal/adapters/supplier"
	"github.com/ozdirect/pricesync/internal/application/common"
	"github.com/ozdirect/pricesync/internal/application/export"
	"github.com/ozdirect/pricesync/internal/application/freight"
	"github.com/ozdirect/pricesync/internal/application/pricereset"
	"github.com/ozdirect/pricesync/internal/application/schedule"
	appsync "github.com/ozdirect/pricesync/internal/application/sync"
	"github.com/ozdirect/pricesync/internal/infrastructure/config"
	"github.com/ozdirect/pricesync/internal/infrastructure/database"
	"github.com/ozdirect/pricesync/internal/infrastructure/logging"
	"github.com/ozdirect/pricesync/internal/infrastructure/tasks"
)

func main() {
	cfg := config.MustLoadConfig("")

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	app, cleanup, err := buildApp(cfg, logger)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer cleanup()

	cli.Execute(app)
}

func buildApp(cfg *config.Config, logger *zap.Logger) (*cli.App, func(), error) {
	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// Shared supplier quota when Redis is configured, in-process pacing
	// otherwise.
	var limiter supplier.Limiter
	if cfg.Redis.Enabled {
		opts, err := redisOptions(&cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		limiter = supplier.NewRedisLimiter(redis.NewClient(opts), cfg.Supplier.RateLimit, nil, logger)
	} else {
		limiter = supplier.NewLocalLimiter(cfg.Supplier.RateLimit)
	}

	supplierClient := supplier.NewClient(&cfg.Supplier, limiter, nil, logger)
	storefrontClient := storefront.NewBulkClient(&cfg.Storefront, nil, logger)
	queue := tasks.NewQueue(cfg.Sync.Workers, cfg.Sync.TaskTimeout, logger)

	runRepo := persistence.NewGormSyncRunRepository(db)
	chunkRepo := persistence.NewGormSyncChunkRepository(db, nil)
	masterRepo := persistence.NewGormSkuMasterRepository(db, nil)
	candidateRepo := persistence.NewGormChangeCandidateRepository(db)
	resultRepo := persistence.NewGormFreightResultRepository(db, nil)
	calcRunRepo := persistence.NewGormFreightCalcRunRepository(db)
	calcConfigRepo := persistence.NewGormCalculatorConfigRepository(db)
	scheduleRepo := persistence.NewGormScheduleRepository(db)
	exportJobRepo := persistence.NewGormExportJobRepository(db)
	baselineRepo := persistence.NewGormBaselineRepository(db)

	freightSvc := freight.NewService(calcRunRepo, masterRepo, resultRepo, candidateRepo,
		calcConfigRepo, queue, &cfg.Sync, nil, logger)
	syncSvc := appsync.NewService(db, runRepo, chunkRepo, masterRepo, candidateRepo,
		supplierClient, storefrontClient, queue, freightSvc, &cfg.Sync, &cfg.Storefront, nil, logger)
	resetSvc := pricereset.NewService(masterRepo, resultRepo, calcConfigRepo, &cfg.Sync, nil, logger)
	exportSvc := export.NewService(db, exportJobRepo, masterRepo, resultRepo, baselineRepo,
		&cfg.Export, nil, logger)
	scheduleSvc := schedule.NewService(db, scheduleRepo, queue, syncSvc, resetSvc,
		&cfg.Schedule, nil, logger)

	med := common.NewMediator()
	if err := registerHandlers(med, syncSvc, freightSvc, resetSvc, exportSvc); err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		queue.Shutdown()
		_ = database.Close(db)
	}
	return &cli.App{
		Mediator:  med,
		Scheduler: scheduleSvc,
		Sync:      syncSvc,
		Queue:     queue,
		Logger:    logger,
	}, cleanup, nil
}

func registerHandlers(
	med common.Mediator,
	syncSvc *appsync.Service,
	freightSvc *freight.Service,
	resetSvc *pricereset.Service,
	exportSvc *export.Service,
) error {
	if err := common.RegisterHandler[appsync.StartFullSyncCommand](med, appsync.NewStartFullSyncHandler(syncSvc)); err != nil {
		return fmt.Errorf("failed to register StartFullSync handler: %w", err)
	}
	if err := common.RegisterHandler[freight.RunCalcCommand](med, freight.NewRunCalcHandler(freightSvc)); err != nil {
		return fmt.Errorf("failed to register RunCalc handler: %w", err)
	}
	if err := common.RegisterHandler[pricereset.RunPriceResetCommand](med, pricereset.NewRunPriceResetHandler(resetSvc)); err != nil {
		return fmt.Errorf("failed to register RunPriceReset handler: %w", err)
	}
	if err := common.RegisterHandler[export.CreateExportJobCommand](med, export.NewCreateExportJobHandler(exportSvc)); err != nil {
		return fmt.Errorf("failed to register CreateExportJob handler: %w", err)
	}
	if err := common.RegisterHandler[export.GetExportJobFileQuery](med, export.NewGetExportJobFileHandler(exportSvc)); err != nil {
		return fmt.Errorf("failed to register GetExportJobFile handler: %w", err)
	}
	if err := common.RegisterHandler[export.ApplyExportJobCommand](med, export.NewApplyExportJobHandler(exportSvc)); err != nil {
		return fmt.Errorf("failed to register ApplyExportJob handler: %w", err)
	}
	return nil
}

func redisOptions(cfg *config.RedisConfig) (*redis.Options, error) {
	if cfg.URL != "" {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}, nil
}
