package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"enrollment-observer/src/config"
	"enrollment-observer/src/detect"
	"enrollment-observer/src/grpc_control"
	"enrollment-observer/src/interfaces"
	"enrollment-observer/src/logger"
	"enrollment-observer/src/scanner"
	"enrollment-observer/src/server"
	"enrollment-observer/src/storage"
	"enrollment-observer/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	scanOnce := flag.Bool("scan-once", false, "run a single scan and exit")
	flag.Parse()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name)

	// 2. Setup Storage
	var db interfaces.IDatabase

	switch cfg.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresDB(cfg.MConfig, appLogger)
	default:
		// Default to SQLite
		db, err = storage.NewSQLiteDB(cfg.MConfig, appLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}
	if err := db.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
	}
	defer db.Close()

	// 3. Detection pipeline
	engine := detect.NewEngine(&cfg.Detection, appLogger)
	cache := utils.NewSeriesCache(
		utils.DefaultCacheMemoryMB,
		utils.CalculateMaxDataPoints(cfg.Detection.LookbackDays),
		appLogger,
	)

	scn := scanner.NewScanner(db, db, engine, cfg.MConfig, appLogger)
	scn.Cache = cache

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. One-shot mode for cron-style invocation
	if *scanOnce {
		scan, err := scn.ScanAll(ctx)
		if err != nil {
			appLogger.Error("Scan completed with persistence failure: %v", err)
			os.Exit(1)
		}
		appLogger.Info("Scan complete: %d alerts across %d partitions",
			scan.ScanMetrics.AlertsFound, scan.ScanMetrics.PartitionsScanned)
		return
	}

	// 5. Servers
	scanTrigger := make(chan struct{}, 1)
	srv := server.NewObserverServer(cfg.MConfig, appLogger, cache, scanTrigger)

	ctrl := grpc_control.NewControlServer(cfg.MConfig, appLogger)
	if err := ctrl.Start(); err != nil {
		appLogger.Critical("Failed to start control server: %v", err)
	}
	ctrl.SetServing(grpc_control.ComponentStorage, true)
	ctrl.SetServing(grpc_control.ComponentScanner, true)

	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
			ctrl.SetServing(grpc_control.ComponentServer, false)
		}
	}()
	ctrl.SetServing(grpc_control.ComponentServer, true)

	// 6. Scheduler
	operatingCal := utils.NewOperatingCalendar(cfg.Scan.CalendarMIC, appLogger)
	scheduler := utils.NewScanScheduler(operatingCal, cfg.Scan.ScheduledHourUTC, appLogger)
	go scheduler.Run(ctx, scanTrigger)

	// Kick off an initial scan so the dashboard has state before the first
	// scheduled run.
	scanTrigger <- struct{}{}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	appLogger.Info("Starting scan loop...")

	for {
		select {
		case <-scanTrigger:
			scan, err := scn.ScanAll(ctx)
			if err != nil {
				// Alerts may be lost; keep serving but flag the scanner.
				appLogger.Error("Scan persistence failure: %v", err)
				ctrl.SetServing(grpc_control.ComponentScanner, false)
			} else {
				ctrl.SetServing(grpc_control.ComponentScanner, true)
			}
			if scan != nil {
				srv.UpdateLatestScan(scan)
				srv.Broadcast(scan)
			}

			if err := db.CleanupOldAlerts(); err != nil {
				appLogger.Warning("Alert cleanup failed: %v", err)
			}

		case <-quit:
			appLogger.Info("Shutting down...")
			cancel()
			ctrl.Stop()
			return
		}
	}
}
