package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vqa-go/mode"
	"github.com/khaledhikmat/vqa-go/service/config"
	"github.com/khaledhikmat/vqa-go/service/data"
	"github.com/khaledhikmat/vqa-go/service/lgr"
	"github.com/khaledhikmat/vqa-go/service/storage"
)

var modeProcessors = map[string]mode.Processor{
	"evaluate": mode.Evaluate,
	"regress":  mode.Regress,
}

func main() {
	rootCtx := context.Background()
	canxCtx, canxFn := context.WithCancel(rootCtx)
	defer canxFn()

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		lgr.Logger.Info(
			"received kill signal",
			slog.Any("signal", sig),
		)
		canxFn()
	}()

	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		lgr.Logger.Info("loading env vars from .env file")
		err := godotenv.Load()
		if err != nil {
			lgr.Logger.Warn("no .env file loaded", slog.Any("error", xerrors.New(err.Error())))
		}
	}

	modeType := "evaluate"
	args := os.Args[1:]
	if len(args) > 0 {
		modeType = args[0]
	}

	modeProc, ok := modeProcessors[modeType]
	if !ok {
		lgr.Logger.Error("invalid mode", slog.String("mode", modeType))
		panic("invalid mode")
	}

	// Create the services needed for the mode processor
	// Config service
	cfgSvc := config.NewEnv()
	// Data service
	dataSvc := data.NewFilesDB(cfgSvc)
	// Storage service
	storageSvc := storage.NewLocal(cfgSvc)

	svcs := mode.Services{
		CfgSvc:     cfgSvc,
		DataSvc:    dataSvc,
		StorageSvc: storageSvc,
	}

	// Run the mode processor result
	modeProcResult := make(chan error)

	go func() {
		modeProcResult <- modeProc(canxCtx, svcs)
	}()

	// Wait for cancellation or the mode processor to finish
	select {
	case <-canxCtx.Done():
		lgr.Logger.Info("run context cancelled")
		// Give the processor a chance to surface its error
		err := <-modeProcResult
		if err != nil {
			lgr.Logger.Error("mode processor exited", slog.Any("error", err))
		}

	case err := <-modeProcResult:
		if err != nil {
			lgr.Logger.Error("mode processor exited", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
