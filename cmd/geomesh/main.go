// Package main is the entry point for the geomesh command.
//
// geomesh samples elevations for a latitude/longitude box (or reads a square
// heightmap), builds a terrain mesh, simplifies it and writes it as OBJ.
// Extra positional arguments are further quality levels applied in order.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"go.uber.org/zap"

	"github.com/Faultbox/geomesh/internal/app"
	"github.com/Faultbox/geomesh/internal/config"
	"github.com/Faultbox/geomesh/internal/logger"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== GeoMesh ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	qualities := make([]float64, 0, flag.NArg())
	for _, arg := range flag.Args() {
		q, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			logger.Error("invalid quality argument", zap.String("arg", arg))
			os.Exit(2)
		}
		qualities = append(qualities, q)
	}

	a, err := app.New(cfg)
	if err != nil {
		logger.Error("failed to create app", zap.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := a.Run(ctx); err != nil {
		logger.Error("run failed", zap.Error(err))
		os.Exit(1)
	}

	for _, q := range qualities {
		if err := a.Controller().OnQualityChanged(q); err != nil {
			logger.Error("quality change failed", zap.Float64("quality", q), zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("done", zap.String("obj", cfg.Output.OBJPath))
}
