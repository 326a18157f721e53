package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/gxvtx/gxvtx/internal/logger"
)

var (
	ramImage        string
	ramSize         int64
	watchRAM        bool
	prefetchWorkers int64
	logLevel        string
	logFormat       string
	debug           bool
)

// Default emulated main RAM size.
const defaultRAMSize = 24 << 20

func ramFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "ram",
			Usage:       "path to a RAM image backing vertex arrays and display lists",
			Destination: &ramImage,
		},
		&cli.Int64Flag{
			Name:        "ram-size",
			Usage:       "size of the zeroed RAM used when no image is given",
			Value:       defaultRAMSize,
			Destination: &ramSize,
		},
		&cli.Int64Flag{
			Name:        "prefetch-workers",
			Usage:       "goroutines used to build loaders for a restored state (0 = unlimited)",
			Value:       4,
			Destination: &prefetchWorkers,
		},
	}
}

func watchFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:        "watch-ram",
		Usage:       "reload the RAM image when the file changes",
		Destination: &watchRAM,
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

// setupLogging applies the config file to the global flags and stores the
// resulting logger in the context.
func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	applyLoggingConfig(cmd, LoadConfig())
	level := logLevel
	if debug {
		level = "debug"
	}
	log := logger.ForFormat(logFormat, os.Stderr, logger.ParseLevel(level))
	return logger.WithContext(ctx, log), nil
}
