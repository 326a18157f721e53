package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/gxvtx/gxvtx/internal/batch"
	"github.com/gxvtx/gxvtx/internal/fifo"
	"github.com/gxvtx/gxvtx/internal/gx"
	"github.com/gxvtx/gxvtx/internal/logger"
	"github.com/gxvtx/gxvtx/internal/snapshot"
	"github.com/gxvtx/gxvtx/internal/stats"
	"github.com/gxvtx/gxvtx/internal/vertexmanager"
)

type replayOptions struct {
	FIFOPath    string
	StatePath   string
	CullAll     bool
	SkipDrawing bool
}

type replayResult struct {
	Bytes    int            `json:"bytes"`
	Consumed int            `json:"consumed"`
	Counts   fifo.Counts    `json:"counts"`
	Stats    stats.Snapshot `json:"stats"`
	Draws    int            `json:"backend_draws"`
	Loaders  []string       `json:"loaders"`

	manager *vertexmanager.Manager
}

func replayCmd() *cli.Command {
	var (
		opts   replayOptions
		asJSON bool
	)

	return &cli.Command{
		Name:  "replay",
		Usage: "Decode a raw command processor capture and report loader statistics",
		Flags: append(ramFlags(),
			&cli.StringFlag{
				Name:        "fifo",
				Usage:       "path to the raw FIFO capture",
				Required:    true,
				Destination: &opts.FIFOPath,
			},
			&cli.StringFlag{
				Name:        "state",
				Usage:       "register snapshot to restore before decoding",
				Destination: &opts.StatePath,
			},
			&cli.BoolFlag{
				Name:        "cull",
				Usage:       "start with cull mode set to all",
				Destination: &opts.CullAll,
			},
			&cli.BoolFlag{
				Name:        "skip-drawing",
				Usage:       "consume draw data without decoding vertices",
				Destination: &opts.SkipDrawing,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the result as JSON",
				Destination: &asJSON,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyRAMConfig(cmd, LoadConfig())

			res, err := runReplay(ctx, log, opts)
			if res != nil {
				if perr := printReplay(res, asJSON); perr != nil {
					return perr
				}
			}
			return err
		},
	}
}

// runReplay decodes the capture. On a decode error it still returns the
// partial result alongside the error.
func runReplay(ctx context.Context, log logger.Logger, opts replayOptions) (*replayResult, error) {
	data, err := os.ReadFile(opts.FIFOPath)
	if err != nil {
		return nil, err
	}
	mem, err := openMemory(log, false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = mem.Close() }()

	backend := &batch.NullBackend{}
	m := vertexmanager.New(vertexmanager.Options{
		Logger:  log,
		Backend: backend,
		Memory:  mem.translator,
	})

	if opts.StatePath != "" {
		snap, err := snapshot.Load(opts.StatePath)
		if err != nil {
			return nil, err
		}
		snap.Restore(m)
		log.Info("register state restored", "snapshot", snap.ID, "created_at", snap.CreatedAt)
		if err := m.Cache().Prefetch(ctx, m.GroupKeys(), int(prefetchWorkers)); err != nil {
			return nil, err
		}
	}
	if opts.CullAll {
		m.SetCullMode(gx.CullAll)
	}

	dec := fifo.NewDecoder(m, fifo.Options{
		Logger:      log,
		Memory:      mem.translator,
		SkipDrawing: opts.SkipDrawing,
	})
	consumed, runErr := dec.Run(data)
	m.Flush()

	var sb strings.Builder
	m.Cache().AppendListToString(&sb)
	res := &replayResult{
		Bytes:    len(data),
		Consumed: consumed,
		Counts:   dec.Counts(),
		Stats:    m.Stats().Snapshot(),
		Draws:    backend.Draws,
		Loaders:  strings.FieldsFunc(sb.String(), func(r rune) bool { return r == '\n' }),
		manager:  m,
	}
	if runErr != nil {
		log.Error("fifo decode failed", "path", opts.FIFOPath, "offset", consumed, "error", runErr)
		return res, fmt.Errorf("%s: %w", opts.FIFOPath, runErr)
	}
	log.Debug("fifo decoded", "path", opts.FIFOPath, "bytes", len(data), "commands", res.Counts.Commands)
	return res, nil
}

func printReplay(res *replayResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Printf("consumed:        %d/%d bytes\n", res.Consumed, res.Bytes)
	fmt.Printf("commands:        %d (cp %d, bp %d, draws %d, display lists %d)\n",
		res.Counts.Commands, res.Counts.CPWrites, res.Counts.BPWrites, res.Counts.Draws, res.Counts.DisplayLists)
	fmt.Printf("vertex loaders:  %d\n", res.Stats.NumVertexLoaders)
	fmt.Printf("primitives:      %d in %d joins\n", res.Stats.NumPrims, res.Stats.NumPrimitiveJoins)
	fmt.Printf("draw calls:      %d\n", res.Stats.NumDrawCalls)
	fmt.Printf("skipped/culled:  %d/%d\n", res.Stats.NumSkipped, res.Stats.NumCulled)
	for _, line := range res.Loaders {
		fmt.Println("  " + line)
	}
	return nil
}
