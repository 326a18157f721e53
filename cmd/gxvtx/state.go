package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/gxvtx/gxvtx/internal/cpmem"
	"github.com/gxvtx/gxvtx/internal/logger"
	"github.com/gxvtx/gxvtx/internal/snapshot"
)

func stateCmd() *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "Capture and inspect CP register snapshots",
		Commands: []*cli.Command{
			stateDumpCmd(),
			stateShowCmd(),
		},
	}
}

func stateDumpCmd() *cli.Command {
	var (
		opts    replayOptions
		outPath string
	)

	return &cli.Command{
		Name:  "dump",
		Usage: "Replay a capture and write the resulting register state",
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
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "snapshot output path",
				Required:    true,
				Destination: &outPath,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyRAMConfig(cmd, LoadConfig())

			opts.SkipDrawing = true
			res, err := runReplay(ctx, log, opts)
			if err != nil {
				return err
			}
			snap := snapshot.Capture(res.manager.State())
			if err := snap.Save(outPath); err != nil {
				return err
			}
			log.Info("register snapshot written", "path", outPath, "snapshot", snap.ID)
			return nil
		},
	}
}

func stateShowCmd() *cli.Command {
	var all bool

	return &cli.Command{
		Name:      "show",
		Usage:     "Print the registers stored in a snapshot",
		ArgsUsage: "SNAPSHOT",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "all",
				Usage:       "include zero registers",
				Destination: &all,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("snapshot path is required")
			}
			snap, err := snapshot.Load(path)
			if err != nil {
				return err
			}

			fmt.Printf("id:         %s\n", snap.ID)
			fmt.Printf("created at: %s\n", snap.CreatedAt.Format("2006-01-02 15:04:05Z07:00"))
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, reg := range cpmem.SerializedRegisters() {
				v := snap.Registers[reg]
				if v == 0 && !all {
					continue
				}
				_, _ = fmt.Fprintf(tw, "0x%02x\t%s\t%08x\n", reg, registerName(reg), v)
			}
			return tw.Flush()
		},
	}
}

func registerName(reg uint32) string {
	idx := reg & 0x0F
	switch reg & 0xF0 {
	case cpmem.RegMatrixIndexA:
		return "MATINDEX_A"
	case cpmem.RegMatrixIndexB:
		return "MATINDEX_B"
	case cpmem.RegVtxDescLow:
		return "VCD_LO"
	case cpmem.RegVtxDescHigh:
		return "VCD_HI"
	case cpmem.RegVAT0:
		return fmt.Sprintf("VAT_A[%d]", idx)
	case cpmem.RegVAT1:
		return fmt.Sprintf("VAT_B[%d]", idx)
	case cpmem.RegVAT2:
		return fmt.Sprintf("VAT_C[%d]", idx)
	case cpmem.RegArrayBase:
		return fmt.Sprintf("ARRAY_BASE[%d]", idx)
	case cpmem.RegArrayStride:
		return fmt.Sprintf("ARRAY_STRIDE[%d]", idx)
	}
	return "?"
}
