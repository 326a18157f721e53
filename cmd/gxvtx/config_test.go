package main

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/gxvtx/gxvtx/internal/logger"
	"github.com/gxvtx/gxvtx/internal/snapshot"
)

func resetGlobals(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		ramImage, ramSize, watchRAM, prefetchWorkers = "", 0, false, 0
		logLevel, logFormat, debug = "", "", false
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing file is zero config", func(t *testing.T) {
		cfg := loadConfigFrom(filepath.Join(t.TempDir(), "nope.yaml"))
		if cfg != (Config{}) {
			t.Fatalf("expected zero config, got %+v", cfg)
		}
	})

	t.Run("fields decode", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		body := "ram_image: /tmp/mem1.raw\nram_size: 1024\nwatch_ram: true\nlog_level: debug\nserver_address: 0.0.0.0:9000\n"
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		cfg := loadConfigFrom(path)
		if cfg.RAMImage != "/tmp/mem1.raw" || cfg.LogLevel != "debug" || cfg.ServerAddress != "0.0.0.0:9000" {
			t.Fatalf("unexpected config %+v", cfg)
		}
		if cfg.RAMSize == nil || *cfg.RAMSize != 1024 {
			t.Fatalf("ram_size not decoded: %v", cfg.RAMSize)
		}
		if cfg.WatchRAM == nil || !*cfg.WatchRAM {
			t.Fatalf("watch_ram not decoded")
		}
		if cfg.PrefetchWorkers != nil {
			t.Fatalf("unset prefetch_workers should stay nil")
		}
	})

	t.Run("XDG config home", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", dir)
		if got, want := configPath(), filepath.Join(dir, "gxvtx", "config.yaml"); got != want {
			t.Fatalf("config path: got %q want %q", got, want)
		}
	})
}

func TestApplyServeConfigKeepsExplicitFlags(t *testing.T) {
	resetGlobals(t)

	size := int64(4096)
	watch := true
	cfg := Config{RAMImage: "from-config.raw", RAMSize: &size, WatchRAM: &watch, ServerAddress: "0.0.0.0:1"}

	var addr string
	cmd := &cli.Command{
		Name: "serve",
		Flags: append(ramFlags(), watchFlag(), &cli.StringFlag{
			Name:        "addr",
			Value:       "127.0.0.1:8090",
			Destination: &addr,
		}),
		Action: func(ctx context.Context, c *cli.Command) error {
			applyServeConfig(c, cfg, &addr)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), []string{"serve", "--addr", "127.0.0.1:9", "--ram-size", "64"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if addr != "127.0.0.1:9" {
		t.Fatalf("explicit --addr overridden: %q", addr)
	}
	if ramSize != 64 {
		t.Fatalf("explicit --ram-size overridden: %d", ramSize)
	}
	if ramImage != "from-config.raw" || !watchRAM {
		t.Fatalf("config defaults not applied: ram=%q watch=%v", ramImage, watchRAM)
	}
}

func TestRunReplayAndDump(t *testing.T) {
	resetGlobals(t)
	ramSize = 1 << 16

	// Direct u8 XYZ positions on group 1, then one triangle.
	var s []byte
	s = append(s, 0x08, 0x50)
	s = binary.BigEndian.AppendUint32(s, 1<<9)
	s = append(s, 0x08, 0x71)
	s = binary.BigEndian.AppendUint32(s, 1)
	s = append(s, 0x90|1)
	s = binary.BigEndian.AppendUint16(s, 3)
	s = append(s, make([]byte, 9)...)

	dir := t.TempDir()
	fifoPath := filepath.Join(dir, "capture.fifo")
	if err := os.WriteFile(fifoPath, s, 0o644); err != nil {
		t.Fatalf("write fifo: %v", err)
	}

	res, err := runReplay(context.Background(), logger.Nop(), replayOptions{FIFOPath: fifoPath})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.Consumed != len(s) || res.Counts.Draws != 1 || res.Stats.NumPrims != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Draws != 1 || len(res.Loaders) != 1 {
		t.Fatalf("expected one draw and one loader, got %d draws %v", res.Draws, res.Loaders)
	}

	statePath := filepath.Join(dir, "state.json")
	if err := snapshot.Capture(res.manager.State()).Save(statePath); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Replaying only the draw on top of the saved state decodes the same way.
	drawOnly := filepath.Join(dir, "draw.fifo")
	if err := os.WriteFile(drawOnly, s[12:], 0o644); err != nil {
		t.Fatalf("write fifo: %v", err)
	}
	res, err = runReplay(context.Background(), logger.Nop(), replayOptions{FIFOPath: drawOnly, StatePath: statePath})
	if err != nil {
		t.Fatalf("replay with state: %v", err)
	}
	if res.Stats.NumPrims != 3 {
		t.Fatalf("expected 3 prims after restore, got %d", res.Stats.NumPrims)
	}

	truncated := filepath.Join(dir, "short.fifo")
	if err := os.WriteFile(truncated, s[:len(s)-1], 0o644); err != nil {
		t.Fatalf("write fifo: %v", err)
	}
	res, err = runReplay(context.Background(), logger.Nop(), replayOptions{FIFOPath: truncated})
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if res == nil || res.Consumed != 12 {
		t.Fatalf("expected partial result at offset 12, got %+v", res)
	}
}

func TestRegisterName(t *testing.T) {
	cases := map[uint32]string{
		0x30: "MATINDEX_A",
		0x50: "VCD_LO",
		0x73: "VAT_A[3]",
		0x97: "VAT_C[7]",
		0xAF: "ARRAY_BASE[15]",
		0xB2: "ARRAY_STRIDE[2]",
	}
	for reg, want := range cases {
		if got := registerName(reg); got != want {
			t.Fatalf("registerName(%#x): got %q want %q", reg, got, want)
		}
	}
}
