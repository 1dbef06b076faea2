package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/rockets/config"
)

func TestRun_WritesGenerationCSV(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	cfg.Population.Size = 4
	cfg.ComputeDerived()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(t.TempDir(), "run")
	err = run(cfg, runOptions{
		runID:       "test-run",
		seed:        7,
		generations: 1,
		outputDir:   dir,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "generations.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("generations.csv has %d lines, want header + 1:\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "run_id,generation") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "test-run,0,") {
		t.Errorf("unexpected row %q", lines[1])
	}

	if _, err := config.Load(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config snapshot does not load: %v", err)
	}
}

func TestRun_NoOutputDir(t *testing.T) {
	cfg := config.Default()
	cfg.Population.Size = 2
	cfg.Generation.Lifespan = 5
	cfg.ComputeDerived()

	err := run(cfg, runOptions{
		runID:       "test-run",
		seed:        1,
		generations: 1,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
}
