package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/rockets/config"
)

// csvLog appends gocsv records to one file, writing the header with the
// first batch.
type csvLog struct {
	f      *os.File
	header bool
}

func openCSVLog(path string) (*csvLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	return &csvLog{f: f}, nil
}

func (l *csvLog) append(records any) error {
	if l.header {
		return gocsv.MarshalWithoutHeaders(records, l.f)
	}
	if err := gocsv.Marshal(records, l.f); err != nil {
		return err
	}
	l.header = true
	return nil
}

// OutputManager writes a run's artifacts into one directory:
// config.yaml, generations.csv (one row per generation) and perf.csv.
type OutputManager struct {
	dir         string
	generations *csvLog
	perf        *csvLog
}

// NewOutputManager creates dir and the CSV files inside it.
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, errors.New("output directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	generations, err := openCSVLog(filepath.Join(dir, "generations.csv"))
	if err != nil {
		return nil, err
	}
	perf, err := openCSVLog(filepath.Join(dir, "perf.csv"))
	if err != nil {
		generations.f.Close()
		return nil, err
	}
	return &OutputManager{dir: dir, generations: generations, perf: perf}, nil
}

// WriteConfig saves the resolved configuration, derived values included.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteGeneration appends one row to generations.csv.
func (om *OutputManager) WriteGeneration(stats GenerationStats) error {
	if err := om.generations.append([]GenerationStats{stats}); err != nil {
		return fmt.Errorf("writing generation %d: %w", stats.Generation, err)
	}
	return nil
}

// WritePerf appends one row to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, generation int) error {
	if err := om.perf.append([]PerfRow{stats.Row(generation)}); err != nil {
		return fmt.Errorf("writing perf for generation %d: %w", generation, err)
	}
	return nil
}

// Dir returns the output directory.
func (om *OutputManager) Dir() string {
	return om.dir
}

// Close closes both CSV files.
func (om *OutputManager) Close() error {
	return errors.Join(om.generations.f.Close(), om.perf.f.Close())
}
