// Package storage persists runs as a metadata JSON file plus a telemetry CSV.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/quickstep/internal/world"
)

var ErrNoRun = errors.New("storage: run not found")

const (
	metadataFile  = "metadata.json"
	telemetryFile = "telemetry.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Scenario    string             `json:"scenario"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Strategy    string             `json:"strategy"`
	Iterations  int                `json:"iterations"`
	Chunks      int                `json:"chunks"`
	Steps       int                `json:"steps"`
	Unconverged int                `json:"unconverged"`
	EnergyDrift float64            `json:"energy_drift"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Telemetry is the per-step record of a run. Row 0 is the initial state and
// carries no solver statistics.
type Telemetry struct {
	Labels     []string
	Times      []float64
	RMS        []float64
	Iterations []int
	States     [][]float64
}

// Save writes meta and the result's telemetry under a fresh run ID, which it
// returns. labels name the state columns and may be nil when no states were
// recorded.
func (s *Store) Save(meta RunMetadata, labels []string, result *world.Result) (string, error) {
	meta.ID = fmt.Sprintf("%s_%d", meta.Scenario, time.Now().UnixNano())
	meta.Timestamp = time.Now()
	meta.Steps = result.StepsTaken
	meta.Unconverged = result.Unconverged
	meta.EnergyDrift = result.EnergyDrift
	meta.Metrics = result.Metrics

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, telemetryFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := writeTelemetry(w, labels, result); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeTelemetry(w *csv.Writer, labels []string, result *world.Result) error {
	withStates := len(result.States) == len(result.Times) && len(result.States) > 0
	header := []string{"time", "rms", "iterations"}
	if withStates {
		header = append(header, labels...)
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, t := range result.Times {
		row := []string{formatFloat(t), "", ""}
		if i > 0 && i-1 < len(result.RMS) {
			row[1] = formatFloat(result.RMS[i-1])
			row[2] = strconv.Itoa(result.Iterations[i-1])
		}
		if withStates {
			for _, v := range result.States[i] {
				row = append(row, formatFloat(v))
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoRun, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadTelemetry(runID string) (*Telemetry, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, telemetryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoRun, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	tel := &Telemetry{}
	if len(records) == 0 {
		return tel, nil
	}
	if len(records[0]) > 3 {
		tel.Labels = records[0][3:]
	}

	for _, record := range records[1:] {
		if len(record) < 3 {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		tel.Times = append(tel.Times, t)

		// the initial row has no solver statistics
		if record[1] != "" {
			rms, _ := strconv.ParseFloat(record[1], 64)
			iters, _ := strconv.Atoi(record[2])
			tel.RMS = append(tel.RMS, rms)
			tel.Iterations = append(tel.Iterations, iters)
		}

		if len(record) > 3 {
			state := make([]float64, 0, len(record)-3)
			for _, field := range record[3:] {
				v, err := strconv.ParseFloat(field, 64)
				if err != nil {
					continue
				}
				state = append(state, v)
			}
			tel.States = append(tel.States, state)
		}
	}
	return tel, nil
}
