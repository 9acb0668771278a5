package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/latctl/internal/sim"
)

var ErrRunNotFound = errors.New("storage: run not found")

const (
	metadataFile = "metadata.json"
	samplesFile  = "samples.csv"
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
	ID         string             `json:"id"`
	Scenario   string             `json:"scenario"`
	Preset     string             `json:"preset"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	ControlHz  float64            `json:"control_hz"`
	PlannerHz  float64            `json:"planner_hz"`
	Duration   float64            `json:"duration"`
	Integrator string             `json:"integrator"`
	Steps      int                `json:"steps"`
	Params     map[string]float64 `json:"params,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Save writes meta and result under a new run directory and returns its ID.
// ID, Timestamp, Steps and Metrics are filled in from the result.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", meta.Scenario, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = now
	meta.Steps = len(result.Samples)
	meta.Metrics = result.Metrics

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

	csvFile, err := os.Create(filepath.Join(runDir, samplesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := writeSamples(csvFile, result.Samples); err != nil {
		return "", err
	}
	return runID, nil
}

// List returns stored runs, oldest first.
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

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadSamples(runID string) ([]sim.Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, samplesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	return readSamples(file)
}

// ExportCSV copies the stored sample table of a run to w.
func (s *Store) ExportCSV(runID string, w io.Writer) error {
	file, err := os.Open(filepath.Join(s.baseDir, runID, samplesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return err
	}
	defer file.Close()

	_, err = io.Copy(w, file)
	return err
}

type ExportData struct {
	Run     RunMetadata  `json:"run"`
	Samples []sim.Sample `json:"samples"`
}

// ExportJSON writes a run's metadata and samples to w as one document.
func (s *Store) ExportJSON(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	samples, err := s.LoadSamples(runID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{Run: *meta, Samples: samples})
}

var header = []string{
	"time", "offset", "heading", "steer_angle",
	"speed", "roll", "engaged", "override",
	"desired_curvature", "desired_curvature_rate", "actual_curvature",
	"torque", "active", "error", "p", "i", "d", "f",
	"saturated", "saturated_sustained",
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func writeSamples(out io.Writer, samples []sim.Sample) error {
	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return err
	}

	for _, smp := range samples {
		d := smp.Diagnostics
		row := []string{
			formatFloat(smp.Time),
			formatFloat(smp.Offset),
			formatFloat(smp.Heading),
			formatFloat(smp.SteerAngle),
			formatFloat(smp.Speed),
			formatFloat(smp.Roll),
			formatBool(smp.Engaged),
			formatBool(smp.Override),
			formatFloat(smp.DesiredCurvature),
			formatFloat(smp.DesiredCurvatureRate),
			formatFloat(smp.ActualCurvature),
			formatFloat(smp.Torque),
			formatBool(d.Active),
			formatFloat(d.Error),
			formatFloat(d.P),
			formatFloat(d.I),
			formatFloat(d.D),
			formatFloat(d.F),
			formatBool(d.Saturated),
			formatBool(d.SaturatedSustained),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func readSamples(in io.Reader) ([]sim.Sample, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = len(header)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []sim.Sample{}, nil
	}

	samples := make([]sim.Sample, 0, len(records)-1)
	for n, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", n+1, header[j], err)
			}
			vals[j] = v
		}

		smp := sim.Sample{
			Time:                 vals[0],
			Offset:               vals[1],
			Heading:              vals[2],
			SteerAngle:           vals[3],
			Speed:                vals[4],
			Roll:                 vals[5],
			Engaged:              vals[6] != 0,
			Override:             vals[7] != 0,
			DesiredCurvature:     vals[8],
			DesiredCurvatureRate: vals[9],
			ActualCurvature:      vals[10],
			Torque:               vals[11],
		}
		smp.Diagnostics.Active = vals[12] != 0
		smp.Diagnostics.Error = vals[13]
		smp.Diagnostics.P = vals[14]
		smp.Diagnostics.I = vals[15]
		smp.Diagnostics.D = vals[16]
		smp.Diagnostics.F = vals[17]
		smp.Diagnostics.Output = smp.Torque
		smp.Diagnostics.Saturated = vals[18] != 0
		smp.Diagnostics.SaturatedSustained = vals[19] != 0
		samples = append(samples, smp)
	}
	return samples, nil
}
