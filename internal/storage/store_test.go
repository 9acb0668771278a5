package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/latctl/internal/lateral"
	"github.com/san-kum/latctl/internal/sim"
)

func testResult() *sim.Result {
	return &sim.Result{
		Samples: []sim.Sample{
			{Time: 0, Speed: 20, Engaged: true, DesiredCurvature: 0.002},
			{
				Time:             0.01,
				Offset:           -0.0125,
				Speed:            20,
				Engaged:          true,
				Override:         true,
				DesiredCurvature: 0.002,
				ActualCurvature:  0.0013333333333333333,
				Torque:           -0.4375,
				Diagnostics: lateral.Diagnostics{
					Active: true, Error: 0.5, P: 0.2, I: 0.0375, D: 0, F: 0.2,
					Output: -0.4375, Saturated: false, SaturatedSustained: true,
				},
			},
		},
		Metrics: map[string]float64{
			"tracking_error": 0.00067,
		},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(RunMetadata{
		Scenario:   "step",
		Preset:     "torque",
		Seed:       42,
		ControlHz:  100,
		Integrator: "rk4",
	}, testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, "step_") {
		t.Errorf("unexpected run id %q", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Preset != "torque" {
		t.Errorf("expected preset 'torque', got '%s'", meta.Preset)
	}
	if meta.Seed != 42 {
		t.Errorf("expected seed 42, got %d", meta.Seed)
	}
	if meta.Steps != 2 {
		t.Errorf("expected 2 steps, got %d", meta.Steps)
	}
	if meta.Metrics["tracking_error"] != 0.00067 {
		t.Errorf("expected tracking_error 0.00067, got %f", meta.Metrics["tracking_error"])
	}

	samples, err := st.LoadSamples(runID)
	if err != nil {
		t.Fatalf("load samples failed: %v", err)
	}
	want := testResult().Samples
	if len(samples) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(samples))
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Errorf("sample %d did not round-trip:\n got %+v\nwant %+v", i, samples[i], want[i])
		}
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	for _, name := range []string{"step", "slalom"} {
		if _, err := st.Save(RunMetadata{Scenario: name}, testResult()); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Scenario != "step" {
		t.Errorf("expected oldest run first, got %s", runs[0].Scenario)
	}
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "nope"))
	runs, err := st.List()
	if err != nil || len(runs) != 0 {
		t.Errorf("expected empty list, got %v, %v", runs, err)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(RunMetadata{Scenario: "step"}, testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	if _, err := os.Stat(filepath.Join(runDir, "metadata.json")); os.IsNotExist(err) {
		t.Error("metadata.json not created")
	}
	if _, err := os.Stat(filepath.Join(runDir, "samples.csv")); os.IsNotExist(err) {
		t.Error("samples.csv not created")
	}
}

func TestStoreMissingRun(t *testing.T) {
	st := New(t.TempDir())

	if _, err := st.Load("ghost"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Load: expected ErrRunNotFound, got %v", err)
	}
	if _, err := st.LoadSamples("ghost"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("LoadSamples: expected ErrRunNotFound, got %v", err)
	}
	if err := st.ExportCSV("ghost", &bytes.Buffer{}); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("ExportCSV: expected ErrRunNotFound, got %v", err)
	}
}

func TestExport(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	runID, err := st.Save(RunMetadata{Scenario: "step"}, testResult())
	if err != nil {
		t.Fatal(err)
	}

	var csvOut bytes.Buffer
	if err := st.ExportCSV(runID, &csvOut); err != nil {
		t.Fatalf("export csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(csvOut.String()), "\n")
	if len(lines) != 3 {
		t.Errorf("expected header and 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "time,offset,heading") {
		t.Errorf("unexpected header %q", lines[0])
	}

	var jsonOut bytes.Buffer
	if err := st.ExportJSON(runID, &jsonOut); err != nil {
		t.Fatalf("export json: %v", err)
	}
	var data ExportData
	if err := json.Unmarshal(jsonOut.Bytes(), &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Run.ID != runID || len(data.Samples) != 2 {
		t.Errorf("unexpected export %+v", data.Run)
	}
	if data.Samples[1].Torque != -0.4375 {
		t.Errorf("expected torque -0.4375, got %f", data.Samples[1].Torque)
	}
}
