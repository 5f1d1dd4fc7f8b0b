package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRun(t *testing.T) {
	probes := []Probe{
		{
			Name: "Success Probe",
			Check: func(ctx context.Context) error {
				return nil
			},
			Critical: true,
		},
		{
			Name: "Failure Probe (Non-Critical)",
			Check: func(ctx context.Context) error {
				return errors.New("minor issue")
			},
			Critical: false,
		},
	}

	results := Run(context.Background(), probes)

	if len(results) != 2 {
		t.Errorf("Expected 2 results, got %d", len(results))
	}

	if results[0].Error != nil {
		t.Errorf("Expected success probe to pass, got error: %v", results[0].Error)
	}

	if results[1].Error == nil {
		t.Error("Expected failure probe to fail, got nil")
	}
}

func TestAnalyzeResults(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		wantErr bool
	}{
		{
			name: "All Pass",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: true}, Error: nil},
			},
			wantErr: false,
		},
		{
			name: "Critical Failure",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: true}, Error: errors.New("fail")},
			},
			wantErr: true,
		},
		{
			name: "Non-Critical Failure",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: false}, Error: errors.New("fail")},
			},
			wantErr: false,
		},
		{
			name: "Mixed Failure",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: false}, Error: errors.New("fail")},
				{Probe: Probe{Name: "P2", Critical: true}, Error: errors.New("fail")},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AnalyzeResults(tt.results)
			if (err != nil) != tt.wantErr {
				t.Errorf("AnalyzeResults() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRun_Timeout(t *testing.T) {
	results := Run(context.Background(), []Probe{{
		Name:    "Slow",
		Timeout: 10 * time.Millisecond,
		Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}})
	if !errors.Is(results[0].Error, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", results[0].Error)
	}
}

type fakeHealth struct{ err error }

func (f fakeHealth) HealthCheck(context.Context) error { return f.err }
func (f fakeHealth) Available(context.Context) error   { return f.err }

func TestChecks(t *testing.T) {
	dir := t.TempDir()
	font := filepath.Join(dir, "font.ttf")
	if err := os.WriteFile(font, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		probe    Probe
		wantErr  bool
		critical bool
	}{
		{"LLM ok", LLM("gemini", fakeHealth{}), false, true},
		{"LLM down", LLM("gemini", fakeHealth{err: errors.New("401")}), true, true},
		{"LLM missing", LLM("none", nil), true, true},
		{"Encoder optional", Encoder(fakeHealth{err: errors.New("not found")}, false), true, false},
		{"Encoder required", Encoder(fakeHealth{}, true), false, true},
		{"Voice offered", Voice(func(context.Context) error { return nil }), false, true},
		{"Voice missing", Voice(func(context.Context) error { return errors.New("voice not offered") }), true, true},
		{"Voice no provider", Voice(nil), true, true},
		{"Writable", WritableDir("Output", filepath.Join(dir, "out", "nested")), false, true},
		{"Font present", FileExists("Font", font, false), false, false},
		{"Font missing", FileExists("Font", filepath.Join(dir, "nope.ttf"), false), true, false},
		{"Font is dir", FileExists("Font", dir, false), true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Run(context.Background(), []Probe{tt.probe})
			if (res[0].Error != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", res[0].Error, tt.wantErr)
			}
			if tt.probe.Critical != tt.critical {
				t.Errorf("critical = %v, want %v", tt.probe.Critical, tt.critical)
			}
		})
	}

	entries, _ := os.ReadDir(filepath.Join(dir, "out", "nested"))
	if len(entries) != 0 {
		t.Errorf("writable probe left %d files behind", len(entries))
	}
}
