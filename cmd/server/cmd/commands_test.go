package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/placxborcx/Onboarding-MainPage/internal/parking"
)

const samplePayload = `{"results":[
	{"id":"a","name":"Zone 1","lat":-37.81,"lon":144.96,"distance":"0.05 km"},
	{"id":"b","name":"Zone 2","lat":-37.81,"lon":144.96,"distance":"0.75 km"},
	{"id":"c","name":"Zone 3","lat":-37.81,"lon":144.96,"distance":"3 km"}
]}`

func TestNormalizeCommandStdin(t *testing.T) {
	cmd := newNormalizeCommand()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetIn(strings.NewReader(samplePayload))
	cmd.SetArgs([]string{"-"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	var got struct {
		Bands map[string][]map[string]any `json:"bands"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if len(got.Bands["within_100m"]) != 1 {
		t.Errorf("within_100m = %v, want one item", got.Bands["within_100m"])
	}
	if len(got.Bands["500_to_1000m"]) != 1 {
		t.Errorf("500_to_1000m = %v, want one item", got.Bands["500_to_1000m"])
	}
	if !strings.Contains(out.String(), "\n  ") {
		t.Error("expected indented output")
	}
}

func TestNormalizeCommandFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	if err := os.WriteFile(path, []byte(samplePayload), 0o600); err != nil {
		t.Fatal(err)
	}

	cmd := newNormalizeCommand()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetArgs([]string{path})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if !strings.Contains(out.String(), `"within_100m"`) {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestNormalizeCommandErrors(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		stdin string
	}{
		{name: "invalid JSON", args: []string{"-"}, stdin: "{not json"},
		{name: "missing file", args: []string{"/does/not/exist.json"}},
		{name: "too many args", args: []string{"a.json", "b.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newNormalizeCommand()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetIn(strings.NewReader(tt.stdin))
			cmd.SetArgs(tt.args)

			if err := cmd.Execute(); err == nil {
				t.Error("expected error but got none")
			}
		})
	}
}

func TestNearbyQuery(t *testing.T) {
	tests := []struct {
		name     string
		opts     nearbyOptions
		args     []string
		center   bool
		wantErr  bool
		wantMode parking.Mode
		wantText string
	}{
		{name: "text", args: []string{"Melbourne", "Central"}, wantMode: parking.ModeZone, wantText: "Melbourne Central"},
		{name: "coordinates", opts: nearbyOptions{lat: -37.81, lon: 144.96}, center: true, wantMode: parking.ModeZone},
		{name: "bands default to bay", opts: nearbyOptions{banded: true}, args: []string{"Docklands"}, wantMode: parking.ModeBay, wantText: "Docklands"},
		{name: "explicit mode", opts: nearbyOptions{mode: "bay"}, args: []string{"Carlton"}, wantMode: parking.ModeBay, wantText: "Carlton"},
		{name: "nothing", wantErr: true},
		{name: "blank text", args: []string{"  "}, wantErr: true},
		{name: "bad mode", opts: nearbyOptions{mode: "garage"}, args: []string{"x"}, wantErr: true},
		{name: "out of range", opts: nearbyOptions{lat: -137, lon: 144.96}, center: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := tt.opts.query(tt.args, tt.center)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("query() error = %v", err)
			}
			if q.Mode != tt.wantMode {
				t.Errorf("Mode = %q, want %q", q.Mode, tt.wantMode)
			}
			if q.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", q.Text, tt.wantText)
			}
			if (q.Center != nil) != tt.center {
				t.Errorf("Center = %v, want set=%v", q.Center, tt.center)
			}
		})
	}
}

func TestNearbyCommandRequiresLatAndLonTogether(t *testing.T) {
	cmd := newNearbyCommand(&rootOptions{})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--lat", "-37.81"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error when --lon is missing")
	}
}

func TestMigrateRequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	for _, sub := range []string{"up", "down", "version"} {
		t.Run(sub, func(t *testing.T) {
			root := newRootCommand()
			buf := new(bytes.Buffer)
			root.SetOut(buf)
			root.SetErr(buf)
			root.SetArgs([]string{"migrate", sub})

			err := root.Execute()
			if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
				t.Errorf("expected DATABASE_URL error, got %v", err)
			}
		})
	}
}
