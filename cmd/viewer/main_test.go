package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/ptview/internal/fsutil"
	"github.com/banshee-data/ptview/internal/monitoring"
	"github.com/banshee-data/ptview/internal/trajectory"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    cliArgs
		wantErr bool
	}{
		{
			name: "positionals only",
			args: []string{"a.pt", "b.pt"},
			want: cliArgs{primary: "a.pt", secondary: "b.pt", loops: 1, track: -1},
		},
		{
			name: "trailing save",
			args: []string{"a.pt", "b.pt", "--save"},
			want: cliArgs{primary: "a.pt", secondary: "b.pt", save: true, loops: 1, track: -1},
		},
		{
			name: "flags before files",
			args: []string{"-headless", "-fps", "12", "-track", "3", "-save", "a.pt", "b.pt"},
			want: cliArgs{primary: "a.pt", secondary: "b.pt", save: true, headless: true, fps: 12, loops: 1, track: 3},
		},
		{name: "missing second file", args: []string{"a.pt"}, wantErr: true},
		{name: "no files", args: nil, wantErr: true},
		{name: "too many files", args: []string{"a.pt", "b.pt", "c.pt"}, wantErr: true},
		{name: "negative fps", args: []string{"-fps", "-1", "a.pt", "b.pt"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			got, err := parseArgs(tt.args, &stderr)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("parseArgs(%v) = %+v, want %+v", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseArgs_UsageOnMissingFiles(t *testing.T) {
	var stderr bytes.Buffer
	_, err := parseArgs([]string{"only.pt"}, &stderr)
	if err != errUsage {
		t.Fatalf("expected errUsage, got %v", err)
	}
	if !strings.Contains(stderr.String(), usageLine) {
		t.Errorf("usage not printed: %q", stderr.String())
	}
}

func TestRun_HeadlessWithExports(t *testing.T) {
	monitoring.SetLogger(nil)
	dir := t.TempDir()

	gen := trajectory.NewSyntheticGenerator(7)
	gen.TrackCount, gen.FrameCount = 3, 4
	a := filepath.Join(dir, "a.pt")
	b := filepath.Join(dir, "b.pt")
	if err := trajectory.Save(fsutil.OSFileSystem{}, a, gen.Generate()); err != nil {
		t.Fatal(err)
	}
	if err := trajectory.Save(fsutil.OSFileSystem{}, b, gen.Generate()); err != nil {
		t.Fatal(err)
	}

	cfgPath := filepath.Join(dir, "viewer.yaml")
	cfg := "window_width: 32\nwindow_height: 32\nframe_rate: 1000\nffmpeg_path: no-such-ffmpeg-binary\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	args, err := parseArgs([]string{
		"-headless", "-report", "-config", cfgPath,
		"-db", filepath.Join(dir, "catalog.db"),
		a, b, "--save",
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if err := run(context.Background(), args); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, name := range []string{"a.gif", "a_report.html", "catalog.db"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
}

func TestRun_LoadFailure(t *testing.T) {
	monitoring.SetLogger(nil)
	dir := t.TempDir()
	args := cliArgs{
		primary:   filepath.Join(dir, "missing.pt"),
		secondary: filepath.Join(dir, "missing2.pt"),
		headless:  true,
		track:     -1,
	}
	if err := run(context.Background(), args); err == nil {
		t.Fatal("expected load failure")
	}
}
