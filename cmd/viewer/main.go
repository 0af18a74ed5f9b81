// Command viewer replays two particle trajectory files side by side.
//
//	viewer [flags] <file1> <file2> [--save]
//
// SPACE pauses, ENTER rewinds and resets the camera, S saves a screenshot.
// --save records one playback loop to <file1-basename>.mp4 first.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/ptview/internal/config"
	"github.com/banshee-data/ptview/internal/db"
	"github.com/banshee-data/ptview/internal/fsutil"
	"github.com/banshee-data/ptview/internal/version"
	"github.com/banshee-data/ptview/internal/viewer"
	"github.com/banshee-data/ptview/internal/viewer/window"
)

const usageLine = "usage: viewer [flags] <file1> <file2> [--save]"

// cliArgs holds the parsed command line.
type cliArgs struct {
	primary, secondary string
	save               bool
	headless           bool
	loops              int
	configPath         string
	dbPath             string
	overlay            string
	report             bool
	fps                float64
	track              int
	version            bool
}

var errUsage = errors.New(usageLine)

// parseArgs parses flags and positionals. --save may appear before or
// after the file names.
func parseArgs(args []string, stderr io.Writer) (cliArgs, error) {
	var a cliArgs
	fs := flag.NewFlagSet("viewer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, usageLine)
		fs.PrintDefaults()
	}
	fs.BoolVar(&a.save, "save", false, "record one loop to <file1-basename>.mp4 (.gif without ffmpeg)")
	fs.BoolVar(&a.headless, "headless", false, "play without a window")
	fs.IntVar(&a.loops, "loops", 1, "loops to play in headless mode (0 plays until interrupted)")
	fs.StringVar(&a.configPath, "config", "", "viewer config file (.json, .yaml); defaults to "+config.DefaultConfigPath+" when present")
	fs.StringVar(&a.dbPath, "db", "", "sqlite catalog of sessions and exports (disabled when empty)")
	fs.StringVar(&a.overlay, "overlay", "", "static overlay file of x y z rows (overrides config)")
	fs.BoolVar(&a.report, "report", false, "write <file1-basename>_report.html")
	fs.Float64Var(&a.fps, "fps", 0, "frame rate (overrides config)")
	fs.IntVar(&a.track, "track", -1, "draw this track of file1 as a trail")
	fs.BoolVar(&a.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return a, err
	}
	if a.version {
		return a, nil
	}

	var positional []string
	for _, arg := range fs.Args() {
		switch arg {
		case "--save", "-save":
			a.save = true
		default:
			positional = append(positional, arg)
		}
	}
	if len(positional) != 2 {
		fs.Usage()
		return a, errUsage
	}
	a.primary, a.secondary = positional[0], positional[1]
	if a.fps < 0 {
		return a, fmt.Errorf("-fps must be positive, got %g", a.fps)
	}
	return a, nil
}

// loadConfig resolves the viewer config: an explicit file, else the
// canonical defaults file when present, else built-in defaults. Flags win.
func loadConfig(a cliArgs) (*config.ViewerConfig, error) {
	cfg := config.DefaultViewerConfig()
	path := a.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err == nil {
			path = config.DefaultConfigPath
		}
	}
	if path != "" {
		loaded, err := config.LoadViewerConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		log.Printf("Loaded viewer config from %s", path)
	}
	if a.fps > 0 {
		cfg.FrameRate = &a.fps
	}
	if a.overlay != "" {
		cfg.OverlayPath = &a.overlay
	}
	return cfg, nil
}

func run(ctx context.Context, a cliArgs) error {
	cfg, err := loadConfig(a)
	if err != nil {
		return err
	}

	opts := viewer.Options{
		PrimaryPath:   a.primary,
		SecondaryPath: a.secondary,
		Config:        cfg,
		FS:            fsutil.OSFileSystem{},
	}
	if a.track >= 0 {
		opts.TrailTrack = &a.track
	}
	if a.dbPath != "" {
		catalog, err := db.Open(a.dbPath, nil)
		if err != nil {
			return fmt.Errorf("failed to open catalog: %w", err)
		}
		defer catalog.Close()
		opts.Catalog = catalog
	}

	s := viewer.NewSession(opts)
	if err := s.Initialize(); err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Printf("failed to close session: %v", err)
		}
	}()

	if a.report {
		if _, err := s.WriteReport(); err != nil {
			log.Printf("failed to write report: %v", err)
		}
	}
	if a.save {
		if _, _, err := s.RecordMovie(ctx); err != nil {
			return fmt.Errorf("failed to record movie: %w", err)
		}
	}

	if a.headless {
		primary, _ := s.Datasets()
		err := s.Run(ctx, nil, a.loops*primary.FrameCount())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return window.Run(s, fmt.Sprintf("%s | %s | %s", a.primary, a.secondary, version.String()))
}

func main() {
	a, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err == nil && a.version {
		fmt.Println(version.String())
		return
	}
	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("%s", version.String())
	if err := run(ctx, a); err != nil {
		log.Fatalf("viewer: %v", err)
	}
}
