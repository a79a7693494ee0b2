package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/attendance-scanner/internal/attendance"
	"github.com/kozaktomas/attendance-scanner/internal/camera"
	"github.com/kozaktomas/attendance-scanner/internal/config"
	"github.com/kozaktomas/attendance-scanner/internal/detector"
	"github.com/kozaktomas/attendance-scanner/internal/facematch"
	"github.com/kozaktomas/attendance-scanner/internal/identity"
	"github.com/kozaktomas/attendance-scanner/internal/scanner"
	"github.com/kozaktomas/attendance-scanner/internal/web"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scanner and web server",
	Long: `Start the attendance scanner.
Reads frames from CAMERA_SOURCE, marks recognized students in the active
session and serves the dashboard API, the live MJPEG feeds and the SSE
event stream.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().String("camera", "", "Camera source (overrides CAMERA_SOURCE)")
	serveCmd.Flags().Bool("no-camera", false, "Serve the API without a camera")
	serveCmd.Flags().Float64("tolerance", 0, "Match tolerance (overrides MATCH_TOLERANCE)")
}

// applyServeFlags lets command line flags override environment configuration.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if source := mustGetString(cmd, "camera"); source != "" {
		cfg.Camera.Source = source
	}
	if tolerance := mustGetFloat64(cmd, "tolerance"); tolerance > 0 {
		cfg.Matching.Tolerance = tolerance
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyServeFlags(cmd, cfg)
	noCamera := mustGetBool(cmd, "no-camera")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Connecting to PostgreSQL database...\n")
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.rosterPool != nil {
		fmt.Printf("Using roster table %s from MariaDB\n", cfg.Roster.Table)
	}

	policy := facematch.ParsePolicy(cfg.Matching.Policy)
	cache := identity.NewCache(a.identities, cfg.Matching.Metric, policy == facematch.PolicyNearest)
	count, err := cache.Reload(ctx)
	if err != nil {
		return fmt.Errorf("failed to load enrolled faces: %w", err)
	}
	fmt.Printf("Loaded %d enrolled faces\n", count)

	det, err := detector.New(&cfg.Detector)
	if err != nil {
		return fmt.Errorf("failed to create face detector: %w", err)
	}
	if closer, ok := det.(io.Closer); ok {
		defer closer.Close()
	}

	identities := identity.NewService(a.identities, det, cache)
	identities.OnDeleted = func(string) { a.tracker.Touch() }

	services := web.Services{
		Tracker:    a.tracker,
		Records:    a.records,
		Roster:     a.roster,
		Identities: identities,
	}

	var (
		scan *scanner.Scanner
		src  camera.Source
	)
	if !noCamera {
		src, err = camera.Open(ctx, cfg.Camera.Source)
		if err != nil {
			return fmt.Errorf("failed to open camera %q: %w", cfg.Camera.Source, err)
		}
		matcher := facematch.NewMatcher(cfg.Matching.Tolerance, policy, cfg.Matching.Metric)
		scan = scanner.New(det, matcher, cache, a.tracker, scanner.Config{
			FrameScale:   cfg.Matching.FrameScale,
			ProcessEvery: cfg.Matching.ProcessEvery,
			Dwell:        cfg.Matching.VerifyDwell,
		})
		services.Live = scan.Live
		services.Preview = scan.Preview
		fmt.Printf("Camera %s opened (tolerance %.2f, policy %s)\n", cfg.Camera.Source, cfg.Matching.Tolerance, policy)
	}

	rollover, err := attendance.NewRollover(a.tracker, cfg.Session.RolloverSchedule)
	if err != nil {
		return err
	}
	rollover.Start()
	defer rollover.Stop()

	server := web.NewServer(cfg, services)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		fmt.Println("\nShutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if scan != nil {
		g.Go(func() error {
			return scan.Run(gctx, src)
		})
	}

	fmt.Printf("Dashboard on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
