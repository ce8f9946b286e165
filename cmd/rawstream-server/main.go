// ABOUTME: Entry point for the raw PCM stream server
// ABOUTME: Cobra commands for serving, listing capture devices and printing config
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Resonate-Protocol/rawstream-go/internal/config"
	"github.com/Resonate-Protocol/rawstream-go/internal/logging"
	"github.com/Resonate-Protocol/rawstream-go/internal/metrics"
	"github.com/Resonate-Protocol/rawstream-go/internal/pipeline"
	"github.com/Resonate-Protocol/rawstream-go/internal/server"
	"github.com/Resonate-Protocol/rawstream-go/internal/version"
	"github.com/Resonate-Protocol/rawstream-go/pkg/audio/capture"
)

// tuiLogFile receives logs while the TUI owns the terminal
const tuiLogFile = "rawstream-server.log"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "rawstream-server",
	Short: "Raw PCM network audio server",
	Long: `rawstream-server streams a capture device or an audio file over HTTP as raw
little-endian PCM for HQPlayer and compatible players.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the stream server (default)",
	RunE:  runServe,
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List capture devices",
	RunE:  runDevices,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		out, err := cfg.YAML()
		if err != nil {
			return fmt.Errorf("failed to render config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./rawstream.yaml)")
	flags.String("address", "0.0.0.0", "listen address")
	flags.Int("port", 3000, "listen port")
	flags.String("title", pipeline.DefaultTitle, "title advertised for live streams")
	flags.String("backend", "malgo", "capture backend (malgo, portaudio, tone)")
	flags.String("device", "", "capture device name (default input if empty)")
	flags.String("file", "./crosswalk.wav", "audio file served on /file.raw")
	flags.Bool("pace", true, "replay files at real-time rate")
	flags.Bool("mdns", false, "advertise via mDNS")
	flags.String("name", "", "mDNS service name (default hostname)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-file", "stderr", "log output (stderr, stdout or a file path)")
	flags.Bool("tui", false, "show the status TUI")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	if cfg.TUI && (cfg.Logging.Output == "stderr" || cfg.Logging.Output == "stdout") {
		cfg.Logging.Output = tuiLogFile
	}
	closeLog, err := logging.Init(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	backend, err := capture.New(cfg.Capture.Backend)
	if err != nil {
		return err
	}
	defer backend.Close()

	m := metrics.New()
	orch := pipeline.New(backend, pipeline.Config{
		Device:   cfg.Capture.Device,
		Title:    cfg.Stream.Title,
		FilePath: cfg.File.Path,
		Pace:     cfg.File.Pace,
	}, m)

	srv := server.New(server.Config{
		Address:    cfg.Server.Address,
		Port:       cfg.Server.Port,
		Name:       cfg.Discovery.Name,
		Marker:     cfg.Stream.ContentType,
		EnableMDNS: cfg.Discovery.Enabled,
		UseTUI:     cfg.TUI,
	}, orch, m)

	log.Info().
		Str("version", version.Version).
		Str("backend", backend.Name()).
		Str("device", cfg.Capture.Device).
		Str("file", cfg.File.Path).
		Msg("Starting rawstream server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		srv.Stop()
	}()

	return srv.Start()
}

func runDevices(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	backend, err := capture.New(cfg.Capture.Backend)
	if err != nil {
		return err
	}
	defer backend.Close()

	devices, err := backend.Devices()
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Capture devices (%s):\n", backend.Name())
	if len(devices) == 0 {
		fmt.Fprintln(out, "  none")
		return nil
	}
	for _, d := range devices {
		marker := " "
		if d.Default {
			marker = "*"
		}
		fmt.Fprintf(out, " %s %s\n", marker, d.Name)
	}

	// Opening the default device reports its native format
	in, err := backend.Open(cfg.Capture.Device)
	if err != nil {
		fmt.Fprintf(out, "\nCannot open %q: %v\n", cfg.Capture.Device, err)
		return nil
	}
	defer in.Close()
	fmt.Fprintf(out, "\nSelected: %s\n  native: %s\n  wire:   %s\n", in.Device().Name, in.Format(), in.Format().Wire())
	return nil
}
