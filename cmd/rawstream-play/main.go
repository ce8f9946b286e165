// ABOUTME: Entry point for the raw PCM stream player
// ABOUTME: Plays or records a stream, optionally finding the server via mDNS
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Resonate-Protocol/rawstream-go/internal/config"
	"github.com/Resonate-Protocol/rawstream-go/internal/discovery"
	"github.com/Resonate-Protocol/rawstream-go/internal/logging"
	"github.com/Resonate-Protocol/rawstream-go/internal/player"
	"github.com/Resonate-Protocol/rawstream-go/internal/version"
)

const discoverTimeout = 10 * time.Second

var (
	outFile  string
	discover bool
	volume   int
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:          "rawstream-play [url]",
	Short:        "Play a raw PCM network stream",
	Version:      version.Version,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&outFile, "out", "o", "", "record to a WAV file instead of playing")
	rootCmd.Flags().BoolVar(&discover, "discover", false, "find a server via mDNS")
	rootCmd.Flags().IntVar(&volume, "volume", 100, "playback volume (0-100)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	closeLog, err := logging.Init(config.LoggingConfig{Level: logLevel, Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	url := "http://127.0.0.1:3000/stream.raw"
	switch {
	case len(args) == 1:
		url = args[0]
	case discover:
		url, err = discoverServer(ctx)
		if err != nil {
			return err
		}
	}

	s, err := player.Open(ctx, nil, url)
	if err != nil {
		return err
	}
	defer s.Close()

	log.Info().
		Str("url", url).
		Str("title", s.Info.Title).
		Object("format", s.Info.Format).
		Msg("Connected")

	if outFile != "" {
		return record(ctx, s)
	}

	out := player.NewOutput()
	out.SetVolume(volume)
	return out.Play(ctx, s.Info, s.Body)
}

func record(ctx context.Context, s *player.Stream) error {
	f, err := os.Create(outFile)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outFile, err)
	}
	defer f.Close()

	frames, err := player.Record(ctx, s.Info, s.Body, f)
	log.Info().
		Str("file", outFile).
		Int64("frames", frames).
		Dur("duration", time.Duration(frames)*time.Second/time.Duration(s.Info.Format.SampleRate)).
		Msg("Recording saved")
	return err
}

func discoverServer(ctx context.Context) (string, error) {
	mgr := discovery.NewManager(discovery.Config{})
	defer mgr.Stop()

	if err := mgr.Browse(); err != nil {
		return "", err
	}
	log.Info().Msg("Searching for servers via mDNS")

	ctx, cancel := context.WithTimeout(ctx, discoverTimeout)
	defer cancel()

	select {
	case srv := <-mgr.Servers():
		log.Info().Str("name", srv.Name).Str("url", srv.URL()).Msg("Found server")
		return srv.URL(), nil
	case <-ctx.Done():
		return "", fmt.Errorf("no server found within %s", discoverTimeout)
	}
}
