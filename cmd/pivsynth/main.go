package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"pivsynth/pkg/config"
	"pivsynth/pkg/server"
	"pivsynth/pkg/synthesis"
	"pivsynth/pkg/visualization"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "pivsynth.yaml", "Configuration file (.yaml, .yml or .ini)")
	initConfig := flag.Bool("init", false, "Write the default configuration to -config and exit")
	outputDir := flag.String("output", "", "Directory for image pairs (overrides output.dir)")
	pairs := flag.Int("pairs", 0, "Number of image pairs (overrides run.pairs)")
	seed := flag.Uint64("seed", 0, "Random seed (overrides run.seed when non-zero)")
	workers := flag.Int("workers", -1, "Worker count (overrides run.numWorkers when non-negative)")
	flowPath := flag.String("flow", "", "Flow record file; selects the points sampler")
	serveAddr := flag.String("serve", "", "Serve the websocket endpoint on this address instead of running a batch")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default configuration: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Command line overrides
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *pairs > 0 {
		cfg.Run.Pairs = *pairs
	}
	if *seed != 0 {
		cfg.Run.Seed = *seed
	}
	if *workers >= 0 {
		cfg.Run.NumWorkers = *workers
	}
	if *flowPath != "" {
		cfg.Flow.Kind = "points"
		cfg.Flow.Path = *flowPath
	}
	if *verbose || cfg.Output.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	if *serveAddr != "" {
		upgrader := websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		}
		if err := server.NewServer(*serveAddr, upgrader, cfg).Serve(); err != nil {
			log.Fatalf("ListenAndServe: %v", err)
		}
		return
	}

	if err := runBatch(cfg); err != nil {
		log.Fatalf("Synthesis failed: %v", err)
	}
}

// runBatch generates every pair of cfg and writes them as PNG files
func runBatch(cfg *config.Config) error {
	params, sampler, err := synthesis.FromConfig(cfg)
	if err != nil {
		return err
	}
	params.Progress = func(e synthesis.Event) {
		log.WithFields(log.Fields{
			"pair":     e.Pair,
			"stage":    e.Stage,
			"progress": fmt.Sprintf("%.1f%%", e.Fraction*100),
		}).Debug("progress")
	}

	synth, err := synthesis.New(params, sampler)
	if err != nil {
		return err
	}
	defer synth.Close()

	// Ctrl-C cancels between stages
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.WithFields(log.Fields{
		"particles": params.Diameters.Count,
		"pairs":     params.Pairs,
		"width":     params.Camera.XResolution,
		"height":    params.Camera.YResolution,
		"output":    cfg.Output.Dir,
	}).Info("starting synthesis")

	startTime := time.Now()
	summary, err := synth.Run(ctx, func(snap *synthesis.Snapshot) error {
		paths, err := visualization.SavePair(cfg.Output.Dir, snap.Index, snap.Image1, snap.Image2)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"pair":        snap.Index,
			"particles":   snap.Metrics.Particles,
			"meanDX":      snap.Metrics.MeanDX,
			"meanDY":      snap.Metrics.MeanDY,
			"correlation": snap.Metrics.Correlation,
			"files":       paths,
		}).Info("pair written")
		return nil
	})
	if err != nil {
		return err
	}

	fields := log.Fields{
		"pairs":   summary.Pairs,
		"seeded":  summary.Seeded,
		"elapsed": time.Since(startTime).Round(time.Millisecond),
	}
	for kind, n := range summary.Failures {
		fields[kind.String()] = n
	}
	log.WithFields(fields).Info("synthesis completed")
	return nil
}
