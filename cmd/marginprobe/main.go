// marginprobe runs the experimental dark-margin detectors against a single
// image and prints their JSON result. It exists to evaluate the prototypes
// against real scans; the production splitter does not consult them.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	cfgpkg "github.com/local/mangasplit/internal/config"
	"github.com/local/mangasplit/internal/imageio"
	logpkg "github.com/local/mangasplit/internal/logger"
	"github.com/local/mangasplit/internal/margin"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()
	cfg := cfgpkg.FromEnv()

	var (
		input    = flag.String("input", "", "Path to the source image file")
		detector = flag.String("detector", "edge", "Detector to run: edge or cluster")
		gamma    = flag.Float64("gamma", 1.0, "Gamma correction factor (edge detector)")
		thresh   = flag.Float64("threshold", 0, "Override score threshold (0 keeps the default)")
	)
	flag.Parse()

	_ = logpkg.Init(logpkg.Options{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
	})
	defer logpkg.Close()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "marginprobe: --input is required")
		flag.PrintDefaults()
		return 1
	}

	img, err := imageio.Load(*input)
	if err != nil {
		log.Error().Err(err).Str("file", *input).Msg("cannot load image")
		return 1
	}

	var result any
	switch *detector {
	case "edge":
		etCfg := margin.DefaultEdgeTextureConfig()
		etCfg.Gamma = *gamma
		if *thresh > 0 {
			etCfg.WhiteThreshold = *thresh
		}
		result = margin.AnalyzeEdges(img, etCfg)
	case "cluster":
		ccCfg := margin.DefaultColorClusterConfig()
		if *thresh > 0 {
			ccCfg.BackgroundScoreThreshold = *thresh
		}
		result = margin.AnalyzeClusters(img, ccCfg)
	default:
		fmt.Fprintf(os.Stderr, "marginprobe: unknown detector %q\n", *detector)
		return 1
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("cannot marshal result")
		return 1
	}
	fmt.Println(string(data))
	return 0
}
