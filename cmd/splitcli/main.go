package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	cfgpkg "github.com/local/mangasplit/internal/config"
	"github.com/local/mangasplit/internal/imageio"
	logpkg "github.com/local/mangasplit/internal/logger"
	"github.com/local/mangasplit/internal/metrics"
	"github.com/local/mangasplit/internal/report"
	"github.com/local/mangasplit/internal/splitter"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()
	cfg := cfgpkg.FromEnv()

	var (
		outputDir     = flag.String("output", cfg.Batch.OutputDir, "Directory to write processed images and reports")
		reportPath    = flag.String("report", "", "Path for the JSON report (defaults to <output>/split-report.json)")
		paddingRatio  = flag.Float64("padding-ratio", cfg.Splitter.PaddingRatio, "Extra padding applied when cropping (fraction of dimension)")
		coverThresh   = flag.Float64("cover-threshold", cfg.Splitter.CoverContentRatio, "Maximum content width ratio to classify as cover")
		confThresh    = flag.Float64("confidence-threshold", cfg.Splitter.ConfidenceThreshold, "Minimum valley contrast required to accept the located split")
		edgeExclusion = flag.Float64("edge-exclusion", cfg.Splitter.EdgeExclusionRatio, "Fraction of width to ignore near edges when searching for valleys")
		minForeground = flag.Float64("min-foreground", cfg.Splitter.MinForegroundRatio, "Skip images with less foreground than this ratio")
		overwrite     = flag.Bool("overwrite", false, "Overwrite output files if they already exist")
		dryRun        = flag.Bool("dry-run", false, "Run analysis without writing image outputs")
		workers       = flag.Int("workers", cfg.Batch.Workers, "Number of concurrent analysis workers")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: splitcli [flags] <image file or directory>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	if flag.NArg() < 1 {
		flag.Usage()
		return 1
	}
	input := flag.Arg(0)

	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				log.Warn().Err(err).Str("addr", cfg.Metrics.Addr).Msg("metrics listener stopped")
			}
		}()
	}

	splitCfg := splitter.SplitConfig{
		MinAspectRatio:      cfg.Splitter.MinAspectRatio,
		PaddingRatio:        *paddingRatio,
		ConfidenceThreshold: *confThresh,
		CoverContentRatio:   *coverThresh,
		EdgeExclusionRatio:  *edgeExclusion,
		MinForegroundRatio:  *minForeground,
	}
	if err := splitCfg.Validate(); err != nil {
		log.Error().Err(err).Msg("invalid split configuration")
		return 1
	}

	sources, err := imageio.Walk(input)
	if err != nil {
		log.Error().Err(err).Str("input", input).Msg("cannot enumerate input")
		return 1
	}
	if len(sources) == 0 {
		log.Warn().Str("input", input).Msg("no supported images found")
	}

	rep := report.New()
	outPath := *reportPath
	if outPath == "" {
		outPath = filepath.Join(*outputDir, "split-report.json")
	}

	nWorkers := *workers
	if nWorkers < 1 {
		nWorkers = 1
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		processed int
		emitted   int
	)
	jobs := make(chan string)

	for i := 0; i < nWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for source := range jobs {
				item, pages := processOne(source, splitCfg, *outputDir, *overwrite, *dryRun, cfg.Metrics.Enabled)
				mu.Lock()
				if item != nil {
					rep.Add(*item)
					processed++
					emitted += pages
				}
				mu.Unlock()
			}
		}()
	}

	for _, source := range sources {
		jobs <- source
	}
	close(jobs)
	wg.Wait()

	rep.Sort()
	if err := rep.Write(outPath); err != nil {
		log.Error().Err(err).Str("report", outPath).Msg("cannot write report")
		return 1
	}

	log.Info().
		Int("processed", processed).
		Int("pages_written", emitted).
		Str("report", outPath).
		Msg("batch complete")
	return 0
}

// processOne analyzes a single source image and, unless dry-running,
// exports its pages. An unreadable file yields a warning and a nil item;
// the batch keeps going.
func processOne(source string, cfg splitter.SplitConfig, outputDir string, overwrite, dryRun, observe bool) (*report.Item, int) {
	img, err := imageio.Load(source)
	if err != nil {
		log.Warn().Err(err).Str("file", source).Msg("skipping unreadable image")
		if observe {
			metrics.IncSkipped("unreadable")
		}
		return nil, 0
	}

	start := time.Now()
	result, err := splitter.Split(img, cfg)
	if err != nil {
		log.Warn().Err(err).Str("file", source).Msg("skipping invalid image")
		if observe {
			metrics.IncSkipped("invalid")
		}
		return nil, 0
	}
	if observe {
		metrics.ObserveSpread(string(result.Mode), time.Since(start))
	}

	var outputs []string
	if !dryRun {
		outputs, err = exportPages(result, source, outputDir, overwrite)
		if err != nil {
			log.Error().Err(err).Str("file", source).Msg("cannot write output pages")
			return nil, 0
		}
		if observe {
			metrics.AddPagesEmitted(len(outputs))
		}
	}

	item := &report.Item{
		Source:            source,
		Mode:              string(result.Mode),
		Confidence:        result.Confidence,
		ContentWidthRatio: result.ContentWidthRatio,
		Outputs:           outputs,
		Metadata:          result.Metadata,
	}
	if result.HasSplitX {
		x := result.SplitX
		item.SplitX = &x
	}

	log.Debug().
		Str("file", source).
		Str("mode", string(result.Mode)).
		Float64("confidence", result.Confidence).
		Int("pages", len(result.Pages)).
		Msg("spread analyzed")

	return item, len(outputs)
}

// exportPages writes the result's pages using the batch naming scheme:
// <stem>_cover for trimmed covers, <stem>_R then <stem>_L for splits.
func exportPages(result *splitter.SplitResult, source, outputDir string, overwrite bool) ([]string, error) {
	outputs := []string{}

	switch result.Mode {
	case splitter.ModeSkip:
		return outputs, nil
	case splitter.ModeCoverTrim:
		name := imageio.CoverName(source)
		if err := imageio.Save(result.Pages[0], filepath.Join(outputDir, name), overwrite); err != nil {
			return nil, err
		}
		return append(outputs, name), nil
	default:
		names := imageio.PageNames(source)
		for i, page := range result.Pages {
			if i >= len(names) {
				break
			}
			if err := imageio.Save(page, filepath.Join(outputDir, names[i]), overwrite); err != nil {
				return nil, err
			}
			outputs = append(outputs, names[i])
		}
		return outputs, nil
	}
}
