// Command sitemodel prepares site-parameter tables for hazard and risk
// calculations. The prepare subcommand merges ground-condition files,
// builds target sites from explicit coordinates, deduplicated asset
// locations, or a synthesized grid, associates each target with its nearest
// Vs30 sample, and writes the resulting table.
//
// Usage:
//
//	sitemodel prepare \
//	  --vs30 vs30_north.csv --vs30 vs30_south.csv \
//	  --exposure exposure.csv \
//	  --grid-spacing 10 \
//	  --z1pt0 --z2pt5 \
//	  --out site_model.csv
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/site-model-etl/internal/adapter/csvfile"
	httpadapter "github.com/couchcryptid/site-model-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/site-model-etl/internal/adapter/kafka"
	"github.com/couchcryptid/site-model-etl/internal/config"
	"github.com/couchcryptid/site-model-etl/internal/domain"
	"github.com/couchcryptid/site-model-etl/internal/observability"
	"github.com/couchcryptid/site-model-etl/internal/pipeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sitemodel",
		Short:         "Prepare site-parameter tables for hazard and risk calculations",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newPrepareCmd())
	return root
}

func newPrepareCmd() *cobra.Command {
	var (
		jobPath      string
		pointFiles   []string
		sitesFile    string
		exposureFile string
		outputPath   string
		gridSpacing  float64
		maxDistance  float64
		deriveZ1pt0  bool
		deriveZ2pt5  bool
		deriveVs30M  bool
		workers      int
		metricsAddr  string
	)

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Build a site-model table by nearest-neighbor association",
		Long: "Reads one or more headerless lon,lat,vs30 CSV files, builds target sites\n" +
			"from explicit coordinates, deduplicated asset locations, or a regular grid,\n" +
			"associates each target with the closest sample by great-circle distance, and\n" +
			"writes the site-model table. Targets whose nearest sample is beyond the\n" +
			"cutoff are discarded with a warning.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Optional .env for local runs; absence is fine.
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if jobPath != "" {
				if err := cfg.ApplyJobFile(jobPath); err != nil {
					return err
				}
			}

			flags := cmd.Flags()
			if flags.Changed("vs30") {
				cfg.PointFiles = pointFiles
			}
			if flags.Changed("sites") {
				cfg.SitesFile = sitesFile
			}
			if flags.Changed("exposure") {
				cfg.ExposureFile = exposureFile
			}
			if flags.Changed("out") {
				cfg.OutputPath = outputPath
			}
			if flags.Changed("grid-spacing") {
				cfg.GridSpacingKm = gridSpacing
			}
			if flags.Changed("max-distance") {
				cfg.MaxDistanceKm = maxDistance
			}
			if flags.Changed("z1pt0") {
				cfg.DeriveZ1pt0 = deriveZ1pt0
			}
			if flags.Changed("z2pt5") {
				cfg.DeriveZ2pt5 = deriveZ2pt5
			}
			if flags.Changed("vs30measured") {
				cfg.DeriveVs30Measured = deriveVs30M
			}
			if flags.Changed("workers") {
				cfg.Workers = workers
			}
			if flags.Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			return runPrepare(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&jobPath, "job", "", "YAML job file (flags override it)")
	cmd.Flags().StringArrayVar(&pointFiles, "vs30", nil, "ground-condition CSV (repeatable; order sets tie-break priority)")
	cmd.Flags().StringVar(&sitesFile, "sites", "", "explicit sites CSV (lon,lat[,id])")
	cmd.Flags().StringVar(&exposureFile, "exposure", "", "asset locations CSV (lon,lat)")
	cmd.Flags().StringVar(&outputPath, "out", "", "output site-model table path")
	cmd.Flags().Float64Var(&gridSpacing, "grid-spacing", 0, "grid spacing in km (0 = deduplicated locations)")
	cmd.Flags().Float64Var(&maxDistance, "max-distance", config.DefaultMaxDistanceKm, "association cutoff in km; sites beyond it are discarded")
	cmd.Flags().BoolVar(&deriveZ1pt0, "z1pt0", false, "derive the z1pt0 column from vs30")
	cmd.Flags().BoolVar(&deriveZ2pt5, "z2pt5", false, "derive the z2pt5 column from vs30")
	cmd.Flags().BoolVar(&deriveVs30M, "vs30measured", false, "emit the vs30measured flag column")
	cmd.Flags().IntVar(&workers, "workers", 0, "association workers (default: GOMAXPROCS)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /healthz, /readyz, /statusz, /metrics on this address during the run")

	return cmd
}

func runPrepare(cmd *cobra.Command, cfg *config.Config) error {
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	runID := uuid.NewString()

	derive := domain.DeriveOptions{Vs30Measured: cfg.DeriveVs30Measured}
	if cfg.DeriveZ1pt0 {
		derive.Z1pt0 = domain.DefaultZ1pt0
	}
	if cfg.DeriveZ2pt5 {
		derive.Z2pt5 = domain.DefaultZ2pt5
	}

	var sites pipeline.SiteReader
	if cfg.SitesFile != "" {
		sites = csvfile.NewSiteReader(cfg.SitesFile)
	}
	var exposure pipeline.ExposureReader
	if cfg.ExposureFile != "" {
		exposure = csvfile.NewExposureReader(cfg.ExposureFile)
	}

	points := csvfile.NewPointReader(cfg.PointFiles, logger)
	targets := pipeline.NewTargetBuilder(sites, exposure, cfg.GridSpacingKm, logger)
	writer := csvfile.NewTableWriter(cfg.OutputPath, logger)

	var sinks []pipeline.WarningSink
	if cfg.KafkaEnabled {
		ww := kafkaadapter.NewWarningWriter(cfg, logger)
		defer func() {
			if err := ww.Close(); err != nil {
				logger.Error("kafka warning writer close error", "error", err)
			}
		}()
		sinks = append(sinks, ww)
		logger.Info("kafka warning stream enabled", "topic", cfg.KafkaWarningsTopic)
	}

	p := pipeline.New(points, targets, writer, pipeline.Options{
		Derive:        derive,
		MaxDistanceKm: cfg.MaxDistanceKm,
		Workers:       cfg.Workers,
		RunID:         runID,
	}, logger, metrics, sinks...)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv := httpadapter.NewServer(cfg.MetricsAddr, p, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("diagnostics server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("diagnostics server shutdown error", "error", err)
			}
		}()
	}

	summary, err := p.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "prepared %d sites (%d discarded) -> %s\n",
		summary.Accepted, summary.Discarded, cfg.OutputPath)
	return nil
}
