package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valorintel/discovery-cli/internal/cost"
	"github.com/valorintel/discovery-cli/internal/enrich"
	"github.com/valorintel/discovery-cli/internal/graph"
	"github.com/valorintel/discovery-cli/internal/model"
	"github.com/valorintel/discovery-cli/internal/ranking"
)

var (
	batchFile   string
	batchURL    string
	batchLimit  int
	batchIngest bool
	batchOut    string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Enrich a company ranking end to end",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		entities, err := loadRanking(ctx)
		if err != nil {
			return err
		}

		enricher, state := buildEnricher()
		orch := enrich.NewOrchestrator(enricher, cfg.Enrich.MaxConcurrentEntities, enrich.WithLimit(batchLimit))

		results, err := orch.Run(ctx, entities)
		if err != nil {
			return eris.Wrap(err, "run batch")
		}

		usage := state.Usage()
		calc := cost.NewCalculator(cfg.Pricing)
		zap.L().Info("batch complete",
			zap.String("run_id", state.RunID.String()),
			zap.Int("entities", len(results)),
			zap.Int64("extractions", state.Extractions()),
			zap.Int64("input_tokens", usage.InputTokens),
			zap.Int64("output_tokens", usage.OutputTokens),
			zap.Float64("est_cost_usd", calc.Run(cfg.Anthropic.Model, len(results), usage)),
		)

		if batchIngest {
			if err := ingestGraph(ctx, results); err != nil {
				return err
			}
		}

		return writeResults(results)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "path to a ranking JSON file")
	batchCmd.Flags().StringVar(&batchURL, "url", "", "ranking payload URL (overrides configured URL)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of companies to process (0 = all)")
	batchCmd.Flags().BoolVar(&batchIngest, "ingest", false, "load enriched results into Neo4j")
	batchCmd.Flags().StringVar(&batchOut, "out", "", "write results JSON to a file instead of stdout")
	batchCmd.MarkFlagsMutuallyExclusive("file", "url")
	rootCmd.AddCommand(batchCmd)
}

func loadRanking(ctx context.Context) ([]model.EntityInput, error) {
	if batchFile != "" {
		return ranking.LoadFile(batchFile)
	}

	url := batchURL
	if url == "" {
		url = cfg.Ranking.URL
	}
	if url == "" {
		return nil, eris.New("no ranking source: pass --file or --url, or set ranking.url")
	}
	return ranking.FetchURL(ctx, url, time.Duration(cfg.Ranking.TimeoutSecs)*time.Second)
}

func ingestGraph(ctx context.Context, results []model.EnrichedEntity) error {
	loader, err := graph.NewLoader(cfg.Neo4j)
	if err != nil {
		return err
	}
	defer loader.Close(ctx)

	if err := loader.EnsureConstraints(ctx); err != nil {
		return err
	}
	return loader.Load(ctx, results)
}

func writeResults(results []model.EnrichedEntity) error {
	out := os.Stdout
	if batchOut != "" {
		f, err := os.Create(batchOut)
		if err != nil {
			return eris.Wrap(err, "create output file")
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
