package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valorintel/discovery-cli/internal/model"
)

var (
	runName    string
	runCity    string
	runSector  string
	runRevenue string
	runCNPJ    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Enrich a single company",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		enricher, state := buildEnricher()

		entity := model.EntityInput{
			Name:      runName,
			City:      runCity,
			Sector:    runSector,
			Revenue:   runRevenue,
			KnownCNPJ: runCNPJ,
		}

		result := enricher.EnrichOne(ctx, entity)

		usage := state.Usage()
		zap.L().Info("enrichment complete",
			zap.String("company", entity.Name),
			zap.String("run_id", state.RunID.String()),
			zap.Int64("extractions", state.Extractions()),
			zap.Int64("input_tokens", usage.InputTokens),
			zap.Int64("output_tokens", usage.OutputTokens),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	runCmd.Flags().StringVar(&runName, "name", "", "company trade name (required)")
	runCmd.Flags().StringVar(&runCity, "city", "", "headquarters city")
	runCmd.Flags().StringVar(&runSector, "sector", "", "ranking sector")
	runCmd.Flags().StringVar(&runRevenue, "revenue", "", "net revenue in millions, ranking format")
	runCmd.Flags().StringVar(&runCNPJ, "cnpj", "", "known CNPJ, skips evidence-based resolution")
	_ = runCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(runCmd)
}
