// Package graph loads enriched entities into Neo4j as a corporate graph:
// Company nodes keyed by CNPJ radical, with HAS_BRAND edges to the brands
// extraction surfaced.
package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/valorintel/discovery-cli/internal/config"
	"github.com/valorintel/discovery-cli/internal/model"
)

var constraintStatements = []string{
	"CREATE CONSTRAINT company_cnpj IF NOT EXISTS FOR (c:Company) REQUIRE c.cnpj IS UNIQUE",
	"CREATE CONSTRAINT brand_name IF NOT EXISTS FOR (b:Brand) REQUIRE b.name IS UNIQUE",
}

const mergeCompanies = `
UNWIND $rows AS row
MERGE (c:Company {cnpj: row.cnpj})
SET c.radical = row.radical,
    c.name = row.name,
    c.legal_name = row.legal_name,
    c.city = row.city,
    c.sector = row.sector,
    c.official_website = row.official_website,
    c.linkedin_url = row.linkedin_url,
    c.corporate_group_notes = row.corporate_group_notes,
    c.rank = row.rank
FOREACH (brand IN row.brands |
  MERGE (b:Brand {name: brand})
  MERGE (c)-[:HAS_BRAND]->(b)
)`

// Loader writes enriched records to a Neo4j instance.
type Loader struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewLoader connects to Neo4j with the configured credentials.
func NewLoader(cfg config.Neo4jConfig) (*Loader, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, eris.Wrap(err, "graph: create driver")
	}
	return &Loader{driver: driver, database: cfg.Database}, nil
}

func (l *Loader) Close(ctx context.Context) error {
	return l.driver.Close(ctx)
}

// EnsureConstraints creates the uniqueness constraints the merge relies on.
func (l *Loader) EnsureConstraints(ctx context.Context) error {
	session := l.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: l.database})
	defer session.Close(ctx)

	for _, stmt := range constraintStatements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return eris.Wrap(err, "graph: create constraint")
		}
	}
	return nil
}

// Load merges the enriched entities into the graph. Records without a
// valid primary CNPJ have no stable key and are skipped.
func (l *Loader) Load(ctx context.Context, entities []model.EnrichedEntity) error {
	rows := BuildRows(entities)
	if len(rows) == 0 {
		zap.L().Warn("no loadable records, nothing written to graph")
		return nil
	}

	session := l.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: l.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, mergeCompanies, map[string]any{"rows": rows})
	})
	if err != nil {
		return eris.Wrap(err, "graph: merge companies")
	}

	zap.L().Info("loaded companies into graph",
		zap.Int("written", len(rows)),
		zap.Int("skipped", len(entities)-len(rows)))
	return nil
}

// BuildRows converts enriched entities into merge parameters, dropping
// records whose primary CNPJ is missing or malformed.
func BuildRows(entities []model.EnrichedEntity) []map[string]any {
	rows := make([]map[string]any, 0, len(entities))
	for _, e := range entities {
		if !model.ValidCNPJ(e.PrimaryCNPJ) {
			continue
		}
		rows = append(rows, map[string]any{
			"cnpj":                  e.PrimaryCNPJ,
			"radical":               e.RadicalCNPJ,
			"name":                  e.Name,
			"legal_name":            e.LegalName,
			"city":                  e.City,
			"sector":                e.Sector,
			"official_website":      e.OfficialWebsite,
			"linkedin_url":          e.LinkedInURL,
			"corporate_group_notes": e.CorporateGroupNotes,
			"rank":                  e.Rank,
			"brands":                e.FoundBrands,
		})
	}
	return rows
}
