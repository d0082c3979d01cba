// Package ranking loads and parses the Valor 1000 company ranking, the
// input universe for enrichment runs.
package ranking

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/valorintel/discovery-cli/internal/model"
)

// Column positions in a ranking row. The feed carries many more columns
// than we read; these are the ones the enrichment flow needs.
const (
	colRank      = 0
	colName      = 2
	colCity      = 3
	colSector    = 4
	colRevenue   = 5
	colProfit    = 7
	colLegalName = 22

	minColumns = 8
)

var tagRe = regexp.MustCompile(`<[^>]+>`)

// rankingPayload matches the DataTables envelope the ranking is served
// in. Depending on the vintage, rows live under "data" or "aaData".
type rankingPayload struct {
	Data   []json.RawMessage `json:"data"`
	AAData []json.RawMessage `json:"aaData"`
}

// Parse decodes a ranking payload into entity inputs. Rows can be either
// arrays of cell strings or a single semicolon-joined string; both forms
// appear in the wild. Malformed rows are skipped with a warning rather
// than failing the load.
func Parse(raw []byte) ([]model.EntityInput, error) {
	var payload rankingPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, eris.Wrap(err, "ranking: decode payload")
	}

	rows := payload.Data
	if len(rows) == 0 {
		rows = payload.AAData
	}
	if len(rows) == 0 {
		return nil, eris.New("ranking: payload has no rows")
	}

	entities := make([]model.EntityInput, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		cells, err := splitRow(row)
		if err != nil || len(cells) < minColumns {
			skipped++
			continue
		}
		e := rowToEntity(cells)
		if e.Name == "" {
			skipped++
			continue
		}
		entities = append(entities, e)
	}

	if skipped > 0 {
		zap.L().Warn("skipped malformed ranking rows", zap.Int("skipped", skipped))
	}
	if len(entities) == 0 {
		return nil, eris.New("ranking: no usable rows in payload")
	}
	return entities, nil
}

// splitRow normalizes one row into its cells, accepting both the
// pre-split array form and the semicolon-joined string form.
func splitRow(row json.RawMessage) ([]string, error) {
	var cells []string
	if err := json.Unmarshal(row, &cells); err == nil {
		return cells, nil
	}

	var joined string
	if err := json.Unmarshal(row, &joined); err != nil {
		return nil, eris.Wrap(err, "ranking: unrecognized row shape")
	}
	return strings.Split(joined, ";"), nil
}

func rowToEntity(cells []string) model.EntityInput {
	cell := func(i int) string {
		if i >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[i])
	}

	rank, _ := strconv.Atoi(cell(colRank))

	return model.EntityInput{
		Rank:      rank,
		Name:      strings.TrimSpace(tagRe.ReplaceAllString(cell(colName), "")),
		City:      cell(colCity),
		Sector:    cell(colSector),
		Revenue:   cell(colRevenue),
		Profit:    cell(colProfit),
		LegalName: cell(colLegalName),
	}
}
