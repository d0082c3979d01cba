package ranking

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/valorintel/discovery-cli/internal/model"
)

const maxPayloadBytes = 16 << 20

// FetchURL downloads and parses the ranking payload from a URL.
func FetchURL(ctx context.Context, url string, timeout time.Duration) ([]model.EntityInput, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "ranking: build request")
	}
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "ranking: fetch payload")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.New(fmt.Sprintf("ranking: fetch returned status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, eris.Wrap(err, "ranking: read payload")
	}

	entities, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	zap.L().Info("fetched ranking", zap.String("url", url), zap.Int("entities", len(entities)))
	return entities, nil
}

// LoadFile parses a ranking payload from a local JSON file.
func LoadFile(path string) ([]model.EntityInput, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ranking: read file")
	}
	return Parse(raw)
}
