package browser

import (
	"encoding/json"
	"fmt"

	"imgharvest/pkg/models"
)

// DecodeAssets turns the probe's JSON array into assets. Entries that do
// not fit the Asset shape are skipped and counted; duplicates (by
// fragment-stripped URL) keep the first occurrence.
func DecodeAssets(data []byte) ([]models.Asset, int, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("probe result is not a JSON array: %w", err)
	}

	assets := make([]models.Asset, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	skipped := 0
	for _, entry := range raw {
		var a models.Asset
		if err := json.Unmarshal(entry, &a); err != nil {
			skipped++
			continue
		}
		if _, dup := seen[a.URL]; dup {
			continue
		}
		seen[a.URL] = struct{}{}
		assets = append(assets, a)
	}
	return assets, skipped, nil
}
