package election

import (
	"github.com/ridingcast/internal/frame"
	"github.com/ridingcast/internal/party"
)

// DistrictResult is one district's vote shares for one election year.
type DistrictResult struct {
	DistrictID string
	Shares     party.Shares
	Winner     party.Code // empty when no majority row was seen
}

// ToFrame lays results out as a labelled frame: one row per district,
// columns in party schema order, label = winner.
func ToFrame(results []DistrictResult) *frame.Frame {
	f := frame.NewLabelled(party.Columns())
	for _, r := range results {
		row := make([]float64, len(party.All))
		for i, c := range party.All {
			row[i] = r.Shares[c]
		}
		f.AppendLabelled(r.DistrictID, row, string(r.Winner))
	}
	return f
}

// Winners returns district id to winner for districts with a known winner.
func Winners(results []DistrictResult) map[string]party.Code {
	out := make(map[string]party.Code, len(results))
	for _, r := range results {
		if r.Winner != "" {
			out[r.DistrictID] = r.Winner
		}
	}
	return out
}
