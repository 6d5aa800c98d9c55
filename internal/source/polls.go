package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ridingcast/internal/normalize"
	"github.com/ridingcast/internal/party"
)

// ReadPolls loads a national polling snapshot from YAML (a party to share
// mapping) or CSV (party and share columns). Party keys may be codes or full
// names; unknown names count as OTH. If any share exceeds 1 the whole file
// is read as percentages. When no key maps to OTH it takes the residual of
// the named parties.
func ReadPolls(path string) (party.Shares, error) {
	var raw map[string]float64
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err = readPollsYAML(path)
	case ".csv":
		raw, err = readPollsCSV(path)
	default:
		return nil, fmt.Errorf("unsupported polls file %s: want .yaml, .yml or .csv", path)
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("polls file %s has no entries", path)
	}
	return pollShares(raw), nil
}

func readPollsYAML(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var raw map[string]float64
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return raw, nil
}

func readPollsCSV(path string) (map[string]float64, error) {
	raw := make(map[string]float64)
	err := Each(path, Options{}, func(row normalize.Row) error {
		name := strings.TrimSpace(row["party"])
		v, err := strconv.ParseFloat(strings.TrimSpace(row["share"]), 64)
		if err != nil {
			return fmt.Errorf("invalid share for %q: %w", name, err)
		}
		raw[name] += v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func pollShares(raw map[string]float64) party.Shares {
	scale := 1.0
	for _, v := range raw {
		if v > 1 {
			scale = 100
			break
		}
	}

	shares := party.NewShares()
	explicitOther := false
	for name, v := range raw {
		code := party.Code(strings.ToUpper(strings.TrimSpace(name)))
		if _, known := shares[code]; !known {
			code = party.Parse(name)
		}
		if code == party.OTH {
			explicitOther = true
		}
		shares[code] += v / scale
	}

	if !explicitOther {
		named := 0.0
		for _, c := range party.Named {
			named += shares[c]
		}
		shares[party.OTH] = max(0, 1-named)
	}
	return shares
}
