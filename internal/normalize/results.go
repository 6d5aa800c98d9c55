package normalize

import (
	"strings"

	"github.com/ridingcast/internal/debug"
	"github.com/ridingcast/internal/election"
	"github.com/ridingcast/internal/party"
)

// ResultColumns names the fields of a per-candidate district results table.
type ResultColumns struct {
	District       string `yaml:"district"`
	Candidate      string `yaml:"candidate"`
	VotePercent    string `yaml:"vote_percent"`
	MajorityMargin string `yaml:"majority_percent"`
}

// DefaultResultColumns matches the Elections Canada "table 12" export
// (candidate results by district) as decoded from UTF-8.
func DefaultResultColumns() ResultColumns {
	return ResultColumns{
		District:       "Electoral District Number/Numéro de circonscription",
		Candidate:      "Candidate/Candidat",
		VotePercent:    "Percentage of Votes Obtained /Pourcentage des votes obtenus",
		MajorityMargin: "Majority Percentage/Pourcentage de majorité",
	}
}

// NationalColumns names the fields of a national party totals table.
type NationalColumns struct {
	Party string `yaml:"party"`
	Total string `yaml:"total"`
}

// DefaultNationalColumns matches the Elections Canada "table 9" export.
func DefaultNationalColumns() NationalColumns {
	return NationalColumns{
		Party: "Political affiliation/Appartenance politique",
		Total: "Total",
	}
}

type resultBuilder struct {
	shares party.Shares
	winner party.Code
}

// ResultNormalizer folds candidate rows into one result per district.
// Same-party candidates in a district are summed. The winner is taken from
// the first row carrying a majority figure and is never overwritten.
type ResultNormalizer struct {
	Columns ResultColumns
	Stats   Stats

	localDebug bool
	order      []string
	builders   map[string]*resultBuilder
}

// NewResultNormalizer creates an empty district result normalizer.
func NewResultNormalizer(cols ResultColumns, localDebug bool) *ResultNormalizer {
	return &ResultNormalizer{
		Columns:    cols,
		localDebug: localDebug,
		builders:   make(map[string]*resultBuilder),
	}
}

// Add folds one candidate row in.
func (n *ResultNormalizer) Add(row Row) error {
	n.Stats.Rows++

	districtID, err := field(row, n.Columns.District)
	if err != nil {
		return err
	}
	candidate, err := field(row, n.Columns.Candidate)
	if err != nil {
		return err
	}
	rawPct, err := field(row, n.Columns.VotePercent)
	if err != nil {
		return err
	}
	margin, err := field(row, n.Columns.MajorityMargin)
	if err != nil {
		return err
	}

	districtID = strings.TrimSpace(districtID)
	b, ok := n.builders[districtID]
	if !ok {
		b = &resultBuilder{shares: party.NewShares()}
		n.builders[districtID] = b
		n.order = append(n.order, districtID)
	}
	n.Stats.Matched++

	code := party.Parse(candidate)
	if strings.TrimSpace(margin) != "" && b.winner == "" {
		b.winner = code
	}

	pct := MakeNumeric(rawPct)
	if IsMissing(pct) {
		n.Stats.Coerced++
		debug.DebugOutput(n.localDebug, "District %s: unparsable vote percentage %q for %q", districtID, rawPct, candidate)
		return nil
	}
	b.shares[code] += pct / 100
	return nil
}

// Finalize emits one result per district in first-seen order.
func (n *ResultNormalizer) Finalize() []election.DistrictResult {
	out := make([]election.DistrictResult, 0, len(n.order))
	for _, id := range n.order {
		b := n.builders[id]
		out = append(out, election.DistrictResult{
			DistrictID: id,
			Shares:     b.shares.Clone(),
			Winner:     b.winner,
		})
	}
	return out
}

// NormalizeResults runs every row through a ResultNormalizer.
func NormalizeResults(rows []Row, cols ResultColumns) ([]election.DistrictResult, Stats, error) {
	n := NewResultNormalizer(cols, false)
	for _, row := range rows {
		if err := n.Add(row); err != nil {
			return nil, n.Stats, err
		}
	}
	return n.Finalize(), n.Stats, nil
}

// NormalizeNational sums national party totals into one share vector.
func NormalizeNational(rows []Row, cols NationalColumns) (party.Shares, Stats, error) {
	var stats Stats
	shares := party.NewShares()
	for _, row := range rows {
		stats.Rows++
		name, err := field(row, cols.Party)
		if err != nil {
			return nil, stats, err
		}
		raw, err := field(row, cols.Total)
		if err != nil {
			return nil, stats, err
		}
		pct := MakeNumeric(raw)
		if IsMissing(pct) {
			stats.Coerced++
			continue
		}
		stats.Matched++
		shares[party.Parse(name)] += pct / 100
	}
	return shares, stats, nil
}
