package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridingcast/internal/election"
	"github.com/ridingcast/internal/frame"
	"github.com/ridingcast/internal/party"
)

func shares(lib, con, ndp, grn, bq, oth float64) party.Shares {
	return party.Shares{party.LIB: lib, party.CON: con, party.NDP: ndp, party.GRN: grn, party.BQ: bq, party.OTH: oth}
}

func fixture() Inputs {
	y2019 := election.ToFrame([]election.DistrictResult{
		{DistrictID: "A", Shares: shares(0.5, 0.3, 0.1, 0.05, 0.02, 0.03), Winner: party.LIB},
		{DistrictID: "B", Shares: shares(0.2, 0.6, 0.1, 0.05, 0.02, 0.03), Winner: party.CON},
		{DistrictID: "C", Shares: shares(0.3, 0.3, 0.3, 0.05, 0.02, 0.03), Winner: party.NDP},
	})
	y2021 := election.ToFrame([]election.DistrictResult{
		{DistrictID: "A", Shares: shares(0.45, 0.35, 0.1, 0.05, 0.02, 0.03), Winner: party.LIB},
		{DistrictID: "B", Shares: shares(0.25, 0.55, 0.1, 0.05, 0.02, 0.03), Winner: party.CON},
		{DistrictID: "D", Shares: shares(0.1, 0.1, 0.1, 0.1, 0.5, 0.1), Winner: party.BQ},
	})

	census := frame.New([]string{"1", "2"})
	census.Append("A", []float64{1, 10})
	census.Append("B", []float64{2, 20})
	census.Append("D", []float64{4, 40})

	return Inputs{
		Census:  census,
		Results: map[int]*frame.Frame{2019: y2019, 2021: y2021},
		National: map[int]party.Shares{
			2019: shares(0.33, 0.34, 0.16, 0.065, 0.076, 0.029),
			2021: shares(0.326, 0.337, 0.178, 0.05, 0.076, 0.033),
		},
	}
}

func TestBuildPairGroups(t *testing.T) {
	tests := []struct {
		name       string
		self       bool
		wantGroups []PairGroup
	}{
		{
			name: "self pairing",
			self: true,
			wantGroups: []PairGroup{
				{Target: 2019, Source: 2019, Rows: 3},
				{Target: 2019, Source: 2021, Rows: 2},
				{Target: 2021, Source: 2019, Rows: 2},
				{Target: 2021, Source: 2021, Rows: 3},
			},
		},
		{
			name: "other years only",
			self: false,
			wantGroups: []PairGroup{
				{Target: 2019, Source: 2021, Rows: 2},
				{Target: 2021, Source: 2019, Rows: 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Build(fixture(), Options{SelfPairing: tt.self})
			require.NoError(t, err)
			assert.Equal(t, tt.wantGroups, res.Groups)

			total := 0
			for _, g := range res.Groups {
				total += g.Rows
			}
			assert.Equal(t, total, res.PreJoin)
			assert.LessOrEqual(t, res.Dataset.Len(), res.PreJoin)
		})
	}
}

func TestBuildRowsAndColumns(t *testing.T) {
	res, err := Build(fixture(), DefaultOptions())
	require.NoError(t, err)

	ds := res.Dataset
	assert.Equal(t, []string{"LIB", "CON", "NDP", "GRN", "BQ", "OTH", "1", "2"}, ds.Columns)
	// C has no census record and is dropped by the inner join
	assert.Equal(t, 9, ds.Len())
	assert.NotContains(t, ds.IDs, "C")
	assert.Equal(t, res.PreJoin-1, ds.Len())

	// target 2019, source 2019: district A unchanged except OTH recomputed
	assert.Equal(t, "A", ds.IDs[0])
	assert.Equal(t, "LIB", ds.Labels[0])
	assert.InDelta(t, 0.5, ds.Data[0][0], 1e-12)
	assert.InDelta(t, 0.03, ds.Data[0][5], 1e-12)
	assert.Equal(t, 1.0, ds.Data[0][6])

	// every row's shares add to one after the residual is recomputed
	for _, row := range ds.Data {
		sum := 0.0
		for _, v := range row[:6] {
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestBuildCrossYearValues(t *testing.T) {
	in := fixture()
	res, err := Build(in, DefaultOptions())
	require.NoError(t, err)

	// rows for target 2021 from source 2019 follow the 2019/2019 (A,B) and
	// 2019/2021 (A,B) groups
	ds := res.Dataset
	i := 4
	require.Equal(t, "A", ds.IDs[i])
	want := 0.5 / 0.33 * 0.326
	assert.InDelta(t, want, ds.Data[i][0], 1e-12)
	assert.Equal(t, "LIB", ds.Labels[i])
}

func TestBuildDoesNotMutateInputs(t *testing.T) {
	in := fixture()
	before := in.Results[2019].Clone()
	_, err := Build(in, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, before, in.Results[2019])
}

func TestBuildEmpty(t *testing.T) {
	in := fixture()
	in.Census = frame.New([]string{"1"})
	in.Census.Append("Z", []float64{1})
	_, err := Build(in, DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = Build(Inputs{}, DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestBuildMissingNational(t *testing.T) {
	in := fixture()
	delete(in.National, 2021)
	_, err := Build(in, DefaultOptions())
	assert.ErrorContains(t, err, "no national totals for 2021")
}

func TestProjectPolling(t *testing.T) {
	in := fixture()
	polls := shares(0.3, 0.4, 0.15, 0.05, 0.07, 0.03)
	out, err := ProjectPolling(in.Census, in.Results[2021], in.National[2021], polls)
	require.NoError(t, err)

	assert.False(t, out.HasLabels())
	assert.Equal(t, []string{"A", "B", "D"}, out.IDs)
	assert.InDelta(t, 0.45/0.326*0.3, out.Data[0][0], 1e-12)
}

func twoPartyInputs(oth1, oth2 float64) Inputs {
	year1 := election.ToFrame([]election.DistrictResult{
		{DistrictID: "A", Shares: shares(0.5, 0.3, 0, 0, 0, 0.2), Winner: party.LIB},
		{DistrictID: "B", Shares: shares(0.3, 0.5, 0, 0, 0, 0.2), Winner: party.CON},
		{DistrictID: "C", Shares: shares(0.4, 0.4, 0, 0, 0, 0.2), Winner: party.LIB},
	})
	year2 := election.ToFrame([]election.DistrictResult{
		{DistrictID: "A", Shares: shares(0.6, 0.3, 0, 0, 0, 0.1), Winner: party.LIB},
		{DistrictID: "B", Shares: shares(0.2, 0.7, 0, 0, 0, 0.1), Winner: party.CON},
		{DistrictID: "C", Shares: shares(0.5, 0.4, 0, 0, 0, 0.1), Winner: party.LIB},
	})
	return Inputs{
		Results: map[int]*frame.Frame{1: year1, 2: year2},
		National: map[int]party.Shares{
			1: shares(0.4, 0.4, 0, 0, 0, oth1),
			2: shares(0.6, 0.2, 0, 0, 0, oth2),
		},
	}
}

func TestBuildTwoPartyScenario(t *testing.T) {
	res, err := Build(twoPartyInputs(0.2, 0.2), Options{SelfPairing: false})
	require.NoError(t, err)
	require.Equal(t, []PairGroup{{Target: 1, Source: 2, Rows: 3}, {Target: 2, Source: 1, Rows: 3}}, res.Groups)

	ds := res.Dataset
	lib, con, oth := ds.ColumnIndex("LIB"), ds.ColumnIndex("CON"), ds.ColumnIndex("OTH")
	// target 2 rows follow the three target 1 rows
	a := ds.Data[3]
	assert.Equal(t, "A", ds.IDs[3])
	assert.Equal(t, "LIB", ds.Labels[3])
	assert.InDelta(t, 0.75, a[lib], 1e-12)
	assert.InDelta(t, 0.15, a[con], 1e-12)
	assert.InDelta(t, 0.1, a[oth], 1e-12)
	for _, c := range []string{"NDP", "GRN", "BQ"} {
		assert.Zero(t, a[ds.ColumnIndex(c)], c)
	}
}

func TestBuildZeroNationalOther(t *testing.T) {
	res, err := Build(twoPartyInputs(0, 0), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 12, res.Dataset.Len())
	assert.False(t, res.Dataset.HasNaN())

	_, err = ProjectPolling(nil, twoPartyInputs(0, 0).Results[2], shares(0.6, 0.2, 0, 0, 0, 0), shares(0.5, 0.3, 0, 0, 0, 0.2))
	require.NoError(t, err)
}
