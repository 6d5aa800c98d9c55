package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridingcast/internal/normalize"
	"github.com/ridingcast/internal/party"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		opts Options
		want []normalize.Row
	}{
		{
			name: "comma",
			data: []byte("id,name\n1,Avalon\n2,Bonavista\n"),
			want: []normalize.Row{
				{"id": "1", "name": "Avalon"},
				{"id": "2", "name": "Bonavista"},
			},
		},
		{
			name: "utf-8 bom and semicolons",
			data: append([]byte{0xEF, 0xBB, 0xBF}, []byte("id;name\n1;Québec\n")...),
			want: []normalize.Row{{"id": "1", "name": "Québec"}},
		},
		{
			name: "latin1 tab separated",
			data: []byte("id\tname\n1\tQu\xe9bec\n"),
			opts: Options{Encoding: EncodingLatin1},
			want: []normalize.Row{{"id": "1", "name": "Québec"}},
		},
		{
			name: "utf-8 bom on latin1 data",
			data: append([]byte{0xEF, 0xBB, 0xBF}, []byte("id,name\n1,Qu\xe9bec\n")...),
			opts: Options{Encoding: EncodingLatin1},
			want: []normalize.Row{{"id": "1", "name": "Québec"}},
		},
		{
			name: "utf-8 bom on windows-1252 data",
			data: append([]byte{0xEF, 0xBB, 0xBF}, []byte("id,name\n1,Montr\xe9al\n")...),
			opts: Options{Encoding: EncodingWin1252},
			want: []normalize.Row{{"id": "1", "name": "Montréal"}},
		},
		{
			name: "short row padded",
			data: []byte("id,name,count\n1,Avalon\n"),
			want: []normalize.Row{{"id": "1", "name": "Avalon", "count": ""}},
		},
		{
			name: "header trimmed",
			data: []byte(" id , name\n1,x\n"),
			want: []normalize.Row{{"id": "1", "name": "x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "in.csv", tt.data)
			got, err := ReadCSV(path, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "absent.csv"), Options{})
	assert.Error(t, err)

	path := writeFile(t, "in.csv", []byte("a\n1\n"))
	_, err = ReadCSV(path, Options{Encoding: "ebcdic"})
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestEachReaderStopsOnCallbackError(t *testing.T) {
	seen := 0
	err := EachReader(strings.NewReader("a\n1\n2\n3\n"), Options{}, func(normalize.Row) error {
		seen++
		if seen == 2 {
			return assert.AnError
		}
		return nil
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 2, seen)
}

func TestReadWeights(t *testing.T) {
	path := writeFile(t, "weights.csv", []byte("new_id,old_id,weight\nN1,O1,0.6\nN1,O2,0.25\nN2,O1,0.4\nN1,O2,0.25\n"))
	w, err := ReadWeights(path, DefaultWeightColumns(), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"N1", "N2"}, w.NewIDs())
	assert.InDelta(t, 0.6, w["N1"]["O1"], 1e-12)
	assert.InDelta(t, 0.5, w["N1"]["O2"], 1e-12)
	assert.InDelta(t, 0.4, w["N2"]["O1"], 1e-12)
}

func TestReadWeightsBadValue(t *testing.T) {
	path := writeFile(t, "weights.csv", []byte("new_id,old_id,weight\nN1,O1,lots\n"))
	_, err := ReadWeights(path, DefaultWeightColumns(), Options{})
	assert.ErrorContains(t, err, "line 2")
}

func TestReadPolls(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
		want party.Shares
	}{
		{
			name: "yaml fractions with residual other",
			file: "polls.yaml",
			data: "LIB: 0.3\nCON: 0.4\nNDP: 0.15\nGRN: 0.05\nBQ: 0.07\n",
			want: party.Shares{party.LIB: 0.3, party.CON: 0.4, party.NDP: 0.15, party.GRN: 0.05, party.BQ: 0.07, party.OTH: 0.03},
		},
		{
			name: "yaml percentages and party names",
			file: "polls.yml",
			data: "Liberal: 30\nConservative: 40\nNew Democratic Party: 15\nGreen Party: 5\nBloc Québécois: 7\nOTH: 3\n",
			want: party.Shares{party.LIB: 0.3, party.CON: 0.4, party.NDP: 0.15, party.GRN: 0.05, party.BQ: 0.07, party.OTH: 0.03},
		},
		{
			name: "csv",
			file: "polls.csv",
			data: "party,share\nLIB,30\nCON,40\nNDP,15\nGRN,5\nBQ,7\nPeople's Party,3\n",
			want: party.Shares{party.LIB: 0.3, party.CON: 0.4, party.NDP: 0.15, party.GRN: 0.05, party.BQ: 0.07, party.OTH: 0.03},
		},
		{
			name: "named other is kept over the residual",
			file: "polls.yaml",
			data: "Liberal: 30\nConservative: 40\nNDP: 10\nGRN: 5\nOther: 10\n",
			want: party.Shares{party.LIB: 0.3, party.CON: 0.4, party.NDP: 0.1, party.GRN: 0.05, party.BQ: 0, party.OTH: 0.1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadPolls(writeFile(t, tt.file, []byte(tt.data)))
			require.NoError(t, err)
			require.Len(t, got, len(party.All))
			for _, c := range party.All {
				assert.InDelta(t, tt.want[c], got[c], 1e-9, string(c))
			}
		})
	}
}

func TestReadPollsUnsupported(t *testing.T) {
	_, err := ReadPolls(writeFile(t, "polls.json", []byte("{}")))
	assert.ErrorContains(t, err, "unsupported polls file")

	_, err = ReadPolls(writeFile(t, "polls.yaml", []byte("{}\n")))
	assert.ErrorContains(t, err, "no entries")
}
