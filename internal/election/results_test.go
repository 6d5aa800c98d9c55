package election

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ridingcast/internal/party"
)

func TestToFrame(t *testing.T) {
	results := []DistrictResult{
		{DistrictID: "10001", Shares: party.Shares{party.LIB: 0.5, party.CON: 0.3, party.OTH: 0.2}, Winner: party.LIB},
		{DistrictID: "10002", Shares: party.Shares{party.NDP: 0.6, party.BQ: 0.4}},
	}

	f := ToFrame(results)
	assert.Equal(t, party.Columns(), f.Columns)
	assert.Equal(t, []string{"LIB", ""}, f.Labels)
	assert.Equal(t, []float64{0.5, 0.3, 0, 0, 0, 0.2}, f.Data[0])
	assert.Equal(t, []float64{0, 0, 0.6, 0, 0.4, 0}, f.Data[1])

	assert.Equal(t, map[string]party.Code{"10001": party.LIB}, Winners(results))
}
