package normalize

import (
	"strconv"
	"strings"

	"github.com/ridingcast/internal/census"
	"github.com/ridingcast/internal/debug"
)

// CensusColumns names the fields of a census characteristics table.
type CensusColumns struct {
	GeoID              string `yaml:"geo_id"`
	GUID               string `yaml:"guid"`
	GeoName            string `yaml:"geo_name"`
	GeoLevel           string `yaml:"geo_level"`
	CharacteristicID   string `yaml:"characteristic_id"`
	CharacteristicName string `yaml:"characteristic_name"`
	Count              string `yaml:"count"`
}

// DefaultCensusColumns matches the 2021 census profile CSV export.
func DefaultCensusColumns() CensusColumns {
	return CensusColumns{
		GeoID:              "ALT_GEO_CODE",
		GUID:               "DGUID",
		GeoName:            "GEO_NAME",
		GeoLevel:           "GEO_LEVEL",
		CharacteristicID:   "CHARACTERISTIC_ID",
		CharacteristicName: "CHARACTERISTIC_NAME",
		Count:              "C1_COUNT_TOTAL",
	}
}

// CensusNormalizer folds census rows into one record per district. Only
// rows whose geography level contains GeoLevel are kept.
type CensusNormalizer struct {
	Columns  CensusColumns
	GeoLevel string
	Stats    Stats

	localDebug bool
	order      []string
	records    map[string]*census.Record
	names      map[int]string
}

// NewCensusNormalizer creates a normalizer for the given geography level,
// e.g. "Federal electoral district".
func NewCensusNormalizer(cols CensusColumns, geoLevel string, localDebug bool) *CensusNormalizer {
	return &CensusNormalizer{
		Columns:    cols,
		GeoLevel:   geoLevel,
		localDebug: localDebug,
		records:    make(map[string]*census.Record),
		names:      make(map[int]string),
	}
}

// Add folds one row in. It fails only when a configured column is absent.
func (n *CensusNormalizer) Add(row Row) error {
	n.Stats.Rows++

	level, err := field(row, n.Columns.GeoLevel)
	if err != nil {
		return err
	}
	if !strings.Contains(level, n.GeoLevel) {
		return nil
	}

	var vals [6]string
	for i, col := range []string{
		n.Columns.GeoID, n.Columns.GUID, n.Columns.GeoName,
		n.Columns.CharacteristicID, n.Columns.CharacteristicName, n.Columns.Count,
	} {
		if vals[i], err = field(row, col); err != nil {
			return err
		}
	}
	districtID, guid, name, rawFieldID, fieldName, value := strings.TrimSpace(vals[0]), vals[1], vals[2], vals[3], vals[4], vals[5]

	fieldID, err := strconv.Atoi(strings.TrimSpace(rawFieldID))
	if err != nil {
		n.Stats.Skipped++
		debug.DebugOutput(n.localDebug, "Skipping census row with characteristic id %q", rawFieldID)
		return nil
	}
	n.Stats.Matched++

	if _, ok := n.names[fieldID]; !ok {
		n.names[fieldID] = strings.TrimSpace(fieldName)
	}

	rec, ok := n.records[districtID]
	if !ok {
		rec = &census.Record{
			DistrictID:      districtID,
			GUID:            guid,
			Name:            name,
			Characteristics: make(map[int]float64),
		}
		n.records[districtID] = rec
		n.order = append(n.order, districtID)
	}

	v := MakeNumeric(value)
	if IsMissing(v) {
		n.Stats.Coerced++
	}
	rec.Characteristics[fieldID] = v
	return nil
}

// Finalize emits the records in first-seen order.
func (n *CensusNormalizer) Finalize() *census.Dataset {
	ds := &census.Dataset{
		Records:         make([]census.Record, 0, len(n.order)),
		Characteristics: make(map[int]string, len(n.names)),
	}
	for id, name := range n.names {
		ds.Characteristics[id] = name
	}
	for _, id := range n.order {
		ds.Records = append(ds.Records, *n.records[id])
	}
	return ds
}

// NormalizeCensus runs every row through a CensusNormalizer.
func NormalizeCensus(rows []Row, cols CensusColumns, geoLevel string) (*census.Dataset, Stats, error) {
	n := NewCensusNormalizer(cols, geoLevel, false)
	for _, row := range rows {
		if err := n.Add(row); err != nil {
			return nil, n.Stats, err
		}
	}
	return n.Finalize(), n.Stats, nil
}
