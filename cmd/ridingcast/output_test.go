package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/ridingcast/internal/frame"
	"github.com/ridingcast/internal/pipeline"
)

func TestPrintForecast(t *testing.T) {
	color.NoColor = true
	fc := &pipeline.Forecast{
		Districts: []string{"1", "2", "3", "4"},
		Winners:   []string{"LIB", "CON", "LIB", "NDP"},
		Seats:     map[string]int{"LIB": 2, "CON": 1, "NDP": 1},
	}
	var buf bytes.Buffer
	printForecast(&buf, "rf", fc)

	out := buf.String()
	assert.Contains(t, out, "Forecast by rf over 4 current districts")
	assert.Regexp(t, `(?s)LIB\s+2.*CON\s+1.*NDP\s+1`, out)
	assert.Contains(t, out, "no majority (3 needed)")
}

func TestPrintPrune(t *testing.T) {
	color.NoColor = true
	src := &pipeline.Sources{
		Census:   frame.New([]string{"100"}),
		Features: map[string]string{"100": "Population"},
		Dropped:  []string{"200", "300"},
	}
	var buf bytes.Buffer
	printPrune(&buf, src, true)

	out := buf.String()
	assert.Contains(t, out, "1 kept, 2 dropped")
	assert.Contains(t, out, "Population")
	assert.Contains(t, out, "- 200")
}

func TestPrintDistricts(t *testing.T) {
	fc := &pipeline.Forecast{Districts: []string{"10001", "10002"}, Winners: []string{"LIB", "CON"}}
	names := map[string]string{"10001": "Avalon", "10002": "Bonavista"}

	var buf bytes.Buffer
	printDistricts(&buf, fc, names)
	assert.Regexp(t, `10001\s+LIB\s+Avalon`, buf.String())
	assert.Regexp(t, `10002\s+CON\s+Bonavista`, buf.String())

	buf.Reset()
	fc.Redistricted = true
	printDistricts(&buf, fc, names)
	assert.NotContains(t, buf.String(), "Avalon")
}
