package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"gonum.org/v1/gonum/mat"

	"github.com/ridingcast/internal/pipeline"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	bestColor   = color.New(color.FgGreen, color.Bold)
	dimColor    = color.New(color.Faint)
	warnColor   = color.New(color.FgYellow)
)

func printPrune(w io.Writer, src *pipeline.Sources, showKept bool) {
	headerColor.Fprintf(w, "Census characteristics: %d kept, %d dropped over %d districts\n", len(src.Census.Columns), len(src.Dropped), len(src.Districts))
	if showKept {
		for _, col := range src.Census.Columns {
			fmt.Fprintf(w, "  %-8s %s\n", col, src.Features[col])
		}
	}
	for _, col := range src.Dropped {
		dimColor.Fprintf(w, "  - %-6s %s\n", col, src.Features[col])
	}
}

func printRankings(w io.Writer, tr *pipeline.TrainResult, verbose bool) {
	headerColor.Fprintf(w, "\n%-4s %-8s %8s %8s %10s\n", "RANK", "MODEL", "TEST F1", "TRAIN F1", "TIME")
	for i, r := range tr.Rankings {
		train := "-"
		if verbose {
			train = fmt.Sprintf("%.4f", r.TrainF1)
		}
		line := fmt.Sprintf("%-4d %-8s %8.4f %8s %10s", i+1, r.Name, r.TestF1, train, r.Elapsed.Round(time.Millisecond))
		if i == 0 {
			bestColor.Fprintln(w, line)
		} else {
			fmt.Fprintln(w, line)
		}
		if verbose && r.TestCM != nil {
			dimColor.Fprintf(w, "     labels %s\n", strings.Join(r.Labels, " "))
			fmt.Fprintf(w, "%v\n", mat.Formatted(r.TestCM, mat.Prefix("     "), mat.Squeeze()))
		}
	}
	fmt.Fprintf(w, "\n%d rows from %d year pairs (%d before census join)\n", tr.Dataset.Len(), len(tr.Groups), tr.PreJoin)
}

func printFeatures(w io.Writer, names []string) {
	headerColor.Fprintf(w, "\nSelected features (%d)\n", len(names))
	for _, n := range names {
		fmt.Fprintf(w, "  %s\n", n)
	}
}

func printForecast(w io.Writer, model string, fc *pipeline.Forecast) {
	scope := "current districts"
	if fc.Redistricted {
		scope = "new districts"
	}
	headerColor.Fprintf(w, "\nForecast by %s over %d %s\n", model, len(fc.Districts), scope)
	order := fc.SeatOrder()
	for i, p := range order {
		line := fmt.Sprintf("  %-4s %4d", p, fc.Seats[p])
		if i == 0 {
			bestColor.Fprintln(w, line)
		} else {
			fmt.Fprintln(w, line)
		}
	}
	majority := len(fc.Districts)/2 + 1
	if len(order) > 0 && fc.Seats[order[0]] < majority {
		warnColor.Fprintf(w, "  no majority (%d needed)\n", majority)
	}
}

// printDistricts lists each district's winner. Names are only known for
// current districts; redistricted ids print alone.
func printDistricts(w io.Writer, fc *pipeline.Forecast, names map[string]string) {
	for i, id := range fc.Districts {
		name := ""
		if !fc.Redistricted {
			name = names[id]
		}
		fmt.Fprintf(w, "  %-8s %-4s %s\n", id, fc.Winners[i], name)
	}
}
