// Command validate performs end-to-end integrity checks on the ETL's output
// CSVs: the corrected field survey and the pivoted station means. It verifies
// column presence, the correction invariants (non-negative elevation,
// canonical crop labels), and recomputes the station means from the raw
// weather messages to confirm the aggregation.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -survey data/out/field_survey.csv \
//	  -means data/out/station_means.csv \
//	  -weather-csv data/fixtures/weather_station_data.csv \
//	  -pipeline config/pipeline.yaml
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/farm-survey-etl/internal/config"
	"github.com/couchcryptid/farm-survey-etl/internal/domain"
	"github.com/couchcryptid/farm-survey-etl/internal/frame"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	survey := flag.String("survey", "", "path to the corrected survey CSV")
	means := flag.String("means", "", "path to the station means CSV")
	weatherCSV := flag.String("weather-csv", "", "path to the raw weather message CSV")
	pipelineFile := flag.String("pipeline", "config/pipeline.yaml", "path to the pipeline YAML")
	flag.Parse()

	if *survey == "" || *means == "" || *weatherCSV == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*survey, *means, *weatherCSV, *pipelineFile))
}

func run(surveyPath, meansPath, weatherPath, pipelinePath string) int {
	cfg, err := config.LoadPipeline(pipelinePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	fmt.Println("=== Farm Survey Output Validation ===")
	fmt.Println()

	surveyRows, surveyHeader, err := loadCSV(surveyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load survey CSV: %v\n", err)
		return 1
	}
	meansRows, meansHeader, err := loadCSV(meansPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load means CSV: %v\n", err)
		return 1
	}
	weatherRows, _, err := loadCSV(weatherPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load weather CSV: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateSurveyShape(surveyHeader, surveyRows, cfg),
		validateCorrections(surveyRows, cfg),
		validateMeans(meansHeader, meansRows, weatherRows, cfg),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d survey rows, %d station rows, %d weather messages\n",
		len(surveyRows), len(meansRows), len(weatherRows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// csvRow is a parsed CSV row with field values keyed by header name.
type csvRow struct {
	lineNum int
	fields  map[string]string
}

func loadCSV(path string) ([]csvRow, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) < 2 {
		return nil, nil, fmt.Errorf("no data rows in %s", path)
	}

	header := all[0]
	var rows []csvRow
	for i, row := range all[1:] {
		fields := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(row) {
				fields[h] = row[j]
			}
		}
		rows = append(rows, csvRow{lineNum: i + 2, fields: fields})
	}
	return rows, header, nil
}

// ── Phase 1: Survey Shape ──
// The corrected survey must carry the swapped pair, the correction targets,
// and the joined station column, and must not carry the export index column.

func validateSurveyShape(header []string, rows []csvRow, cfg *config.Pipeline) *phase {
	p := &phase{name: "Phase 1: Survey Shape"}

	cols := map[string]bool{}
	for _, h := range header {
		cols[h] = true
	}

	required := []string{
		cfg.JoinKey, cfg.CropColumn, cfg.ElevationColumn,
		cfg.SwapColumns[0], cfg.SwapColumns[1],
		domain.ColStation,
	}
	for _, c := range required {
		if !cols[c] {
			p.errorf("missing column %q", c)
		}
	}
	if cols["Unnamed: 0"] {
		p.errorf("export index column %q was not dropped", "Unnamed: 0")
	}
	if len(rows) == 0 {
		p.errorf("survey has no rows")
	}
	return p
}

// ── Phase 2: Corrections ──
// Every elevation is non-negative and no crop label is a known alias or
// carries stray whitespace.

func validateCorrections(rows []csvRow, cfg *config.Pipeline) *phase {
	p := &phase{name: "Phase 2: Corrections"}

	for _, row := range rows {
		elev := row.fields[cfg.ElevationColumn]
		if elev != "" {
			n, err := strconv.ParseFloat(elev, 64)
			if err != nil {
				p.errorf("line %d: elevation %q is not numeric", row.lineNum, elev)
			} else if n < 0 {
				p.errorf("line %d: elevation %g is negative", row.lineNum, n)
			}
		}

		crop := row.fields[cfg.CropColumn]
		if crop != strings.TrimSpace(crop) {
			p.errorf("line %d: crop %q carries surrounding whitespace", row.lineNum, crop)
		}
		if _, isAlias := cfg.CropAliases[crop]; isAlias {
			p.errorf("line %d: crop %q is an uncorrected alias", row.lineNum, crop)
		}

		// The repaired columns must hold the right shapes: a numeric yield
		// and a textual crop.
		yield := row.fields[cfg.SwapColumns[0]]
		if yield != "" {
			if _, err := strconv.ParseFloat(yield, 64); err != nil {
				p.errorf("line %d: %s %q is not numeric; columns may still be swapped",
					row.lineNum, cfg.SwapColumns[0], yield)
			}
		}
	}
	return p
}

// ── Phase 3: Means Recompute ──
// Re-runs extraction and aggregation over the raw messages and compares every
// populated cell of the pivoted output.

func validateMeans(header []string, rows []csvRow, weather []csvRow, cfg *config.Pipeline) *phase {
	p := &phase{name: "Phase 3: Means Recompute"}

	patterns := make([]domain.Pattern, 0, len(cfg.Patterns))
	for _, spec := range cfg.Patterns {
		pat, err := domain.CompilePattern(spec.Measurement, spec.Regex)
		if err != nil {
			p.errorf("%v", err)
			return p
		}
		patterns = append(patterns, pat)
	}

	expected, err := recomputeMeans(weather, patterns)
	if err != nil {
		p.errorf("recompute means: %v", err)
		return p
	}

	if len(header) == 0 || header[0] != domain.ColStation {
		p.errorf("first column is %v, want %q", header, domain.ColStation)
		return p
	}
	kinds := header[1:]

	seen := map[string]bool{}
	for _, row := range rows {
		station := row.fields[domain.ColStation]
		seen[station] = true
		for _, kind := range kinds {
			got := row.fields[kind]
			want, ok := expected.Mean(station, kind)
			if !ok {
				if got != "" {
					p.errorf("line %d: %s/%s is %q, want empty (no observations)", row.lineNum, station, kind, got)
				}
				continue
			}
			if got == "" {
				p.errorf("line %d: %s/%s is empty, want %g", row.lineNum, station, kind, want)
				continue
			}
			n, err := strconv.ParseFloat(got, 64)
			if err != nil {
				p.errorf("line %d: %s/%s %q is not numeric", row.lineNum, station, kind, got)
			} else if math.Abs(n-want) > 1e-9 {
				p.errorf("line %d: %s/%s: got %g, want %g", row.lineNum, station, kind, n, want)
			}
		}
	}

	for _, station := range expected.Stations() {
		if !seen[station] {
			p.errorf("station %s missing from output", station)
		}
	}
	return p
}

func recomputeMeans(weather []csvRow, patterns []domain.Pattern) (*domain.StationMeans, error) {
	f, err := frame.New(domain.ColStation, domain.ColMessage)
	if err != nil {
		return nil, err
	}
	for _, row := range weather {
		if err := f.AppendRow(row.fields[domain.ColStation], row.fields[domain.ColMessage]); err != nil {
			return nil, err
		}
	}
	if err := domain.ProcessMessages(f, patterns); err != nil {
		return nil, err
	}
	return domain.AggregateMeans(f)
}
