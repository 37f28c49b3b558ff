// Command validate performs integrity checks on a prepared site-model table
// against the ground-condition files it was built from. It verifies table
// shape, that every row's vs30 comes from a point within the association
// cutoff, and that derived columns are consistent with the default depth
// relations.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -vs30 data/vs30_north.csv,data/vs30_south.csv \
//	  -model out/site_model.csv \
//	  -max-distance 5
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/site-model-etl/internal/domain"
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
	vs30Files := flag.String("vs30", "", "comma-separated ground-condition CSV files")
	modelPath := flag.String("model", "", "path to prepared site-model CSV")
	maxDistance := flag.Float64("max-distance", 5.0, "association cutoff in km the model was built with")
	defaultCurves := flag.Bool("default-curves", true, "check derived columns against the built-in depth relations")
	flag.Parse()

	if *vs30Files == "" || *modelPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(strings.Split(*vs30Files, ","), *modelPath, *maxDistance, *defaultCurves); code != 0 {
		os.Exit(code)
	}
}

func run(vs30Paths []string, modelPath string, maxDistanceKm float64, defaultCurves bool) int {
	fmt.Println("=== Site-Model Integrity Validation ===")
	fmt.Println()

	points, err := loadPoints(vs30Paths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load ground-condition files: %v\n", err)
		return 1
	}
	fmt.Printf("Loaded %d ground-condition points from %d file(s)\n", len(points), len(vs30Paths))

	table, err := loadModel(modelPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load site model: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateShape(table),
		validateProvenance(table, points, maxDistanceKm),
	}
	if defaultCurves {
		phases = append(phases, validateDerived(table))
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
	fmt.Printf("Records: %d site rows, %d ground-condition points\n", len(table.rows), len(points))

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

func loadPoints(paths []string) ([]domain.Point, error) {
	var points []domain.Point
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		r := csv.NewReader(f)
		r.FieldsPerRecord = 3
		r.TrimLeadingSpace = true
		rows, err := r.ReadAll()
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, row := range rows {
			lon, err1 := strconv.ParseFloat(row[0], 64)
			lat, err2 := strconv.ParseFloat(row[1], 64)
			vs30, err3 := strconv.ParseFloat(row[2], 64)
			if err1 != nil || err2 != nil || err3 != nil {
				return nil, fmt.Errorf("%s: non-numeric row %v", path, row)
			}
			points = append(points, domain.Point{
				Lon: lon, Lat: lat, Vs30: vs30,
				SourceFile: path, Seq: len(points),
			})
		}
	}
	return points, nil
}

// modelTable is a parsed site-model CSV: header plus raw rows.
type modelTable struct {
	header []string
	col    map[string]int
	rows   [][]string
}

func loadModel(path string) (*modelTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("empty table in %s", path)
	}

	t := &modelTable{header: all[0], col: map[string]int{}, rows: all[1:]}
	for i, h := range all[0] {
		t.col[h] = i
	}
	return t, nil
}

func (t *modelTable) float(row []string, name string) (float64, bool) {
	i, ok := t.col[name]
	if !ok || i >= len(row) {
		return 0, false
	}
	v, err := strconv.ParseFloat(row[i], 64)
	return v, err == nil
}

// ── Phase 1: Table Shape ──
// Header starts with lon,lat,vs30, optional columns appear in their fixed
// order, and every cell parses.

func validateShape(t *modelTable) *phase {
	p := &phase{name: "Phase 1: Table Shape (header and rows)"}

	want := []string{"lon", "lat", "vs30"}
	if len(t.header) < 3 {
		p.errorf("header has %d columns, expected at least 3", len(t.header))
		return p
	}
	for i, name := range want {
		if t.header[i] != name {
			p.errorf("header column %d is %q, expected %q", i, t.header[i], name)
		}
	}

	// Optional columns keep a fixed relative order.
	optional := []string{"z1pt0", "z2pt5", "vs30measured"}
	last := 2
	for _, name := range optional {
		i, ok := t.col[name]
		if !ok {
			continue
		}
		if i <= last {
			p.errorf("column %q out of order at position %d", name, i)
		}
		last = i
	}
	for _, h := range t.header[3:] {
		known := false
		for _, name := range optional {
			if h == name {
				known = true
			}
		}
		if !known {
			p.errorf("unexpected column %q", h)
		}
	}

	for i, row := range t.rows {
		if len(row) != len(t.header) {
			p.errorf("row %d has %d fields, header has %d", i+2, len(row), len(t.header))
			continue
		}
		for j, name := range t.header {
			if name == "vs30measured" {
				if row[j] != "0" && row[j] != "1" {
					p.errorf("row %d: vs30measured is %q, expected 0 or 1", i+2, row[j])
				}
				continue
			}
			if _, err := strconv.ParseFloat(row[j], 64); err != nil {
				p.errorf("row %d: column %q is not numeric: %q", i+2, name, row[j])
			}
		}
	}
	return p
}

// ── Phase 2: Vs30 Provenance ──
// Every row's vs30 must equal the vs30 of its nearest ground-condition point,
// and that point must lie within the cutoff.

func validateProvenance(t *modelTable, points []domain.Point, maxDistanceKm float64) *phase {
	p := &phase{name: "Phase 2: Vs30 Provenance (nearest point)"}

	if len(points) == 0 {
		p.errorf("no ground-condition points loaded")
		return p
	}
	index := domain.NewPointIndex(points)

	for i, row := range t.rows {
		lon, ok1 := t.float(row, "lon")
		lat, ok2 := t.float(row, "lat")
		vs30, ok3 := t.float(row, "vs30")
		if !ok1 || !ok2 || !ok3 {
			continue // reported in phase 1
		}

		nearest, distKm, ok := index.Nearest(lon, lat)
		if !ok {
			p.errorf("row %d: no nearest point", i+2)
			continue
		}
		if distKm > maxDistanceKm {
			p.errorf("row %d (%g,%g): nearest point is %.3f km away, beyond cutoff %g km",
				i+2, lon, lat, distKm, maxDistanceKm)
		}
		if nearest.Vs30 != vs30 {
			p.errorf("row %d (%g,%g): vs30 %g does not match nearest point's %g (%s)",
				i+2, lon, lat, vs30, nearest.Vs30, nearest.SourceFile)
		}
	}
	return p
}

// ── Phase 3: Derived Columns ──
// z1pt0 and z2pt5, when present, must match the built-in depth relations
// evaluated at the row's vs30.

func validateDerived(t *modelTable) *phase {
	p := &phase{name: "Phase 3: Derived Columns (depth relations)"}

	_, hasZ1 := t.col["z1pt0"]
	_, hasZ25 := t.col["z2pt5"]
	if !hasZ1 && !hasZ25 {
		fmt.Println("  Note: no derived columns present, phase checks nothing")
		return p
	}

	for i, row := range t.rows {
		vs30, ok := t.float(row, "vs30")
		if !ok {
			continue
		}
		if hasZ1 {
			if z1, ok := t.float(row, "z1pt0"); ok {
				if want := domain.DefaultZ1pt0(vs30); !floatEq(z1, want) {
					p.errorf("row %d: z1pt0 %g, expected %g for vs30 %g", i+2, z1, want, vs30)
				}
			}
		}
		if hasZ25 {
			if z25, ok := t.float(row, "z2pt5"); ok {
				if want := domain.DefaultZ2pt5(vs30); !floatEq(z25, want) {
					p.errorf("row %d: z2pt5 %g, expected %g for vs30 %g", i+2, z25, want, vs30)
				}
			}
		}
	}
	return p
}

// ── Helpers ──

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9*math.Max(1, math.Abs(b))
}
