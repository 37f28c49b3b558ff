// Command genpoints generates synthetic ground-condition and exposure
// fixtures for local runs and benchmarks: a regular Vs30 sample field over a
// bounding box, and randomly scattered asset locations inside it. Output is
// deterministic for a given seed so fixtures can be regenerated byte-for-byte.
//
// Usage:
//
//	go run ./cmd/genpoints \
//	  -vs30-out testdata/vs30.csv \
//	  -exposure-out testdata/exposure.csv \
//	  -west 9.0 -south 44.0 -width-km 100 -height-km 100 \
//	  -sample-spacing-km 2 -assets 500 -seed 1
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"strconv"
)

const kmPerDegree = 2 * math.Pi * 6371.0 / 360

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	vs30Out := flag.String("vs30-out", "", "output path for the Vs30 sample field CSV")
	exposureOut := flag.String("exposure-out", "", "output path for the asset locations CSV")
	west := flag.Float64("west", 9.0, "western edge of the box, degrees")
	south := flag.Float64("south", 44.0, "southern edge of the box, degrees")
	widthKm := flag.Float64("width-km", 100, "box width in km")
	heightKm := flag.Float64("height-km", 100, "box height in km")
	sampleSpacingKm := flag.Float64("sample-spacing-km", 2, "Vs30 sample spacing in km")
	assets := flag.Int("assets", 500, "number of asset locations to scatter")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	if *vs30Out == "" || *exposureOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -vs30-out, -exposure-out")
	}

	cosMid := math.Cos((*south + *heightKm/kmPerDegree/2) * math.Pi / 180)
	stepLat := *sampleSpacingKm / kmPerDegree
	stepLon := *sampleSpacingKm / (kmPerDegree * cosMid)
	spanLon := *widthKm / (kmPerDegree * cosMid)
	spanLat := *heightKm / kmPerDegree

	rng := rand.New(rand.NewSource(*seed))

	if err := writeVs30Field(*vs30Out, *west, *south, spanLon, spanLat, stepLon, stepLat, rng); err != nil {
		return err
	}
	if err := writeExposure(*exposureOut, *west, *south, spanLon, spanLat, *assets, rng); err != nil {
		return err
	}

	fmt.Printf("wrote %s and %s\n", *vs30Out, *exposureOut)
	return nil
}

// writeVs30Field samples a smooth synthetic velocity field on a regular
// lattice: a base plateau with sinusoidal basins and a little noise, clamped
// to a plausible 150-900 m/s range.
func writeVs30Field(path string, west, south, spanLon, spanLat, stepLon, stepLat float64, rng *rand.Rand) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for lat := south; lat <= south+spanLat; lat += stepLat {
		for lon := west; lon <= west+spanLon; lon += stepLon {
			vs30 := 550 +
				250*math.Sin(lon*3)*math.Cos(lat*3) +
				40*(rng.Float64()-0.5)
			vs30 = math.Max(150, math.Min(900, vs30))
			if err := w.Write([]string{
				formatFloat(lon),
				formatFloat(lat),
				strconv.FormatFloat(vs30, 'f', 1, 64),
			}); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

func writeExposure(path string, west, south, spanLon, spanLat float64, n int, rng *rand.Rand) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for i := 0; i < n; i++ {
		if err := w.Write([]string{
			formatFloat(west + rng.Float64()*spanLon),
			formatFloat(south + rng.Float64()*spanLat),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 5, 64)
}
