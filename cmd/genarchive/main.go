// Command genarchive generates a synthetic archive HTML page, decodes it
// with the actual decoder, and writes the page plus the decoded JSON as test
// fixtures. Using the real decoder ensures the fixtures match production
// behavior.
//
// Usage:
//
//	go run ./cmd/genarchive \
//	  -days 7 -step 2 -seed 42 \
//	  -html-out data/mock/archive_7d.html \
//	  -json-out data/mock/archive_7d.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kitewatch/wind-archive/internal/archive"
	"github.com/kitewatch/wind-archive/internal/domain"
)

var baseDate = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	days := flag.Int("days", 7, "number of day rows to generate")
	step := flag.Int("step", domain.DefaultStepHours, "hours between intra-day timestamps")
	seed := flag.Int64("seed", 42, "random seed for reproducible fixtures")
	withGusts := flag.Bool("gusts", true, "include a wind gusts block")
	htmlOut := flag.String("html-out", "", "output path for the archive HTML fixture")
	jsonOut := flag.String("json-out", "", "output path for the decoded JSON fixture")
	flag.Parse()

	if *htmlOut == "" || *jsonOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -html-out, -json-out")
	}
	if *days <= 0 || *step <= 0 || 24%*step != 0 {
		return fmt.Errorf("days must be positive and step must divide 24")
	}

	rng := rand.New(rand.NewSource(*seed))
	html := generateArchive(rng, *days, *step, *withGusts)

	dataset, err := archive.Decode(html, *step)
	if err != nil {
		return fmt.Errorf("decode generated page: %w", err)
	}
	log.Printf("decoded %d points over %d days", dataset.Len(), *days)

	if err := writeFile(*htmlOut, []byte(html)); err != nil {
		return fmt.Errorf("writing HTML fixture: %w", err)
	}
	log.Printf("wrote HTML fixture: %s", *htmlOut)

	data, err := json.MarshalIndent(dataset, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dataset: %w", err)
	}
	if err := writeFile(*jsonOut, append(data, '\n')); err != nil {
		return fmt.Errorf("writing JSON fixture: %w", err)
	}
	log.Printf("wrote JSON fixture: %s", *jsonOut)

	printStats(dataset)
	return nil
}

// generateArchive builds an archive page in the backend's table layout:
// a legend row declaring variable blocks via colspan, a secondary header
// row, and one row per day with numeric and direction-arrow cells.
func generateArchive(rng *rand.Rand, days, step int, withGusts bool) string {
	perDay := 24 / step

	var b strings.Builder
	b.WriteString("<html><body><table class=\"daily-archive\">\n")

	// Legend row: one colspan block per variable.
	b.WriteString("<tr><td>Date</td>")
	blocks := []string{"Wind speed (knots)", "Wind direction", "Temperature (°C)"}
	if withGusts {
		blocks = append(blocks, "Wind gusts (knots)")
	}
	for _, label := range blocks {
		fmt.Fprintf(&b, "<td colspan=\"%d\">%s</td>", perDay, label)
	}
	b.WriteString("</tr>\n")

	// Secondary header row: hour labels, never data.
	b.WriteString("<tr><td></td>")
	for range blocks {
		for h := 0; h < 24; h += step {
			fmt.Fprintf(&b, "<td>%02dh</td>", h)
		}
	}
	b.WriteString("</tr>\n")

	for day := 0; day < days; day++ {
		date := baseDate.AddDate(0, 0, day)
		fmt.Fprintf(&b, "<tr><td>%s</td>", date.Format("02.01.2006"))

		speeds := make([]float64, perDay)
		for i := range speeds {
			// Diurnal wind cycle: calm mornings, thermic afternoons.
			hour := float64(i * step)
			thermal := 8 * math.Sin((hour-6)*math.Pi/12)
			if thermal < 0 {
				thermal = 0
			}
			speeds[i] = math.Round((6+thermal+rng.Float64()*6)*10) / 10
			fmt.Fprintf(&b, "<td>%g</td>", speeds[i])
		}
		for i := 0; i < perDay; i++ {
			deg := rng.Intn(720) - 360 // exercise out-of-range normalization
			fmt.Fprintf(&b, `<td><svg><g transform="rotate(%d)"><path d="M0 0"/></g></svg></td>`, deg)
		}
		for i := 0; i < perDay; i++ {
			fmt.Fprintf(&b, "<td>%g</td>", math.Round((16+rng.Float64()*12)*10)/10)
		}
		if withGusts {
			for i := 0; i < perDay; i++ {
				fmt.Fprintf(&b, "<td>%g</td>", math.Round((speeds[i]+2+rng.Float64()*8)*10)/10)
			}
		}
		b.WriteString("</tr>\n")
	}

	b.WriteString("</table></body></html>\n")
	return b.String()
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// printStats summarizes the fixture so test assertions can be updated
// without recomputing by hand.
func printStats(dataset domain.Dataset) {
	summary := domain.Summarize(dataset)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total points: %d\n", summary.TotalPoints)

	printField := func(name string, s *domain.FieldStats) {
		if s == nil {
			fmt.Printf("%s: absent\n", name)
			return
		}
		fmt.Printf("%s: count=%d mean=%.2f median=%.2f min=%.2f max=%.2f stddev=%.2f\n",
			name, s.Count, s.Mean, s.Median, s.Min, s.Max, s.StdDev)
	}
	printField("Wind speed", summary.WindSpeed)
	printField("Wind direction", summary.WindDirection)
	printField("Temperature", summary.Temperature)
	printField("Wind gusts", summary.WindGust)

	fmt.Println("\nSpeed bands:")
	for _, band := range summary.SpeedBands {
		fmt.Printf("  %-12s %5.1f%%\n", band.Label, band.Percent)
	}
}
