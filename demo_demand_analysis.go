package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"ieso-demand-agent/internal/models"
	"ieso-demand-agent/internal/quality"
	"ieso-demand-agent/pkg/logging"
)

// Demonstrates quality validation and statistics without a database.
func main() {
	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println("IESO DEMAND AGENT - QUALITY ENGINE DEMONSTRATION")
	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println()

	logger := logging.NewStructuredLogger("demo", "1.0.0", logging.InfoLevel)
	ctx := context.Background()

	// Build three synthetic days of hourly demand with a daily cycle:
	// overnight trough near 13,500 MW, evening peak near 19,500 MW.
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	var series []models.DemandReading
	for day := 0; day < 3; day++ {
		date := start.AddDate(0, 0, day)
		for hour := 0; hour < 24; hour++ {
			demand := 16500 + 3000*math.Sin(2*math.Pi*float64(hour-9)/24)
			market := demand + 1200
			series = append(series, models.DemandReading{
				Date:            date,
				Hour:            hour,
				OntarioDemandMW: &demand,
				MarketDemandMW:  &market,
			})
		}
	}

	// Degrade the series: drop three overnight hours and inject a spike.
	series = append(series[:26], series[29:]...)
	spike := 55000.0
	series[40].OntarioDemandMW = &spike

	fmt.Printf("Synthetic series: %d hourly readings over %s to %s\n",
		len(series), start.Format("2006-01-02"), end.Format("2006-01-02"))
	fmt.Println("Degradations: 3 hours removed, 1 spike injected (55,000 MW)")
	fmt.Println()

	engine := quality.NewEngine(quality.DefaultConfig(), logger)

	fmt.Println("────────────────────────────────────────────────────────────────")
	fmt.Println("QUALITY VALIDATION")
	fmt.Println("────────────────────────────────────────────────────────────────")

	report, err := engine.Validate(ctx, series, start, end)
	if err != nil {
		fmt.Printf("Validation error: %v\n", err)
		return
	}
	printJSON(report)

	fmt.Println()
	fmt.Println("────────────────────────────────────────────────────────────────")
	fmt.Println("DESCRIPTIVE STATISTICS")
	fmt.Println("────────────────────────────────────────────────────────────────")

	stats, err := engine.Summarize(ctx, series)
	if err != nil {
		fmt.Printf("Statistics error: %v\n", err)
		return
	}
	printJSON(stats)

	fmt.Println()
	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println("DEMONSTRATION COMPLETE")
	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Println("The engine detected:")
	fmt.Printf("  • Missing hours:   %d of %d expected\n", report.MissingCount, report.ExpectedCount)
	fmt.Printf("  • Time gaps:       %d\n", report.GapCount)
	fmt.Printf("  • Outliers:        %d\n", report.OutlierCount)
	fmt.Printf("  • Series valid:    %v\n", report.IsValid)
	fmt.Printf("  • Peak hour:       %02d:00 (avg %.0f MW)\n", stats.PeakHour, stats.PeakHourAvgMW)
	fmt.Println()
	fmt.Println("Against a database, the same engine backs the HTTP API and the")
	fmt.Println("interactive agent tools.")
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("marshal error: %v\n", err)
		return
	}
	fmt.Println(string(out))
}
