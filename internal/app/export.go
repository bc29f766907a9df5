package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"sentifi/internal/sentiment"
)

// Export runs an analysis cycle without publishing and renders the
// per-item breakdown as CSV and/or a PNG bar chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	symbol := a.resolveSymbol(opts.Symbol)

	pipe, err := a.newPipeline(nil)
	if err != nil {
		return err
	}

	result, err := pipe.Analyze(ctx, symbol, opts.Query)
	if err != nil {
		return err
	}

	agg := result.Sentiment
	a.Logger.Info().Str("symbol", agg.Symbol).
		Int("samples", agg.SampleCount).
		Float64("value", agg.Value).
		Msg("exporting breakdown")

	if opts.CSVPath != "" {
		if err := writeBreakdownCSV(opts.CSVPath, agg); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeBreakdownPNG(opts.PNGPath, agg); err != nil {
			return err
		}
	}

	return nil
}

func writeBreakdownCSV(path string, agg sentiment.Aggregate) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"symbol", "source", "label", "confidence", "signed", "text"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, c := range agg.Contributions {
		record := []string{
			agg.Symbol,
			c.SourceID,
			string(c.Label),
			strconv.FormatFloat(c.Confidence, 'f', 4, 64),
			strconv.FormatFloat(c.Signed, 'f', 4, 64),
			c.Text,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeBreakdownPNG(path string, agg sentiment.Aggregate) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	bars := make([]chart.Value, 0, len(agg.Contributions))
	for i, c := range agg.Contributions {
		style := chart.Style{FillColor: drawing.ColorGreen, StrokeColor: drawing.ColorGreen}
		if c.Signed < 0 {
			style = chart.Style{FillColor: drawing.ColorRed, StrokeColor: drawing.ColorRed}
		}
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%s #%d", c.SourceID, i+1),
			Value: c.Signed,
			Style: style,
		})
	}

	graph := chart.BarChart{
		Title:    fmt.Sprintf("%s sentiment contributions (mean %+.2f)", agg.Symbol, agg.Value),
		Width:    1280,
		Height:   720,
		BarWidth: 40,
		YAxis: chart.YAxis{
			Name: "Signed confidence",
			Range: &chart.ContinuousRange{
				Min: -1,
				Max: 1,
			},
		},
		Bars: bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
