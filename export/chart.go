package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Chart renders the latest data set as an HTML line chart of force over probe height. Every export
// replaces the previous chart.
type Chart struct {
	Dir  string
	Name string
}

// Path ...
func (c Chart) Path() string {
	return filepath.Join(c.Dir, c.Name)
}

// Export ...
func (c Chart) Export(header string, pairs []Pair) error {
	xs := make([]string, len(pairs))
	ys := make([]opts.LineData, len(pairs))
	for i, p := range pairs {
		xs[i] = strconv.FormatFloat(float64(p.X), 'f', -1, 32)
		ys[i] = opts.LineData{Value: p.Y}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Force over probe height", Subtitle: header}),
		charts.WithXAxisOpts(opts.XAxis{Name: "height"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "force"}),
	)
	line.SetXAxis(xs).AddSeries("force", ys)

	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("unable to create chart directory: %w", err)
	}
	f, err := os.Create(c.Path())
	if err != nil {
		return fmt.Errorf("unable to create chart file: %w", err)
	}
	defer f.Close()
	if err := line.Render(f); err != nil {
		return fmt.Errorf("unable to render chart: %w", err)
	}
	return f.Close()
}
