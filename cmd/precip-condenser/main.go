// Command precip-condenser reduces a monthly precipitation NetCDF time
// series to the condensed byte grid read by the server.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"go.ngs.io/climatology-api/internal/adapter/store/condensed"
	"go.ngs.io/climatology-api/internal/adapter/store/ncgrid"
	"go.ngs.io/climatology-api/internal/adapter/store/zfile"
	"go.ngs.io/climatology-api/internal/domain"
	"go.ngs.io/climatology-api/internal/observability"
)

func main() {
	// Command line flags
	inPath := flag.String("in", "./data/precip.mon.mean.nc", "Monthly precipitation NetCDF time series")
	varNames := flag.String("var", "precip,prate,pr", "Comma-separated candidate variable names")
	outPath := flag.String("out", "./data/precip.bin.zst", "Output file (.gz or .zst compresses)")
	step := flag.Float64("resolution", 2.5, "Output grid resolution in degrees")
	firstMonth := flag.Int("first-month", 1, "Calendar month (1-12) of the first time step")
	scale := flag.Float64("scale", 1, "Factor converting file values into mm/day")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	logger, closer := observability.NewLogger(observability.LogOptions{Level: *logLevel, Format: "text"})
	defer closer.Close()

	if err := run(logger, *inPath, strings.Split(*varNames, ","), *outPath, *step, *firstMonth-1, *scale); err != nil {
		logger.Error("condensing failed", "error", err)
		closer.Close()
		os.Exit(1)
	}
}

func run(logger *slog.Logger, inPath string, names []string, outPath string, step float64, first int, scale float64) error {
	res, err := domain.NewResolution(step, step)
	if err != nil {
		return err
	}

	series, err := ncgrid.ReadSeries(inPath, names)
	if err != nil {
		return err
	}
	nLat, nLon := series.Shape()
	logger.Info("read time series", "path", inPath, "steps", series.Len(), "lat", nLat, "lon", nLon)
	if series.Len() < domain.MonthCount {
		return fmt.Errorf("%s holds %d time steps, need at least %d", inPath, series.Len(), domain.MonthCount)
	}

	steps := make([][]float32, series.Len())
	for k := range steps {
		if steps[k], err = series.Resample(k, res); err != nil {
			return fmt.Errorf("time step %d: %w", k, err)
		}
		if scale != 1 {
			for i := range steps[k] {
				steps[k][i] *= float32(scale)
			}
		}
	}

	months, err := condensed.MonthlyMeans(steps, first, condensed.MinAccepted, condensed.MaxAccepted)
	if err != nil {
		return err
	}

	w, err := zfile.Create(outPath)
	if err != nil {
		return err
	}
	if err := condensed.Encode(w, res, months); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	missing := 0
	for _, v := range months[0] {
		if math.IsNaN(float64(v)) {
			missing++
		}
	}
	logger.Info("wrote condensed grid",
		"path", outPath,
		"grid", fmt.Sprintf("%dx%d", res.LatCount, res.LonCount),
		"missing_cells", missing,
	)
	return nil
}
