// Package chart reduces raw and resampled target distributions into a small
// density-comparison dataset for client rendering.
package chart

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/datakite/resampled/pkg/types"
)

// gridCut pads the evaluation grid by this many bandwidths past the observed
// range so density tails are not clipped.
const gridCut = 3.0

// Summary computes a Gaussian kernel-density estimate for each distribution
// over their combined value range, sampled at gridSize points. labelCount
// evenly spaced points (always including the last) carry an axis label; all
// other points carry an empty label.
func Summary(raw, resampled []float64, gridSize, labelCount int) ([]types.ChartPoint, error) {
	if labelCount < 2 {
		return nil, types.NewValidationError("chartLabelCount must be at least 2, got %d", labelCount)
	}
	if gridSize < 2 {
		return nil, types.NewValidationError("chartDataSize must be at least 2, got %d", gridSize)
	}
	if len(raw) == 0 || len(resampled) == 0 {
		return nil, types.NewValidationError("target column has no numeric values")
	}

	grid := evalGrid(raw, resampled, gridSize)

	var rawDensity, resampledDensity []float64
	var g errgroup.Group
	g.Go(func() error {
		rawDensity = estimate(raw, grid)
		return nil
	})
	g.Go(func() error {
		resampledDensity = estimate(resampled, grid)
		return nil
	})
	_ = g.Wait()

	labeled := labelIndices(gridSize, labelCount)
	points := make([]types.ChartPoint, gridSize)
	for i := range grid {
		label := ""
		if labeled[i] {
			label = strconv.FormatFloat(grid[i], 'g', 6, 64)
		}
		points[i] = types.ChartPoint{
			Label:     label,
			Raw:       decimal.NewFromFloat(rawDensity[i]),
			Resampled: decimal.NewFromFloat(resampledDensity[i]),
		}
	}
	return points, nil
}

// evalGrid builds the shared evaluation grid: the combined min/max of both
// samples, padded by gridCut bandwidths on each side.
func evalGrid(raw, resampled []float64, gridSize int) []float64 {
	lo := math.Min(minOf(raw), minOf(resampled))
	hi := math.Max(maxOf(raw), maxOf(resampled))
	pad := gridCut * math.Max(bandwidth(raw), bandwidth(resampled))
	lo -= pad
	hi += pad

	grid := make([]float64, gridSize)
	step := (hi - lo) / float64(gridSize-1)
	for i := range grid {
		grid[i] = lo + float64(i)*step
	}
	return grid
}

// estimate evaluates a Gaussian KDE of values at each grid point.
func estimate(values, grid []float64) []float64 {
	h := bandwidth(values)
	n := float64(len(values))
	norm := 1.0 / (n * h * math.Sqrt(2*math.Pi))

	out := make([]float64, len(grid))
	for i, x := range grid {
		sum := 0.0
		for _, v := range values {
			z := (x - v) / h
			sum += math.Exp(-0.5 * z * z)
		}
		out[i] = norm * sum
	}
	return out
}

// bandwidth applies Scott's rule: stddev * n^(-1/5), with a floor for
// degenerate (constant) samples.
func bandwidth(values []float64) float64 {
	n := float64(len(values))
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= n

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	std := math.Sqrt(variance / n)
	if std == 0 {
		std = 1
	}
	return std * math.Pow(n, -0.2)
}

// labelIndices selects labelCount evenly spaced grid indices, always
// including the first and last.
func labelIndices(gridSize, labelCount int) map[int]bool {
	labeled := make(map[int]bool, labelCount)
	for n := 0; n < labelCount-1; n++ {
		labeled[n*(gridSize-1)/(labelCount-1)] = true
	}
	labeled[gridSize-1] = true
	return labeled
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
