package backtest

import (
	"fmt"
	"strings"
)

// EquityCurveASCII renders the result's equity curve as a terminal
// chart of the given dimensions.
func EquityCurveASCII(result *Result, width, height int) string {
	if result == nil || len(result.EquityCurve) == 0 {
		return "No data to display"
	}
	if width < 1 {
		width = 60
	}
	if height < 1 {
		height = 10
	}

	minValue := result.EquityCurve[0].TotalValue
	maxValue := result.EquityCurve[0].TotalValue
	for _, point := range result.EquityCurve {
		if point.TotalValue < minValue {
			minValue = point.TotalValue
		}
		if point.TotalValue > maxValue {
			maxValue = point.TotalValue
		}
	}

	// Pad the range so a flat curve still renders mid-chart
	valueRange := maxValue - minValue
	if valueRange == 0 {
		valueRange = 1
	}
	minValue -= valueRange * 0.05
	maxValue += valueRange * 0.05
	valueRange = maxValue - minValue

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = make([]rune, width)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	// Sample points to fit width
	step := len(result.EquityCurve) / width
	if step == 0 {
		step = 1
	}

	for x := 0; x < width && x*step < len(result.EquityCurve); x++ {
		point := result.EquityCurve[x*step]
		y := int((point.TotalValue - minValue) / valueRange * float64(height-1))
		if y >= 0 && y < height {
			grid[height-1-y][x] = '█'
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Equity Curve (%.0f - %.0f)\n", minValue, maxValue))
	sb.WriteString(strings.Repeat("─", width+2) + "\n")

	for _, row := range grid {
		sb.WriteRune('│')
		sb.WriteString(string(row))
		sb.WriteRune('│')
		sb.WriteRune('\n')
	}

	sb.WriteString(strings.Repeat("─", width+2) + "\n")

	return sb.String()
}
