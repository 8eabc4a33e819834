package monitor

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// tempColor grades a reading against its zone's target and critical
// thresholds.
func tempColor(v, target, critical float64) lipgloss.Color {
	switch {
	case v >= critical:
		return colorCrit
	case v >= target+(critical-target)/2:
		return lipgloss.Color("208")
	case v > target:
		return colorWarn
	default:
		return colorOk
	}
}

func renderTemp(v, target, critical float64) string {
	style := lipgloss.NewStyle().Foreground(tempColor(v, target, critical))
	if v >= critical {
		style = style.Bold(true)
	}
	return style.Render(fmt.Sprintf("%5.1f°C", v))
}

// renderSparkline draws values as colored block characters scaled to
// [rangeMin, rangeMax], left-padded when fewer values than width.
func renderSparkline(values []float64, width int, rangeMin, rangeMax, target, critical float64) string {
	if width <= 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}

	var sb strings.Builder
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	for i := 0; i < width-len(values); i++ {
		sb.WriteString(dim.Render("╌"))
	}

	for _, v := range values {
		norm := (v - rangeMin) / span
		norm = math.Max(0, math.Min(1, norm))
		idx := int(norm * 7)

		style := lipgloss.NewStyle().Foreground(tempColor(v, target, critical))
		if v >= critical {
			style = style.Bold(true)
		}
		sb.WriteString(style.Render(string(sparkBlocks[idx])))
	}
	return sb.String()
}
