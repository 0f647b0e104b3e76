package ui

import (
	"strings"

	"hashquest/internal/ledger"
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders values as a single row of block characters, scaled to
// the largest value. Only the last width values are drawn.
func Sparkline(values []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	peak := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
	}

	var b strings.Builder
	for i := 0; i < width-len(values); i++ {
		b.WriteRune(' ')
	}
	for _, v := range values {
		if peak <= 0 || v <= 0 {
			b.WriteRune(sparkBlocks[0])
			continue
		}
		idx := int(v / peak * float64(len(sparkBlocks)-1))
		if idx >= len(sparkBlocks) {
			idx = len(sparkBlocks) - 1
		}
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}

// levelProgress is the fraction of the way from the current level to the next
func levelProgress(level uint32, earned uint64) float64 {
	var floor uint64
	if level > 1 {
		floor = ledger.NextLevelAt(level - 1)
	}
	ceil := ledger.NextLevelAt(level)
	if ceil <= floor || earned <= floor {
		return 0
	}
	p := float64(earned-floor) / float64(ceil-floor)
	if p > 1 {
		p = 1
	}
	return p
}
