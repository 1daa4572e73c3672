package theme

import (
	"fmt"

	"gitlab.com/tinyland/lab/pulsebar/pkg/hexcolor"
)

// Threshold maps a usage percentage onto the warning colours:
// >=80 red, >=60 orange, >=40 yellow. Below 40 it reports false so the
// item keeps its default foreground.
func (t *Theme) Threshold(pct float64) (hexcolor.Color, bool) {
	switch {
	case pct >= 80:
		return t.Red, true
	case pct >= 60:
		return t.Orange, true
	case pct >= 40:
		return t.Yellow, true
	default:
		return hexcolor.Color{}, false
	}
}

// Fraction renders " (n/m)" in the dim colour as pango markup, or "" when
// there is only one page.
func (t *Theme) Fraction(n, m int) string {
	if m <= 1 {
		return ""
	}
	return fmt.Sprintf(`<span foreground="%s"> (%d/%d)</span>`, t.Dim, n, m)
}
