package hexcolor

// Adjuster shifts a low-emphasis foreground so it keeps roughly the same
// contrast it had against a reference background when drawn on another
// background.
//
// This is a heuristic: it assumes every RGB channel contributes linearly to
// perceived contrast, which is not colorimetrically true.
type Adjuster struct {
	dr, dg, db uint8
}

// NewAdjuster records the per-channel distance between ref and fg.
func NewAdjuster(ref, fg Color) Adjuster {
	return Adjuster{
		dr: absDiff(fg.R, ref.R),
		dg: absDiff(fg.G, ref.G),
		db: absDiff(fg.B, ref.B),
	}
}

// Adjust returns bg with the recorded distance added to each channel,
// saturating at 0xff.
func (a Adjuster) Adjust(bg Color) Color {
	return Color{
		R: saturatingAdd(bg.R, a.dr),
		G: saturatingAdd(bg.G, a.dg),
		B: saturatingAdd(bg.B, a.db),
	}
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

func saturatingAdd(a, b uint8) uint8 {
	if sum := uint16(a) + uint16(b); sum <= 0xff {
		return uint8(sum)
	}
	return 0xff
}
