package sysmetrics

import "fmt"

// smFormatBytes formats a byte count with binary units.
func smFormatBytes(bytes uint64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
		tb = 1024 * gb
	)

	switch {
	case bytes >= tb:
		return fmt.Sprintf("%.1fT", float64(bytes)/float64(tb))
	case bytes >= gb:
		return fmt.Sprintf("%.1fG", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1fM", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1fK", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}

// smPercent formats pct with the given number of decimals.
func smPercent(pct float64, precision int) string {
	return fmt.Sprintf("%.*f%%", precision, pct)
}
