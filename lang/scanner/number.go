package scanner

import "strconv"

// parseInt parses a decimal or 0x-prefixed hexadecimal integer literal.
func parseInt(text string) (int64, error) {
	return strconv.ParseInt(text, 0, 64)
}

// parseFloat parses a decimal floating-point literal.
func parseFloat(text string) (float64, error) {
	return strconv.ParseFloat(text, 64)
}
