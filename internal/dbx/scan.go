package dbx

// BoolToInt maps a flag onto the 0/1 INTEGER columns both dialects use.
func BoolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
