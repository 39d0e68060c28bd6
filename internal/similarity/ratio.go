package similarity

// textRatio is a normalized string-similarity ratio in [0,1], computed as
// 2*LCS / (len(a)+len(b)) over bytes. Symmetric; 1.0 for identical strings.
func textRatio(a, b string) float64 {
	if a == "" || b == "" {
		if a == b {
			return 1.0
		}
		return 0.0
	}
	if a == b {
		return 1.0
	}

	// Two-row LCS table keeps memory linear in the shorter string.
	if len(b) < len(a) {
		a, b = b, a
	}
	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)
	for j := 1; j <= len(b); j++ {
		for i := 1; i <= len(a); i++ {
			if a[i-1] == b[j-1] {
				curr[i] = prev[i-1] + 1
			} else if prev[i] >= curr[i-1] {
				curr[i] = prev[i]
			} else {
				curr[i] = curr[i-1]
			}
		}
		prev, curr = curr, prev
	}
	lcs := prev[len(a)]
	return 2.0 * float64(lcs) / float64(len(a)+len(b))
}
