package citymatch

// Distance computes the Levenshtein edit distance between a and b: the
// minimum number of single-rune insertions, deletions or substitutions
// turning one into the other. Callers compare normalized keys, which are
// short, so the iterative form below is plenty; it keeps a single DP row
// sized by the shorter string plus one rolling cell, O(min(m,n)) space.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	la, lb := len(ra), len(rb)
	if lb == 0 {
		return la
	}

	row := make([]int, lb+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= la; i++ {
		prev := i
		for j := 1; j <= lb; j++ {
			cost := row[j-1]
			if ra[i-1] != rb[j-1] {
				cost++
				if row[j]+1 < cost {
					cost = row[j] + 1
				}
				if prev+1 < cost {
					cost = prev + 1
				}
			}
			row[j-1] = prev
			prev = cost
		}
		row[lb] = prev
	}
	return row[lb]
}
