package facetargs

// damerauLevenshtein computes the Damerau–Levenshtein edit distance between
// str and tgt, counting an adjacent transposition as a single edit in
// addition to insertion, deletion and substitution. Transposition
// awareness matters for suggestions: "remoet" should still find "remote".
func damerauLevenshtein(str, tgt string) int {
	sr := []rune(str)
	tr := []rune(tgt)

	if len(sr) == 0 {
		return len(tr)
	}

	if len(tr) == 0 {
		return len(sr)
	}

	dists := make([][]int, len(sr)+1)
	for i := range dists {
		dists[i] = make([]int, len(tr)+1)
		dists[i][0] = i
	}

	for j := range tr {
		dists[0][j+1] = j + 1
	}

	for i := 1; i <= len(sr); i++ {
		for j := 1; j <= len(tr); j++ {
			cost := 1
			if sr[i-1] == tr[j-1] {
				cost = 0
			}

			del := dists[i-1][j] + 1
			ins := dists[i][j-1] + 1
			sub := dists[i-1][j-1] + cost
			best := min3(del, ins, sub)

			if i > 1 && j > 1 && sr[i-1] == tr[j-2] && sr[i-2] == tr[j-1] {
				if trans := dists[i-2][j-2] + cost; trans < best {
					best = trans
				}
			}

			dists[i][j] = best
		}
	}

	return dists[len(sr)][len(tr)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}

	if c < m {
		m = c
	}

	return m
}

// suggestThreshold implements the max(1, floor(len/3)) rule, evaluated
// against the candidate name's length. Measuring the candidate rather than
// the typed text keeps a wildly-longer miss (`---verbose` against
// `verbose`) from slipping under its own inflated budget: `--verbos` still
// suggests `verbose`, while `---verbose` falls back to listing everything.
func suggestThreshold(name string) int {
	t := len([]rune(name)) / 3
	if t < 1 {
		return 1
	}

	return t
}

// Suggest returns the closest candidate to name among choices, and whether
// it is close enough (distance within the candidate's own threshold) to
// surface as a "did you mean" hint. The returned bool is false exactly when
// no candidate qualifies.
func Suggest(name string, choices []string) (closest string, ok bool) {
	best := -1
	bestDist := -1

	for i, c := range choices {
		d := damerauLevenshtein(name, c)
		if d > suggestThreshold(c) {
			continue
		}

		if best < 0 || d < bestDist {
			bestDist = d
			best = i
		}
	}

	if best < 0 {
		return "", false
	}

	return choices[best], true
}
