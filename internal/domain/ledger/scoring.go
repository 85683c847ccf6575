package ledger

// Score maps raw session activity to a debt score in 0..3. Edits are the
// strongest drift signal, but tool-heavy sessions without edits still accrue
// debt, so the higher of the two readings wins.
func Score(changeCount, toolCount int) int {
	return max(changeScore(changeCount), toolScore(toolCount))
}

func changeScore(n int) int {
	switch {
	case n <= 0:
		return 0
	case n <= 3:
		return 1
	case n <= 8:
		return 2
	default:
		return 3
	}
}

func toolScore(n int) int {
	switch {
	case n <= 0:
		return 0
	case n <= 15:
		return 1
	case n <= 40:
		return 2
	default:
		return 3
	}
}
