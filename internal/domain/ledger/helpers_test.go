package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return base.Add(time.Duration(minutes) * time.Minute)
}

type fixedAnalyzer map[string]Activity

func (f fixedAnalyzer) Analyze(path string) Activity {
	return f[path]
}

func requireDebtInvariant(t *testing.T, s *State) {
	t.Helper()
	require.Equal(t, s.ScoredDebt(), s.Debt, "debt must equal the sum of session scores")
}
