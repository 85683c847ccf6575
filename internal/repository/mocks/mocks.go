package mocks

import (
	"context"
	"encoding/json"

	"github.com/rpggio/worklog/internal/domain/ledger"
	"github.com/stretchr/testify/mock"
)

// StateRepository is a mock for ledger.StateRepository. Update applies fn to
// a copy of State and keeps the copy only when fn succeeds, matching the
// all-or-nothing contract of the real stores.
type StateRepository struct {
	mock.Mock
	State *ledger.State
}

// NewStateRepository returns a mock holding an empty ledger.
func NewStateRepository() *StateRepository {
	return &StateRepository{State: ledger.NewState()}
}

func (m *StateRepository) Load(ctx context.Context) (*ledger.State, error) {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return cloneState(m.State), nil
}

func (m *StateRepository) Update(ctx context.Context, fn func(*ledger.State) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	working := cloneState(m.State)
	if err := fn(working); err != nil {
		return err
	}
	m.State = working
	return nil
}

// HistoryRepository is a mock for ledger.HistoryRepository.
type HistoryRepository struct {
	mock.Mock
}

func (m *HistoryRepository) Append(ctx context.Context, entry ledger.HistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *HistoryRepository) List(ctx context.Context, limit int) ([]ledger.HistoryEntry, error) {
	args := m.Called(ctx, limit)
	if entries, ok := args.Get(0).([]ledger.HistoryEntry); ok {
		return entries, args.Error(1)
	}
	return nil, args.Error(1)
}

// Analyzer is a mock for ledger.Analyzer.
type Analyzer struct {
	mock.Mock
}

func (m *Analyzer) Analyze(path string) ledger.Activity {
	args := m.Called(path)
	return args.Get(0).(ledger.Activity)
}

func cloneState(st *ledger.State) *ledger.State {
	if st == nil {
		return ledger.NewState()
	}
	data, err := json.Marshal(st)
	if err != nil {
		panic(err)
	}
	var out ledger.State
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	out.Normalize()
	return &out
}
