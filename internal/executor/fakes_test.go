package executor

import (
	"context"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
)

// fakeConnectionRunner answers Query with a scripted rows/error per query
// string, recording every call it receives.
type fakeConnectionRunner struct {
	rows    contracts.Rows
	err     error
	calls   int
	lastMax int
}

func (f *fakeConnectionRunner) Query(ctx context.Context, query, connectionID, userID string, maxRows int) (contracts.Rows, error) {
	f.calls++
	f.lastMax = maxRows
	if f.err != nil {
		return contracts.Rows{}, f.err
	}
	return f.rows, nil
}

func rowsOf(n int) contracts.Rows {
	rows := contracts.Rows{Columns: []string{"id"}}
	for i := 0; i < n; i++ {
		rows.Data = append(rows.Data, contracts.Row{i})
	}
	return rows
}
