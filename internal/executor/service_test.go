package executor

import (
	"context"
	"testing"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_AllowsOrdinarySelect(t *testing.T) {
	svc := NewService(&fakeConnectionRunner{}, nil, false, nil)
	require.NoError(t, svc.Validate("SELECT * FROM payment"))
}

func TestValidate_BlocksDenylistedKeyword(t *testing.T) {
	svc := NewService(&fakeConnectionRunner{}, nil, false, nil)
	err := svc.Validate("DROP TABLE payment")
	require.Error(t, err)
	var ce *contracts.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, contracts.ErrBlocked, ce.Kind)
}

func TestValidate_DoesNotMatchKeywordAsSubstring(t *testing.T) {
	svc := NewService(&fakeConnectionRunner{}, nil, false, nil)
	require.NoError(t, svc.Validate("SELECT updated_at FROM payment"))
}

func TestValidate_WarnOnlyAllowsDenylistedQuery(t *testing.T) {
	svc := NewService(&fakeConnectionRunner{}, nil, true, nil)
	require.NoError(t, svc.Validate("DELETE FROM payment"))
}

func TestValidate_CustomDenylistOverridesDefault(t *testing.T) {
	svc := NewService(&fakeConnectionRunner{}, []string{"select"}, false, nil)
	err := svc.Validate("SELECT * FROM payment")
	require.Error(t, err)

	require.NoError(t, svc.Validate("DROP TABLE payment"))
}

func TestExecute_ReturnsBoundedResult(t *testing.T) {
	conn := &fakeConnectionRunner{rows: rowsOf(3)}
	svc := NewService(conn, nil, false, nil)

	result, err := svc.Execute(context.Background(), "SELECT * FROM payment", "conn-1", "user-1", 10)
	require.NoError(t, err)
	assert.Equal(t, 3, result.RowCount)
	assert.False(t, result.Truncated)
	assert.Equal(t, 11, conn.lastMax)
}

func TestExecute_SetsTruncatedWhenMoreRowsAvailable(t *testing.T) {
	conn := &fakeConnectionRunner{rows: rowsOf(6)}
	svc := NewService(conn, nil, false, nil)

	result, err := svc.Execute(context.Background(), "SELECT * FROM payment", "conn-1", "user-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, result.RowCount)
	assert.True(t, result.Truncated)
}

func TestExecute_BlockedQueryNeverReachesConnectionRunner(t *testing.T) {
	conn := &fakeConnectionRunner{rows: rowsOf(1)}
	svc := NewService(conn, nil, false, nil)

	_, err := svc.Execute(context.Background(), "DROP TABLE payment", "conn-1", "user-1", 10)
	require.Error(t, err)
	var ce *contracts.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, contracts.ErrBlocked, ce.Kind)
	assert.Equal(t, 0, conn.calls)
}

func TestExecute_PropagatesNotFound(t *testing.T) {
	conn := &fakeConnectionRunner{err: contracts.NewError(contracts.ErrNotFound, "connection not found")}
	svc := NewService(conn, nil, false, nil)

	_, err := svc.Execute(context.Background(), "SELECT * FROM payment", "conn-1", "user-1", 10)
	require.Error(t, err)
	var ce *contracts.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, contracts.ErrNotFound, ce.Kind)
}

func TestExecute_WrapsDriverFailureAsDriverError(t *testing.T) {
	conn := &fakeConnectionRunner{err: assertError{}}
	svc := NewService(conn, nil, false, nil)

	_, err := svc.Execute(context.Background(), "SELECT * FROM payment", "conn-1", "user-1", 10)
	require.Error(t, err)
	var ce *contracts.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, contracts.ErrDriverError, ce.Kind)
	assert.NotContains(t, ce.Message, "hunter2")
}

func TestExecute_ZeroMaxRowsFetchesProbeRowOnly(t *testing.T) {
	conn := &fakeConnectionRunner{rows: rowsOf(1)}
	svc := NewService(conn, nil, false, nil)

	result, err := svc.Execute(context.Background(), "SELECT 1", "conn-1", "user-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, conn.lastMax)
	assert.Equal(t, 0, result.RowCount)
	assert.Empty(t, result.Rows)
	assert.True(t, result.Truncated)
}

func TestExecute_ZeroMaxRowsNotTruncatedWhenNoRowsExist(t *testing.T) {
	conn := &fakeConnectionRunner{rows: rowsOf(0)}
	svc := NewService(conn, nil, false, nil)

	result, err := svc.Execute(context.Background(), "SELECT 1 WHERE false", "conn-1", "user-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, result.RowCount)
	assert.False(t, result.Truncated)
}

func TestExecute_NegativeMaxRowsTreatedAsZero(t *testing.T) {
	conn := &fakeConnectionRunner{rows: rowsOf(1)}
	svc := NewService(conn, nil, false, nil)

	result, err := svc.Execute(context.Background(), "SELECT 1", "conn-1", "user-1", -5)
	require.NoError(t, err)
	assert.Equal(t, 1, conn.lastMax)
	assert.Equal(t, 0, result.RowCount)
	assert.True(t, result.Truncated)
}

// assertError simulates a raw driver failure containing a credential that
// must never reach the user-safe Message field.
type assertError struct{}

func (assertError) Error() string { return "connection refused for user hunter2" }
