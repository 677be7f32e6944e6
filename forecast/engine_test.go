package forecast_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cashflow-engine/forecast"
	"github.com/warp/cashflow-engine/forecast/store"
)

func TestProjectionEngine_ProjectFromStore(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	jan1 := date(2025, time.January, 1)
	require.NoError(t, mem.SaveAccount(ctx, account("checking", "5000", jan1)))
	require.NoError(t, mem.SaveAccount(ctx, account("external", "0", jan1)))
	require.NoError(t, mem.SaveTransaction(ctx,
		recurring(transfer("bill", "checking", "external", "100", date(2025, time.January, 15)), forecast.EveryMonth(15))))
	require.NoError(t, mem.SaveTransaction(ctx,
		transfer("bonus", "external", "checking", "250", date(2025, time.February, 1))))

	engine := &forecast.ProjectionEngine{Store: mem}
	points, err := engine.Project(ctx, ptr(forecast.AccountID("checking")), window(jan1, date(2025, time.March, 31)))
	require.NoError(t, err)

	require.Len(t, points, 5)
	assert.True(t, balanceOn(t, points, "checking", date(2025, time.January, 15)).Equal(dec("4900")))
	assert.True(t, balanceOn(t, points, "checking", date(2025, time.February, 1)).Equal(dec("5150")))
	assert.True(t, balanceOn(t, points, "checking", date(2025, time.March, 15)).Equal(dec("4950")))
}

func TestProjectionEngine_UnknownAccount(t *testing.T) {
	engine := &forecast.ProjectionEngine{Store: store.NewMemory()}
	jan1 := date(2025, time.January, 1)

	_, err := engine.Project(context.Background(), ptr(forecast.AccountID("ghost")), window(jan1, jan1))
	assert.ErrorIs(t, err, forecast.ErrAccountNotFound)
	assert.True(t, forecast.IsNotFound(err))
}

type failingStore struct{}

var errBoom = errors.New("boom")

func (failingStore) ListAccounts(context.Context) ([]forecast.Account, error) { return nil, nil }
func (failingStore) ListTransactions(context.Context) ([]forecast.Transaction, error) {
	return nil, errBoom
}

func TestProjectionEngine_LoadError(t *testing.T) {
	engine := &forecast.ProjectionEngine{Store: failingStore{}}
	_, err := engine.Load(context.Background())
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, forecast.IsClientError(err))
}
