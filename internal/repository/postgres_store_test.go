package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
	pkgpg "StockPulse/pkg/postgres"
	"StockPulse/pkg/postgres/postgrestest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPostgres(t *testing.T) *pkgpg.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in -short mode")
	}

	ctx := context.Background()
	pc, err := postgrestest.Start(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pc.Close(context.Background()) })

	client, err := pkgpg.NewClient(pkgpg.WithDSN(pc.DSN))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.AutoMigrate(Records()...))
	return client
}

func TestPostgresStores(t *testing.T) {
	client := setupPostgres(t)
	ctx := context.Background()
	instruments := NewPostgresInstrumentStore(client.DB())
	trades := NewPostgresTradeStore(client.DB())

	t.Run("find by symbol on empty table", func(t *testing.T) {
		inst, err := instruments.FindBySymbol(ctx, "NOPE")
		require.NoError(t, err)
		assert.Nil(t, inst)
	})

	t.Run("find or create is idempotent", func(t *testing.T) {
		d := models.InstrumentDefaults{DisplayName: "AAPL", Exchange: models.DefaultExchange}
		first, err := instruments.FindOrCreate(ctx, "AAPL", d)
		require.NoError(t, err)
		require.NotZero(t, first.ID)
		assert.Equal(t, "NASDAQ", first.Exchange)

		second, err := instruments.FindOrCreate(ctx, "AAPL", models.InstrumentDefaults{DisplayName: "Apple", Exchange: "X"})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "AAPL", second.DisplayName)
	})

	t.Run("concurrent creators converge on one row", func(t *testing.T) {
		const n = 8
		ids := make([]int64, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				inst, err := instruments.FindOrCreate(ctx, "TSLA", models.InstrumentDefaults{DisplayName: "TSLA", Exchange: "NASDAQ"})
				if assert.NoError(t, err) {
					ids[i] = inst.ID
				}
			}(i)
		}
		wg.Wait()
		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}
	})

	t.Run("bulk insert and half-open range read", func(t *testing.T) {
		inst, err := instruments.FindOrCreate(ctx, "MSFT", models.InstrumentDefaults{DisplayName: "MSFT", Exchange: "NASDAQ"})
		require.NoError(t, err)

		base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
		batch := []models.PendingTrade{
			{InstrumentID: inst.ID, Price: 3, Volume: 1, TradedAt: base.Add(30 * time.Minute)},
			{InstrumentID: inst.ID, Price: 1, Volume: 1, TradedAt: base},
			{InstrumentID: inst.ID, Price: 2, Volume: 1, TradedAt: base.Add(10 * time.Minute)},
			{InstrumentID: inst.ID, Price: 4, Volume: 1, TradedAt: base.Add(time.Hour)},
		}
		require.NoError(t, trades.BulkInsert(ctx, batch))

		got, err := trades.FindInRange(ctx, inst.ID, base, base.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []float64{1, 2, 3}, []float64{got[0].Price, got[1].Price, got[2].Price})
		assert.True(t, got[0].TradedAt.Equal(base))
	})

	t.Run("bulk insert with unknown stock fails the whole batch", func(t *testing.T) {
		inst, err := instruments.FindOrCreate(ctx, "AMZN", models.InstrumentDefaults{DisplayName: "AMZN", Exchange: "NASDAQ"})
		require.NoError(t, err)

		at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		err = trades.BulkInsert(ctx, []models.PendingTrade{
			{InstrumentID: inst.ID, Price: 1, Volume: 1, TradedAt: at},
			{InstrumentID: 999999, Price: 1, Volume: 1, TradedAt: at},
		})
		require.Error(t, err)

		got, err := trades.FindInRange(ctx, inst.ID, at, at.Add(time.Hour))
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
