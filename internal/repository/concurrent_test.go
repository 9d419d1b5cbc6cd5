package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexanderramin/foreman/internal/db"
	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentAccess_WithdrawalsNeverOverdraw runs competing read-modify-write
// withdrawals against one inventory row on a file-backed database. Writers are
// serialized by immediate transactions, so exactly stock/step withdrawals win.
func TestConcurrentAccess_WithdrawalsNeverOverdraw(t *testing.T) {
	database := testutil.NewFileTestDB(t)
	ctx := context.Background()
	uow := db.NewSQLiteUnitOfWork(database)

	proj := testutil.NewTestProject("Depot")
	require.NoError(t, NewSQLiteProjectRepo(database).Create(ctx, proj))
	key := domain.InventoryKey{Resource: domain.Material("rebar"), ProjectID: proj.ID}
	require.NoError(t, NewSQLiteInventoryRepo(database).Create(ctx,
		testutil.NewTestInventoryRow(key.Resource, proj.ID, "100")))

	const workers = 12
	step := decimal.NewFromInt(10)
	var ok, short atomic.Int32
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			err := uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
				repo := NewSQLiteInventoryRepo(tx)
				row, err := repo.Get(ctx, key)
				if err != nil {
					return err
				}
				if err := row.Withdraw(step, time.Now().UTC()); err != nil {
					return err
				}
				return repo.Update(ctx, row)
			})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrInsufficientResource):
				short.Add(1)
			default:
				t.Errorf("worker %d: withdraw: %v", worker, err)
			}
		}(w)
	}
	wg.Wait()

	assert.EqualValues(t, 10, ok.Load())
	assert.EqualValues(t, workers-10, short.Load())

	row, err := NewSQLiteInventoryRepo(database).Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, row.Quantity.IsZero(), "got %s", row.Quantity)
	assert.EqualValues(t, 11, row.Version)
}

// TestConcurrentAccess_SingleLeaseWinner races several actors for the same
// plan lease. Exactly one acquisition may succeed.
func TestConcurrentAccess_SingleLeaseWinner(t *testing.T) {
	database := testutil.NewFileTestDB(t)
	ctx := context.Background()

	proj := testutil.NewTestProject("Race")
	require.NoError(t, NewSQLiteProjectRepo(database).Create(ctx, proj))
	plan := testutil.NewTestPlan(proj.ID, "Plan")
	require.NoError(t, NewSQLitePlanRepo(database).Create(ctx, plan))

	store := NewSQLiteLeaseStore(database)
	now := time.Now().UTC()

	const actors = 8
	var winners atomic.Int32
	var wg sync.WaitGroup
	for a := 0; a < actors; a++ {
		wg.Add(1)
		go func(actor int) {
			defer wg.Done()
			_, err := store.Acquire(ctx, plan.ID, fmt.Sprintf("actor-%d", actor), now, 15*time.Minute)
			switch {
			case err == nil:
				winners.Add(1)
			case errors.Is(err, domain.ErrLockHeld):
			default:
				t.Errorf("actor %d: acquire: %v", actor, err)
			}
		}(a)
	}
	wg.Wait()

	assert.EqualValues(t, 1, winners.Load())
}

// TestConcurrentAccess_ReadsDuringWrites lists plan items while a writer
// appends to the same plan. Every listing must be a consistent dotted-order
// snapshot.
func TestConcurrentAccess_ReadsDuringWrites(t *testing.T) {
	database := testutil.NewFileTestDB(t)
	ctx := context.Background()

	proj := testutil.NewTestProject("ReadWrite")
	require.NoError(t, NewSQLiteProjectRepo(database).Create(ctx, proj))
	plan := testutil.NewTestPlan(proj.ID, "Plan")
	require.NoError(t, NewSQLitePlanRepo(database).Create(ctx, plan))
	items := NewSQLitePlanItemRepo(database)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 20; i++ {
			if err := items.Create(ctx, testutil.NewTestPlanItem(plan.ID, fmt.Sprint(i))); err != nil {
				t.Errorf("writer: create item %d: %v", i, err)
				return
			}
		}
	}()

	for r := 0; r < 5; r++ {
		wg.Add(1)
		go func(reader int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				list, err := items.ListByPlan(ctx, plan.ID, false)
				if err != nil {
					t.Errorf("reader %d: list: %v", reader, err)
					return
				}
				for j := 1; j < len(list); j++ {
					if domain.CompareIndex(list[j-1].Index, list[j].Index) >= 0 {
						t.Errorf("reader %d: %s listed before %s", reader, list[j-1].Index, list[j].Index)
					}
				}
			}
		}(r)
	}
	wg.Wait()

	list, err := items.ListByPlan(ctx, plan.ID, false)
	require.NoError(t, err)
	assert.Len(t, list, 20)
}
