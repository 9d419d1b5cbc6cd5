package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alexanderramin/foreman/internal/db"
	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/repository"
	"github.com/alexanderramin/foreman/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	planner  = "alice"
	intruder = "bob"
	manager  = "carol"
)

// testEnv wires every service over one database with a hand-driven clock.
type testEnv struct {
	t   *testing.T
	ctx context.Context
	db  *sql.DB
	now time.Time

	directory DirectoryService
	plans     PlanService
	leases    LeaseService
	tree      TreeService
	ledger    LedgerService
	progress  ProgressService
	transfers TransferService
	inventory InventoryService
	imports   ImportService

	items      repository.PlanItemRepo
	details    repository.DetailLineRepo
	stock      repository.InventoryRepo
	transferDB repository.TransferRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvOn(t, testutil.NewTestDB(t))
}

func newTestEnvOn(t *testing.T, database *sql.DB) *testEnv {
	t.Helper()
	e := &testEnv{
		t:   t,
		ctx: context.Background(),
		db:  database,
		now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	}
	e.build(testutil.NewTestUoW(database))
	return e
}

// build (re)creates the services on uow so tests can inject failures.
func (e *testEnv) build(uow db.UnitOfWork) {
	database := e.db
	clock := Clock(func() time.Time { return e.now })

	projects := repository.NewSQLiteProjectRepo(database)
	resources := repository.NewSQLiteResourceRepo(database)
	plans := repository.NewSQLitePlanRepo(database)
	e.items = repository.NewSQLitePlanItemRepo(database)
	e.details = repository.NewSQLiteDetailLineRepo(database)
	e.stock = repository.NewSQLiteInventoryRepo(database)
	e.transferDB = repository.NewSQLiteTransferRepo(database)

	e.directory = NewDirectoryService(projects, resources, clock)
	e.plans = NewPlanService(plans, uow, clock)
	e.leases = NewLeaseService(repository.NewSQLiteLeaseStore(database), plans, DefaultLeaseTTL, clock)
	e.tree = NewTreeService(e.items, e.leases, uow, clock)
	e.ledger = NewLedgerService(e.items, e.details, e.leases, uow, clock)
	e.progress = NewProgressService(
		repository.NewSQLiteProgressRepo(database),
		repository.NewSQLiteProgressItemRepo(database),
		repository.NewSQLiteProgressDetailRepo(database),
		uow, clock, true)
	e.transfers = NewTransferService(e.transferDB, uow, clock)
	e.inventory = NewInventoryService(e.stock, uow, clock)
	e.imports = NewImportService(e.leases, uow, clock)
}

// interleavedUoW runs before ahead of the next unit of work, standing in for
// another actor who acts between a caller's first reads and its transaction.
type interleavedUoW struct {
	db.UnitOfWork
	before func()
}

func (u *interleavedUoW) WithinTx(ctx context.Context, fn db.TxFunc) error {
	if before := u.before; before != nil {
		u.before = nil
		before()
	}
	return u.UnitOfWork.WithinTx(ctx, fn)
}

// loseLeaseBeforeNextTx lets planID's lease lapse and hands it to intruder
// just before the next transaction starts.
func (e *testEnv) loseLeaseBeforeNextTx(planID string) {
	e.build(&interleavedUoW{UnitOfWork: testutil.NewTestUoW(e.db), before: func() {
		e.advance(DefaultLeaseTTL + time.Minute)
		_, err := e.leases.Acquire(e.ctx, planID, intruder, 0)
		require.NoError(e.t, err)
	}})
}

func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

func (e *testEnv) project(name string) *domain.Project {
	e.t.Helper()
	p, err := e.directory.AddProject(e.ctx, name)
	require.NoError(e.t, err)
	return p
}

func (e *testEnv) resource(ref domain.ResourceRef) {
	e.t.Helper()
	_, err := e.directory.AddResource(e.ctx, ref, string(ref.Kind())+" "+ref.ID(), "unit")
	require.NoError(e.t, err)
}

// leasedPlan creates a project and a plan and hands the edit lease to planner.
func (e *testEnv) leasedPlan() (*domain.Project, *domain.ConstructionPlan) {
	e.t.Helper()
	proj := e.project("Riverside Tower")
	plan, err := e.plans.Create(e.ctx, planner, proj.ID, "Main WBS", []string{"rev-1", "rev-2"})
	require.NoError(e.t, err)
	_, err = e.leases.Acquire(e.ctx, plan.ID, planner, 0)
	require.NoError(e.t, err)
	return proj, plan
}

func (e *testEnv) item(planID, index string, parent *string) *domain.PlanItem {
	e.t.Helper()
	it, err := e.tree.CreateItem(e.ctx, planner, planID, ItemInput{
		Index:       index,
		ParentIndex: parent,
		Name:        "Item " + index,
		Unit:        "m3",
		Quantity:    decimal.NewFromInt(10),
		UnitPrice:   decimal.NewFromInt(3),
	})
	require.NoError(e.t, err)
	return it
}

func (e *testEnv) receive(ref domain.ResourceRef, projectID, qty string) {
	e.t.Helper()
	_, err := e.inventory.Receive(e.ctx, manager, domain.InventoryKey{Resource: ref, ProjectID: projectID}, dec(qty))
	require.NoError(e.t, err)
}

func (e *testEnv) balance(ref domain.ResourceRef, projectID string) decimal.Decimal {
	e.t.Helper()
	row, err := e.inventory.Balance(e.ctx, domain.InventoryKey{Resource: ref, ProjectID: projectID})
	if isNotFound(err) {
		return decimal.Zero
	}
	require.NoError(e.t, err)
	return row.Quantity
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }

func indicesOf(items []*domain.PlanItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Index)
	}
	return out
}
