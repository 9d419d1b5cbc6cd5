package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/alexanderramin/foreman/internal/cli/formatter"
	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/repository"
	"github.com/alexanderramin/foreman/internal/service"
	"github.com/alexanderramin/foreman/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	formatter.DisableColor()
	os.Exit(m.Run())
}

// testApp wires a full App backed by an in-memory DB for CLI integration tests.
func testApp(t *testing.T) *App {
	t.Helper()
	db := testutil.NewTestDB(t)
	uow := testutil.NewTestUoW(db)

	plans := repository.NewSQLitePlanRepo(db)
	items := repository.NewSQLitePlanItemRepo(db)
	leases := service.NewLeaseService(repository.NewSQLiteLeaseStore(db), plans, service.DefaultLeaseTTL, nil)

	return &App{
		Directory: service.NewDirectoryService(repository.NewSQLiteProjectRepo(db), repository.NewSQLiteResourceRepo(db), nil),
		Plans:     service.NewPlanService(plans, uow, nil),
		Leases:    leases,
		Tree:      service.NewTreeService(items, leases, uow, nil),
		Ledger:    service.NewLedgerService(items, repository.NewSQLiteDetailLineRepo(db), leases, uow, nil),
		Progress: service.NewProgressService(
			repository.NewSQLiteProgressRepo(db),
			repository.NewSQLiteProgressItemRepo(db),
			repository.NewSQLiteProgressDetailRepo(db),
			uow, nil, true),
		Transfers: service.NewTransferService(repository.NewSQLiteTransferRepo(db), uow, nil),
		Inventory: service.NewInventoryService(repository.NewSQLiteInventoryRepo(db), uow, nil),
		Import:    service.NewImportService(leases, uow, nil),
		Actor:     "alice",
	}
}

// executeCmd runs a cobra command and captures stdout/stderr.
func executeCmd(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// run executes args and fails the test on error.
func run(t *testing.T, app *App, args ...string) string {
	t.Helper()
	out, err := executeCmd(t, app, args...)
	require.NoError(t, err, out)
	return out
}

var idPattern = regexp.MustCompile(`\(([0-9a-f-]{36})\)`)

// createdID pulls the "(uuid)" out of a "Created ..." line.
func createdID(t *testing.T, out string) string {
	t.Helper()
	m := idPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, "no id in %q", out)
	return m[1]
}

// seedPlan registers a project and a plan with alice holding the lease.
func seedPlan(t *testing.T, app *App) (projectID, planID string) {
	t.Helper()
	projectID = createdID(t, run(t, app, "project", "add", "--name", "North Tower"))
	planID = createdID(t, run(t, app, "plan", "create", "--project", "North Tower", "--name", "Tower WBS", "--reviewer", "rev-1"))
	run(t, app, "lease", "acquire", planID)
	return projectID, planID
}

// --- root ---

func TestRootCmd_NoArgs_ShowsHelp(t *testing.T) {
	app := testApp(t)

	output, err := executeCmd(t, app)
	require.NoError(t, err)
	assert.Contains(t, output, "foreman")
	assert.Contains(t, output, "transfer")
}

func TestRootCmd_RequiresActor(t *testing.T) {
	app := testApp(t)
	app.Actor = ""

	_, err := executeCmd(t, app, "plan", "create", "--project", "x", "--name", "y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--as")
}

// --- projects and resources ---

func TestProjectCmd_AddAndList(t *testing.T) {
	app := testApp(t)

	run(t, app, "project", "add", "--name", "Harbour Wall")
	out := run(t, app, "project", "list")
	assert.Contains(t, out, "Harbour Wall")
}

func TestResourceCmd_AddListAndBadRef(t *testing.T) {
	app := testApp(t)

	run(t, app, "resource", "add", "material:cement", "--unit", "t")
	run(t, app, "resource", "add", "team:crew-a", "--name", "Crew A")

	out := run(t, app, "resource", "list", "--kind", "team")
	assert.Contains(t, out, "Crew A")
	assert.NotContains(t, out, "cement")

	_, err := executeCmd(t, app, "resource", "add", "cement")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kind:id")

	_, err = executeCmd(t, app, "resource", "add", "rock:granite")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// --- plans, leases and items ---

func TestPlanCmd_ShowAndApprove(t *testing.T) {
	app := testApp(t)
	_, planID := seedPlan(t, app)

	out := run(t, app, "plan", "show", planID)
	assert.Contains(t, out, "0/1 approved")
	assert.Contains(t, out, "held by alice")

	_, err := executeCmd(t, app, "plan", "approve", planID)
	assert.ErrorIs(t, err, domain.ErrValidation, "alice is not a reviewer")

	out = run(t, app, "--as", "rev-1", "plan", "approve", planID)
	assert.Contains(t, out, "1/1 approved")
}

func TestLeaseCmd_OtherActorIsLockedOut(t *testing.T) {
	app := testApp(t)
	_, planID := seedPlan(t, app)

	_, err := executeCmd(t, app, "--as", "bob", "lease", "acquire", planID)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	_, err = executeCmd(t, app, "--as", "bob", "item", "add", planID, "--index", "1", "--name", "Sneaky")
	assert.ErrorIs(t, err, domain.ErrNotHolder)

	run(t, app, "lease", "release", planID)
	run(t, app, "--as", "bob", "lease", "acquire", planID)
	out := run(t, app, "lease", "show", planID)
	assert.Contains(t, out, "bob")
}

func TestLeaseCmd_AcquireWithTTL(t *testing.T) {
	app := testApp(t)
	planID := createdID(t, run(t, app, "plan", "create",
		"--project", createdID(t, run(t, app, "project", "add", "--name", "Quay")), "--name", "Quay WBS"))

	before := time.Now()
	run(t, app, "lease", "acquire", planID, "--ttl", "2h")
	l, err := app.Leases.Get(context.Background(), planID)
	require.NoError(t, err)
	assert.True(t, l.ExpiresAt.After(before.Add(time.Hour)), "expires %s", l.ExpiresAt)

	_, err = executeCmd(t, app, "lease", "renew", planID, "--ttl", "2h")
	assert.Error(t, err, "renew keeps the configured ttl")
}

func TestItemCmd_BuildTreeAndRenameIndex(t *testing.T) {
	app := testApp(t)
	_, planID := seedPlan(t, app)

	run(t, app, "item", "add", planID, "--index", "1", "--name", "Structure", "--code", "WC-STR")
	run(t, app, "item", "add", planID, "--index", "1.1", "--parent", "1", "--name", "Columns",
		"--code", "WC-COL", "--qty", "24", "--price", "310", "--unit", "pcs", "--start", "2026-05-01")
	run(t, app, "item", "add", planID, "--index", "2", "--name", "Roof", "--code", "WC-ROOF")

	out := run(t, app, "item", "tree", planID)
	assert.Contains(t, out, "└─ 1.1 Columns")
	assert.Contains(t, out, "7,440.00")

	run(t, app, "item", "update", "WC-STR", "--index", "3")
	col, err := app.Tree.GetItem(context.Background(), "WC-COL")
	require.NoError(t, err)
	require.NotNil(t, col.ParentIndex)
	assert.Equal(t, "3", *col.ParentIndex, "children follow a renamed parent")

	out = run(t, app, "item", "show", "WC-COL")
	assert.Contains(t, out, "2026-05-01")
	assert.Contains(t, out, "No detail lines.")

	_, err = executeCmd(t, app, "item", "delete", "WC-STR")
	assert.ErrorIs(t, err, domain.ErrHasLiveChildren)
	run(t, app, "item", "delete", "WC-COL")
	run(t, app, "item", "delete", "WC-STR")

	out = run(t, app, "item", "tree", planID)
	assert.NotContains(t, out, "Structure")
}

func TestItemCmd_BadFlagValues(t *testing.T) {
	app := testApp(t)
	_, planID := seedPlan(t, app)

	_, err := executeCmd(t, app, "item", "add", planID, "--index", "1", "--name", "X", "--qty", "lots")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid number")

	_, err = executeCmd(t, app, "item", "add", planID, "--index", "1", "--name", "X", "--start", "01/05/2026")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}

func TestDetailCmd_AddListRemove(t *testing.T) {
	app := testApp(t)
	_, planID := seedPlan(t, app)
	run(t, app, "resource", "add", "material:cement")
	run(t, app, "item", "add", planID, "--index", "1", "--name", "Footings", "--code", "WC-FT")

	out := run(t, app, "detail", "add", "WC-FT", "material:cement", "--qty", "40", "--price", "9.5")
	assert.Contains(t, out, "380.00")

	lines, err := app.Ledger.ListDetails(context.Background(), "WC-FT")
	require.NoError(t, err)
	require.Len(t, lines, 1)

	out = run(t, app, "detail", "list", "WC-FT")
	assert.Contains(t, out, "cement")

	run(t, app, "detail", "remove", lines[0].ID)
	out = run(t, app, "detail", "list", "WC-FT")
	assert.Contains(t, out, "No detail lines.")
}

func TestImportCmd(t *testing.T) {
	app := testApp(t)
	_, planID := seedPlan(t, app)

	path := filepath.Join(t.TempDir(), "wbs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
items:
  - index: "1"
    name: Earthworks
  - index: "1.1"
    parent_index: "1"
    name: Excavation
    quantity: 120
    unit_price: 14
`), 0o644))

	out := run(t, app, "import", planID, path)
	assert.Contains(t, out, "Imported 2 item(s) and 0 detail line(s)")

	out = run(t, app, "item", "tree", planID)
	assert.Contains(t, out, "└─ 1.1 Excavation")
}

// --- progress ---

func TestProgressCmd_MaterializeReportResync(t *testing.T) {
	app := testApp(t)
	_, planID := seedPlan(t, app)
	run(t, app, "item", "add", planID, "--index", "1", "--name", "Slab", "--code", "WC-SLAB", "--qty", "10")

	out := run(t, app, "progress", "materialize", planID, "--project", "North Tower")
	assert.Contains(t, out, "1 created")

	projectID, err := resolveProjectID(context.Background(), app, "North Tower")
	require.NoError(t, err)
	p, err := app.Progress.GetProgress(context.Background(), planID, projectID)
	require.NoError(t, err)
	items, err := app.Progress.ListItems(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	out = run(t, app, "progress", "report", items[0].ID, "--percent", "40", "--used", "3")
	assert.Contains(t, out, "in progress")

	_, err = executeCmd(t, app, "progress", "report", items[0].ID, "--percent", "20")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "progress never goes back")

	_, err = executeCmd(t, app, "progress", "report", items[0].ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to report")

	run(t, app, "item", "update", "WC-SLAB", "--name", "Ground slab")
	out = run(t, app, "progress", "resync", planID)
	assert.Contains(t, out, "1 updated")

	out = run(t, app, "progress", "show", planID, "--project", "North Tower")
	assert.Contains(t, out, "Ground slab")
	assert.Contains(t, out, "3/10")
}

// --- transfers and inventory ---

func TestTransferCmd_AllocateApproveMovesStock(t *testing.T) {
	app := testApp(t)
	run(t, app, "project", "add", "--name", "Quarry")
	run(t, app, "project", "add", "--name", "Site")
	run(t, app, "resource", "add", "material:cement")
	run(t, app, "inventory", "receive", "material:cement", "--project", "Quarry", "--qty", "100")

	out := run(t, app, "transfer", "allocate", "--from", "Quarry", "--to", "Site",
		"--line", "material:cement=30", "--priority", "high")
	assert.Contains(t, out, "RA-0001")
	reqID := createdID(t, out)

	out = run(t, app, "--as", "director", "transfer", "approve", reqID)
	assert.Contains(t, out, "approved")

	out = run(t, app, "inventory", "balance", "material:cement", "--project", "Site")
	assert.Contains(t, out, "30")
	out = run(t, app, "inventory", "balance", "material:cement", "--project", "Quarry")
	assert.Contains(t, out, "70")

	out = run(t, app, "transfer", "show", reqID)
	assert.Contains(t, out, "director")

	_, err := executeCmd(t, app, "transfer", "delete", reqID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTransferCmd_MobilizeDraftPromoteReject(t *testing.T) {
	app := testApp(t)
	run(t, app, "project", "add", "--name", "Site")
	run(t, app, "resource", "add", "vehicle:crane-1")

	out := run(t, app, "transfer", "mobilize", "--to", "Site", "--line", "vehicle:crane-1=1", "--draft")
	assert.Contains(t, out, "MB-0001")
	assert.Contains(t, out, "draft")
	reqID := createdID(t, out)

	out = run(t, app, "transfer", "promote", reqID)
	assert.Contains(t, out, "pending")

	_, err := executeCmd(t, app, "transfer", "approve", reqID)
	assert.ErrorIs(t, err, domain.ErrInsufficientResource, "the pool holds no crane")

	run(t, app, "transfer", "reject", reqID)
	out = run(t, app, "transfer", "list", "--kind", "mobilization", "--status", "rejected")
	assert.Contains(t, out, "MB-0001")

	_, err = executeCmd(t, app, "transfer", "mobilize", "--to", "Site", "--line", "vehicle:crane-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kind:id=quantity")
}

func TestInventoryCmd_PoolListAndDeactivate(t *testing.T) {
	app := testApp(t)
	run(t, app, "resource", "add", "worker:w1")
	run(t, app, "inventory", "receive", "worker:w1", "--qty", "2")

	out := run(t, app, "inventory", "list", "--pool")
	assert.Contains(t, out, "pool")
	assert.Contains(t, out, "w1")

	_, err := executeCmd(t, app, "inventory", "deactivate", "worker:w1")
	assert.ErrorIs(t, err, domain.ErrValidation, "a row holding stock stays active")

	_, err = executeCmd(t, app, "inventory", "list", "--pool", "--project", "x")
	assert.Error(t, err)
}
