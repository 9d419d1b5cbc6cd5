package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/importer"
	"github.com/alexanderramin/foreman/internal/repository"
	"github.com/alexanderramin/foreman/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wbsYAML = `
items:
  - index: "1.1"
    parent_index: "1"
    work_code: WC-COLS
    name: Columns
    unit: pcs
    quantity: 24
    unit_price: "310"
    details:
      - kind: material
        resource_id: cement
        quantity: 40
        unit_price: 9.5
      - kind: team
        resource_id: crew-a
        quantity: 1
  - index: "1"
    name: Structure
  - index: "2"
    name: Roof
    start_date: "2026-05-01"
    end_date: "2026-06-15"
`

func writeImportFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImport_YAMLFileInOneTransaction(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()
	e.resource(cement)
	e.resource(domain.Team("crew-a"))

	res, err := e.imports.ImportItems(e.ctx, planner, plan.ID, writeImportFile(t, "wbs.yaml", wbsYAML))
	require.NoError(t, err)
	assert.Equal(t, plan.ID, res.PlanID)
	assert.Equal(t, 3, res.ItemCount)
	assert.Equal(t, 2, res.DetailCount)

	sub, err := e.tree.ListSubtree(e.ctx, plan.ID, "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "1.1"}, indicesOf(sub))

	cols, err := e.tree.GetItem(e.ctx, "WC-COLS")
	require.NoError(t, err)
	assert.True(t, dec("7440").Equal(cols.TotalPrice))
	lines, err := e.ledger.ListDetails(e.ctx, "WC-COLS")
	require.NoError(t, err)
	require.Len(t, lines, 2)
}

func TestImport_RetryCountsRowsOnce(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()
	e.resource(cement)
	e.resource(domain.Team("crew-a"))

	uow := &testutil.ConflictOnceUoW{DB: e.db, Err: repository.ErrStaleVersion}
	e.build(uow)
	res, err := e.imports.ImportItems(e.ctx, planner, plan.ID, writeImportFile(t, "wbs.yaml", wbsYAML))
	require.NoError(t, err)
	assert.EqualValues(t, 2, uow.Attempts.Load())
	assert.Equal(t, 3, res.ItemCount)
	assert.Equal(t, 2, res.DetailCount)

	items, err := e.items.ListByPlan(e.ctx, plan.ID, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "1.1", "2"}, indicesOf(items))
	lines, err := e.ledger.ListDetails(e.ctx, "WC-COLS")
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestImport_JSONFile(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()

	path := writeImportFile(t, "wbs.json", `{"items": [{"index": "1", "name": "Site prep", "quantity": "3", "unit_price": 100}]}`)
	res, err := e.imports.ImportItems(e.ctx, planner, plan.ID, path)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ItemCount)
}

func TestImport_ValidationCollectsErrors(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()

	schema := &importer.ImportSchema{Items: []importer.ItemImport{
		{Index: "x", Name: ""},
		{Index: "2", Name: "Ok", Quantity: "-1"},
	}}
	_, err := e.imports.ImportItemsFromSchema(e.ctx, planner, plan.ID, schema)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "(3 errors)")
}

func TestImport_RollsBackOnFailure(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()
	e.resource(cement)
	e.item(plan.ID, "9", nil)

	// crew-a is not registered, so the second detail fails after the first
	// items were written.
	_, err := e.imports.ImportItems(e.ctx, planner, plan.ID, writeImportFile(t, "wbs.yml", wbsYAML))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	items, err := e.items.ListByPlan(e.ctx, plan.ID, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"9"}, indicesOf(items), "nothing from the file survives")
}

func TestImport_RequiresLease(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()

	_, err := e.imports.ImportItems(e.ctx, intruder, plan.ID, writeImportFile(t, "wbs.yaml", wbsYAML))
	assert.ErrorIs(t, err, domain.ErrNotHolder)

	invalid := &importer.ImportSchema{Items: []importer.ItemImport{{Index: "x"}}}
	_, err = e.imports.ImportItemsFromSchema(e.ctx, intruder, plan.ID, invalid)
	assert.ErrorIs(t, err, domain.ErrNotHolder, "the lease is checked before the file is validated")
	assert.NotErrorIs(t, err, domain.ErrValidation)
}

func TestImport_ConflictsWithExistingIndex(t *testing.T) {
	e := newTestEnv(t)
	_, plan := e.leasedPlan()
	e.item(plan.ID, "1", nil)

	path := writeImportFile(t, "wbs.json", `{"items": [{"index": "1", "name": "Clash"}]}`)
	_, err := e.imports.ImportItems(e.ctx, planner, plan.ID, path)
	assert.ErrorIs(t, err, domain.ErrDuplicateIndex)
}
