package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/repository"
	"github.com/alexanderramin/foreman/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []UseCaseEvent
}

func (r *recordingObserver) ObserveUseCase(_ context.Context, event UseCaseEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func TestObserver_RecordsOutcomeAndFields(t *testing.T) {
	e := newTestEnv(t)
	proj := e.project("Quarry")
	e.resource(cement)

	rec := &recordingObserver{}
	svc := NewInventoryService(repository.NewSQLiteInventoryRepo(e.db), testutil.NewTestUoW(e.db),
		func() time.Time { return e.now }, rec)
	key := domain.InventoryKey{Resource: cement, ProjectID: proj.ID}

	_, err := svc.Receive(e.ctx, manager, key, dec("4"))
	require.NoError(t, err)
	_, err = svc.Receive(e.ctx, manager, key, dec("-1"))
	require.Error(t, err)

	require.Len(t, rec.events, 2)
	ok, failed := rec.events[0], rec.events[1]
	assert.Equal(t, "receive-inventory", ok.Name)
	assert.True(t, ok.Success)
	assert.Equal(t, "4", ok.Fields["balance"])
	assert.Equal(t, manager, ok.Fields["actor"])

	assert.False(t, failed.Success)
	assert.ErrorIs(t, failed.Err, domain.ErrValidation)
	assert.NotContains(t, failed.Fields, "balance")
}

func TestLogUseCaseObserver_LevelsByErrorCategory(t *testing.T) {
	var buf bytes.Buffer
	obs := NewLogUseCaseObserver(&buf, slog.LevelInfo)
	ctx := context.Background()

	obs.ObserveUseCase(ctx, UseCaseEvent{Name: "approve-transfer", Success: true, Fields: map[string]any{"code": "RA-0001"}})
	obs.ObserveUseCase(ctx, UseCaseEvent{Name: "approve-transfer", Err: domain.ErrInsufficientResource})
	obs.ObserveUseCase(ctx, UseCaseEvent{Name: "approve-transfer", Err: errors.New("disk full")})

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "code=RA-0001")
	assert.Contains(t, out, `level=WARN msg=service_use_case use_case=approve-transfer`)
	assert.Contains(t, out, `level=ERROR`)
	assert.Contains(t, out, `error="disk full"`)
}

func TestLogUseCaseObserver_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	obs := NewLogUseCaseObserver(&buf, slog.LevelWarn)

	obs.ObserveUseCase(context.Background(), UseCaseEvent{Name: "acquire-lease", Success: true})
	assert.Empty(t, buf.String())

	assert.IsType(t, NoopUseCaseObserver{}, NewLogUseCaseObserver(nil, slog.LevelInfo))
}
