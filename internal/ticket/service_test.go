package ticket

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"recycle-fleet-backend/internal/apperr"
	"recycle-fleet-backend/internal/model"
	"recycle-fleet-backend/internal/store"
)

var testDBSeq int

func newTestStore(t *testing.T) store.Store {
	testDBSeq++
	dsn := fmt.Sprintf("file:tickettest%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	// A single connection serializes writes, so concurrent creations
	// interleave at the statement level without tripping SQLite busy
	// errors.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.Unit{},
		&model.MachineAssignment{},
		&model.MaintenanceTicket{},
	))
	return store.NewGormStore(db)
}

func seedFixtures(t *testing.T, s store.Store) {
	require.NoError(t, s.DB().Create(&model.Unit{
		ID:     "RX-001",
		Name:   "Terminal RX-001",
		Status: model.UnitStatusActive,
		Secret: "secret-RX-001",
	}).Error)
	require.NoError(t, s.DB().Create(&model.MachineAssignment{
		UnitID:       "RX-001",
		TechnicianID: "tech-1",
		PINHash:      "x",
		PINExpiresAt: time.Now().Add(time.Hour),
		Tier:         model.TierStandard,
		Active:       true,
	}).Error)
}

func createTicket(t *testing.T, svc *Service) *model.MaintenanceTicket {
	ticket, err := svc.Create(context.Background(), CreateInput{
		UnitID:      "RX-001",
		Category:    "jam",
		Description: "conveyor stuck",
		ReporterID:  "staff-1",
	})
	require.NoError(t, err)
	return ticket
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedFixtures(t, s)
	svc := NewService(s, nil)
	svc.now = func() time.Time { return time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC) }

	first := createTicket(t, svc)
	assert.Equal(t, "TKT-202608-0001", first.Number)
	assert.Equal(t, model.TicketPending, first.Status)
	assert.Equal(t, "normal", first.Priority)

	second := createTicket(t, svc)
	assert.Equal(t, "TKT-202608-0002", second.Number)

	// A new month starts a fresh sequence.
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC) }
	third := createTicket(t, svc)
	assert.Equal(t, "TKT-202609-0001", third.Number)

	t.Run("unknown unit", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateInput{UnitID: "RX-MISSING", Category: "jam"})
		var nfErr *apperr.NotFoundError
		assert.ErrorAs(t, err, &nfErr)
	})

	t.Run("missing category", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateInput{UnitID: "RX-001"})
		var valErr *apperr.ValidationError
		assert.ErrorAs(t, err, &valErr)
	})
}

func TestService_Create_SequencePastFourDigits(t *testing.T) {
	s := newTestStore(t)
	seedFixtures(t, s)
	svc := NewService(s, nil)
	svc.now = func() time.Time { return time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC) }

	// A busy month has outgrown the zero padding. 9999 sorts above
	// 10000 byte-wise, so the maximum must be picked numerically.
	for _, number := range []string{"TKT-202608-9999", "TKT-202608-10000"} {
		require.NoError(t, s.DB().Create(&model.MaintenanceTicket{
			Number:   number,
			UnitID:   "RX-001",
			Category: "jam",
			Status:   model.TicketPending,
		}).Error)
	}

	ticket := createTicket(t, svc)
	assert.Equal(t, "TKT-202608-10001", ticket.Number)
}

// staleSeqStore hands out one stale sequence number before deferring to
// the real store, to force a numbering conflict deterministically.
type staleSeqStore struct {
	store.Store
	stale int
	once  sync.Once
}

func (s *staleSeqStore) NextTicketSeq(ctx context.Context, prefix string) (int, error) {
	var useStale bool
	s.once.Do(func() { useStale = true })
	if useStale {
		return s.stale, nil
	}
	return s.Store.NextTicketSeq(ctx, prefix)
}

func TestService_Create_RetriesOnNumberConflict(t *testing.T) {
	s := newTestStore(t)
	seedFixtures(t, s)

	svc := NewService(s, nil)
	svc.now = func() time.Time { return time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC) }
	taken := createTicket(t, svc)
	require.Equal(t, "TKT-202608-0001", taken.Number)

	// The stale store reports seq 1 as free; the insert conflicts and the
	// service must retry with a freshly computed number.
	stale := &staleSeqStore{Store: s, stale: 1}
	svc2 := NewService(stale, nil)
	svc2.now = svc.now

	ticket := createTicket(t, svc2)
	assert.Equal(t, "TKT-202608-0002", ticket.Number)
}

func TestService_Create_Concurrent(t *testing.T) {
	s := newTestStore(t)
	seedFixtures(t, s)
	svc := NewService(s, nil)
	svc.now = func() time.Time { return time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC) }

	const creators = 5
	numbers := make(chan string, creators)
	var wg sync.WaitGroup
	wg.Add(creators)
	for i := 0; i < creators; i++ {
		go func() {
			defer wg.Done()
			ticket, err := svc.Create(context.Background(), CreateInput{
				UnitID:   "RX-001",
				Category: "jam",
			})
			assert.NoError(t, err)
			if err == nil {
				numbers <- ticket.Number
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[string]bool)
	for n := range numbers {
		assert.False(t, seen[n], "duplicate ticket number %s", n)
		seen[n] = true
	}
	require.Len(t, seen, creators)
	// No gaps attributable to lost updates: exactly 1..N handed out.
	for i := 1; i <= creators; i++ {
		assert.Contains(t, seen, fmt.Sprintf("TKT-202608-%04d", i))
	}
}

func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedFixtures(t, s)
	svc := NewService(s, nil)

	ticket := createTicket(t, svc)

	t.Run("pending rejects everything but assign", func(t *testing.T) {
		_, err := svc.Start(ctx, ticket.Number)
		var stErr *apperr.StateTransitionError
		assert.ErrorAs(t, err, &stErr)

		_, err = svc.Resolve(ctx, ticket.Number, "notes", "")
		assert.ErrorAs(t, err, &stErr)

		_, err = svc.Close(ctx, ticket.Number)
		assert.ErrorAs(t, err, &stErr)
	})

	t.Run("assign rejects a technician without an active assignment", func(t *testing.T) {
		_, err := svc.Assign(ctx, ticket.Number, "tech-nobody")
		var stErr *apperr.StateTransitionError
		require.ErrorAs(t, err, &stErr)
		assert.Contains(t, stErr.Reason, "no active assignment")

		// The rejected request must not have mutated the ticket.
		got, err := svc.Get(ctx, ticket.Number)
		require.NoError(t, err)
		assert.Equal(t, model.TicketPending, got.Status)
		assert.Nil(t, got.AssigneeID)
	})

	t.Run("full lifecycle", func(t *testing.T) {
		got, err := svc.Assign(ctx, ticket.Number, "tech-1")
		require.NoError(t, err)
		assert.Equal(t, model.TicketAssigned, got.Status)
		require.NotNil(t, got.AssigneeID)
		assert.Equal(t, "tech-1", *got.AssigneeID)
		assert.NotNil(t, got.AssignedAt)

		// Assigning twice is a same-state no-op and is rejected.
		_, err = svc.Assign(ctx, ticket.Number, "tech-1")
		var stErr *apperr.StateTransitionError
		assert.ErrorAs(t, err, &stErr)

		got, err = svc.Start(ctx, ticket.Number)
		require.NoError(t, err)
		assert.Equal(t, model.TicketInProgress, got.Status)
		assert.NotNil(t, got.StartedAt)

		// Resolution requires notes or a proof reference.
		_, err = svc.Resolve(ctx, ticket.Number, "", "")
		var valErr *apperr.ValidationError
		require.ErrorAs(t, err, &valErr)

		got, err = svc.Resolve(ctx, ticket.Number, "replaced belt", "photo-123")
		require.NoError(t, err)
		assert.Equal(t, model.TicketResolved, got.Status)
		assert.NotNil(t, got.CompletedAt)

		got, err = svc.Close(ctx, ticket.Number)
		require.NoError(t, err)
		assert.Equal(t, model.TicketClosed, got.Status)

		// closed is terminal.
		_, err = svc.Start(ctx, ticket.Number)
		assert.ErrorAs(t, err, &stErr)
	})
}

func TestService_Retire(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedFixtures(t, s)
	svc := NewService(s, nil)

	ticket := createTicket(t, svc)
	require.NoError(t, svc.Retire(ctx, ticket.Number))

	// Gone from lookups and listings, but still stored.
	_, err := svc.Get(ctx, ticket.Number)
	var nfErr *apperr.NotFoundError
	assert.ErrorAs(t, err, &nfErr)

	listed, err := svc.ListByUnit(ctx, "RX-001")
	require.NoError(t, err)
	assert.Empty(t, listed)

	var count int64
	require.NoError(t, s.DB().Model(&model.MaintenanceTicket{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "retired tickets are never hard-deleted")

	assert.ErrorAs(t, svc.Retire(ctx, ticket.Number), &nfErr)
}

// recordingNotifier captures dispatched ticket ids.
type recordingNotifier struct {
	mu  sync.Mutex
	ids []int64
}

func (n *recordingNotifier) Dispatch(id int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, id)
}

func TestService_AssignNotifies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedFixtures(t, s)
	notifier := &recordingNotifier{}
	svc := NewService(s, notifier)

	ticket := createTicket(t, svc)
	_, err := svc.Assign(ctx, ticket.Number, "tech-1")
	require.NoError(t, err)

	require.Len(t, notifier.ids, 1)
	assert.Equal(t, ticket.ID, notifier.ids[0])
}
