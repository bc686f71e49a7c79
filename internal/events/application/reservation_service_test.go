package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/eventhive/eventhive/internal/events/domain"
	"github.com/eventhive/eventhive/internal/events/infrastructure/memory"
	"github.com/eventhive/eventhive/pkg/clock"
)

// fakeInventory is a mutex-guarded in-memory InventoryStore keyed by
// event/ticket type.
type fakeInventory struct {
	mu        sync.Mutex
	available map[string]int
	failNext  error
}

func invKey(eventID, ticketType string) string {
	return eventID + "/" + ticketType
}

func newFakeInventory(eventID, ticketType string, available int) *fakeInventory {
	return &fakeInventory{available: map[string]int{invKey(eventID, ticketType): available}}
}

func (f *fakeInventory) GetAvailable(_ context.Context, eventID, ticketType string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.available[invKey(eventID, ticketType)]
	if !ok {
		return 0, domain.ErrTicketTypeNotFound
	}
	return n, nil
}

func (f *fakeInventory) AdjustAvailable(_ context.Context, eventID, ticketType string, delta int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return 0, err
	}

	key := invKey(eventID, ticketType)
	n, ok := f.available[key]
	if !ok {
		return 0, domain.ErrTicketTypeNotFound
	}
	if n+delta < 0 {
		return 0, domain.ErrInsufficientInventory
	}
	f.available[key] = n + delta
	return n + delta, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, available int, clk clock.Clock) (*ReservationService, *fakeInventory, *memory.LockTable) {
	t.Helper()
	inv := newFakeInventory("ev1", "vip", available)
	locks := memory.NewLockTable()
	svc := NewReservationService(discardLogger(), inv, locks, clk)
	return svc, inv, locks
}

func mustAvailable(t *testing.T, inv *fakeInventory, want int) {
	t.Helper()
	got, err := inv.GetAvailable(context.Background(), "ev1", "vip")
	if err != nil {
		t.Fatalf("GetAvailable: %v", err)
	}
	if got != want {
		t.Fatalf("available = %d, want %d", got, want)
	}
}

func TestLock(t *testing.T) {
	ctx := context.Background()

	t.Run("decrements inventory and stores the hold", func(t *testing.T) {
		svc, inv, locks := newTestService(t, 10, clock.NewSystem())

		lock, err := svc.Lock(ctx, "ev1", "vip", 3, "alice")
		if err != nil {
			t.Fatalf("Lock: %v", err)
		}
		if lock.ID == "" {
			t.Fatal("lock ID is empty")
		}
		if lock.Quantity != 3 || lock.Holder != "alice" {
			t.Fatalf("unexpected lock %+v", lock)
		}
		mustAvailable(t, inv, 7)
		if locks.Len() != 1 {
			t.Fatalf("lock table len = %d, want 1", locks.Len())
		}
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		svc, inv, _ := newTestService(t, 10, clock.NewSystem())

		for _, q := range []int{0, -1} {
			if _, err := svc.Lock(ctx, "ev1", "vip", q, "alice"); !errors.Is(err, domain.ErrInvalidQuantity) {
				t.Fatalf("Lock(%d) = %v, want ErrInvalidQuantity", q, err)
			}
		}
		mustAvailable(t, inv, 10)
	})

	t.Run("insufficient inventory creates no lock", func(t *testing.T) {
		svc, inv, locks := newTestService(t, 2, clock.NewSystem())

		_, err := svc.Lock(ctx, "ev1", "vip", 3, "alice")
		if !errors.Is(err, domain.ErrInsufficientInventory) {
			t.Fatalf("Lock = %v, want ErrInsufficientInventory", err)
		}
		mustAvailable(t, inv, 2)
		if locks.Len() != 0 {
			t.Fatalf("lock table len = %d, want 0", locks.Len())
		}
	})

	t.Run("concurrent locks never oversell", func(t *testing.T) {
		const total = 10
		svc, inv, _ := newTestService(t, total, clock.NewSystem())

		var wg sync.WaitGroup
		granted := make(chan int, 50)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.Lock(ctx, "ev1", "vip", 1, "u"); err == nil {
					granted <- 1
				}
			}()
		}
		wg.Wait()
		close(granted)

		sum := 0
		for q := range granted {
			sum += q
		}
		if sum > total {
			t.Fatalf("granted %d tickets from an inventory of %d", sum, total)
		}
		mustAvailable(t, inv, total-sum)
	})

	t.Run("racing buyers for the last tickets get exactly one success", func(t *testing.T) {
		// 5 available, two buyers want 3 each: one wins, one fails.
		svc, inv, _ := newTestService(t, 5, clock.NewSystem())

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.Lock(ctx, "ev1", "vip", 3, "u")
			}(i)
		}
		wg.Wait()

		var ok, insufficient int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientInventory):
				insufficient++
			default:
				t.Fatalf("unexpected error %v", err)
			}
		}
		if ok != 1 || insufficient != 1 {
			t.Fatalf("got %d successes and %d rejections, want 1 and 1", ok, insufficient)
		}
		mustAvailable(t, inv, 2)
	})
}

func TestUnlock(t *testing.T) {
	ctx := context.Background()

	t.Run("restores the locked quantity", func(t *testing.T) {
		svc, inv, _ := newTestService(t, 10, clock.NewSystem())

		lock, err := svc.Lock(ctx, "ev1", "vip", 4, "alice")
		if err != nil {
			t.Fatalf("Lock: %v", err)
		}
		if err := svc.Unlock(ctx, lock.ID); err != nil {
			t.Fatalf("Unlock: %v", err)
		}
		mustAvailable(t, inv, 10)
	})

	t.Run("double unlock restores only once", func(t *testing.T) {
		svc, inv, _ := newTestService(t, 10, clock.NewSystem())

		lock, err := svc.Lock(ctx, "ev1", "vip", 4, "alice")
		if err != nil {
			t.Fatalf("Lock: %v", err)
		}
		if err := svc.Unlock(ctx, lock.ID); err != nil {
			t.Fatalf("first Unlock: %v", err)
		}
		if err := svc.Unlock(ctx, lock.ID); err != nil {
			t.Fatalf("second Unlock: %v", err)
		}
		mustAvailable(t, inv, 10)
	})

	t.Run("unknown lock is a no-op", func(t *testing.T) {
		svc, inv, _ := newTestService(t, 10, clock.NewSystem())

		if err := svc.Unlock(ctx, "nope"); err != nil {
			t.Fatalf("Unlock: %v", err)
		}
		mustAvailable(t, inv, 10)
	})

	t.Run("failed restore keeps the hold for retry", func(t *testing.T) {
		svc, inv, locks := newTestService(t, 10, clock.NewSystem())

		lock, err := svc.Lock(ctx, "ev1", "vip", 4, "alice")
		if err != nil {
			t.Fatalf("Lock: %v", err)
		}

		inv.mu.Lock()
		inv.failNext = errors.New("pg down")
		inv.mu.Unlock()

		if err := svc.Unlock(ctx, lock.ID); err == nil {
			t.Fatal("Unlock succeeded despite restore failure")
		}
		if locks.Len() != 1 {
			t.Fatalf("lock table len = %d, want the hold back", locks.Len())
		}

		// Retry succeeds and restores exactly once.
		if err := svc.Unlock(ctx, lock.ID); err != nil {
			t.Fatalf("retry Unlock: %v", err)
		}
		mustAvailable(t, inv, 10)
	})

	t.Run("expired lock is left to the sweep", func(t *testing.T) {
		clk := clock.NewFixed(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
		svc, inv, locks := newTestService(t, 10, clk)

		lock, err := svc.Lock(ctx, "ev1", "vip", 4, "alice")
		if err != nil {
			t.Fatalf("Lock: %v", err)
		}
		clk.Advance(6 * time.Minute)

		if err := svc.Unlock(ctx, lock.ID); err != nil {
			t.Fatalf("Unlock: %v", err)
		}
		// No restore yet, the sweep owns the expired hold.
		mustAvailable(t, inv, 6)
		if locks.Len() != 1 {
			t.Fatalf("lock table len = %d, want 1", locks.Len())
		}

		svc.Sweep(ctx)
		mustAvailable(t, inv, 10)
	})
}

func TestCommit(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps inventory consumed", func(t *testing.T) {
		svc, inv, locks := newTestService(t, 10, clock.NewSystem())

		lock, err := svc.Lock(ctx, "ev1", "vip", 4, "alice")
		if err != nil {
			t.Fatalf("Lock: %v", err)
		}
		committed, err := svc.Commit(ctx, lock.ID)
		if err != nil {
			t.Fatalf("Commit: %v", err)
		}
		if committed.ID != lock.ID || committed.Quantity != 4 || committed.Holder != "alice" {
			t.Fatalf("unexpected committed lock %+v", committed)
		}
		mustAvailable(t, inv, 6)
		if locks.Len() != 0 {
			t.Fatalf("lock table len = %d, want 0", locks.Len())
		}
	})

	t.Run("unknown lock fails", func(t *testing.T) {
		svc, _, _ := newTestService(t, 10, clock.NewSystem())

		if _, err := svc.Commit(ctx, "nope"); !errors.Is(err, domain.ErrLockNotFound) {
			t.Fatalf("Commit = %v, want ErrLockNotFound", err)
		}
	})

	t.Run("expired lock fails even before the sweep runs", func(t *testing.T) {
		clk := clock.NewFixed(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
		svc, inv, _ := newTestService(t, 10, clk)

		lock, err := svc.Lock(ctx, "ev1", "vip", 4, "alice")
		if err != nil {
			t.Fatalf("Lock: %v", err)
		}
		clk.Advance(6 * time.Minute)

		if _, err := svc.Commit(ctx, lock.ID); !errors.Is(err, domain.ErrLockNotFound) {
			t.Fatalf("Commit = %v, want ErrLockNotFound", err)
		}
		svc.Sweep(ctx)
		mustAvailable(t, inv, 10)
	})

	t.Run("commit then unlock does not refund", func(t *testing.T) {
		svc, inv, _ := newTestService(t, 10, clock.NewSystem())

		lock, err := svc.Lock(ctx, "ev1", "vip", 4, "alice")
		if err != nil {
			t.Fatalf("Lock: %v", err)
		}
		if _, err := svc.Commit(ctx, lock.ID); err != nil {
			t.Fatalf("Commit: %v", err)
		}
		if err := svc.Unlock(ctx, lock.ID); err != nil {
			t.Fatalf("Unlock: %v", err)
		}
		mustAvailable(t, inv, 6)
	})
}

func TestSweep(t *testing.T) {
	ctx := context.Background()

	t.Run("releases only expired locks", func(t *testing.T) {
		clk := clock.NewFixed(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
		svc, inv, locks := newTestService(t, 10, clk)

		old, err := svc.Lock(ctx, "ev1", "vip", 2, "alice")
		if err != nil {
			t.Fatalf("Lock: %v", err)
		}
		clk.Advance(4 * time.Minute)
		fresh, err := svc.Lock(ctx, "ev1", "vip", 3, "bob")
		if err != nil {
			t.Fatalf("Lock: %v", err)
		}
		clk.Advance(2 * time.Minute) // old is past its TTL, fresh is not

		svc.Sweep(ctx)

		mustAvailable(t, inv, 7)
		if locks.Len() != 1 {
			t.Fatalf("lock table len = %d, want 1", locks.Len())
		}
		if _, err := svc.Commit(ctx, old.ID); !errors.Is(err, domain.ErrLockNotFound) {
			t.Fatalf("Commit(old) = %v, want ErrLockNotFound", err)
		}
		if _, err := svc.Commit(ctx, fresh.ID); err != nil {
			t.Fatalf("Commit(fresh): %v", err)
		}
	})

	t.Run("failed restore is retried on the next pass", func(t *testing.T) {
		clk := clock.NewFixed(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
		svc, inv, locks := newTestService(t, 10, clk)

		if _, err := svc.Lock(ctx, "ev1", "vip", 2, "alice"); err != nil {
			t.Fatalf("Lock: %v", err)
		}
		clk.Advance(6 * time.Minute)

		inv.mu.Lock()
		inv.failNext = errors.New("pg down")
		inv.mu.Unlock()

		svc.Sweep(ctx)
		if locks.Len() != 1 {
			t.Fatalf("lock table len = %d, want the hold back", locks.Len())
		}

		svc.Sweep(ctx)
		mustAvailable(t, inv, 10)
		if locks.Len() != 0 {
			t.Fatalf("lock table len = %d, want 0", locks.Len())
		}
	})

	t.Run("concurrent unlock and sweep restore exactly once", func(t *testing.T) {
		clk := clock.NewFixed(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
		svc, inv, _ := newTestService(t, 10, clk)

		lock, err := svc.Lock(ctx, "ev1", "vip", 4, "alice")
		if err != nil {
			t.Fatalf("Lock: %v", err)
		}
		clk.Advance(6 * time.Minute)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = svc.Unlock(ctx, lock.ID)
		}()
		go func() {
			defer wg.Done()
			svc.Sweep(ctx)
		}()
		wg.Wait()

		// Unlock sees the lock as expired and defers to the sweep; either
		// way the quantity comes back exactly once.
		svc.Sweep(ctx)
		mustAvailable(t, inv, 10)
	})
}

func TestRunSweeper(t *testing.T) {
	clk := clock.NewFixed(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc, inv, _ := newTestService(t, 10, clk)

	if _, err := svc.Lock(context.Background(), "ev1", "vip", 4, "alice"); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	clk.Advance(6 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = svc.RunSweeper(ctx, time.Millisecond)
	}()

	deadline := time.After(2 * time.Second)
	for {
		if n, _ := inv.GetAvailable(context.Background(), "ev1", "vip"); n == 10 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("sweeper never restored the expired lock")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}
