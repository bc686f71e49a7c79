package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/eventhive/eventhive/internal/events/domain"
)

func lockAt(id string, expiresAt time.Time) domain.Lock {
	return domain.Lock{ID: id, EventID: "ev1", TicketType: "vip", Quantity: 1, ExpiresAt: expiresAt}
}

func TestTake(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("removes an unexpired lock", func(t *testing.T) {
		tbl := NewLockTable()
		tbl.Insert(lockAt("l1", now.Add(time.Minute)))

		lock, ok := tbl.Take("l1", now)
		if !ok || lock.ID != "l1" {
			t.Fatalf("Take = %+v, %v", lock, ok)
		}
		if _, ok := tbl.Take("l1", now); ok {
			t.Fatal("second Take returned the same lock")
		}
	})

	t.Run("leaves an expired lock in place", func(t *testing.T) {
		tbl := NewLockTable()
		tbl.Insert(lockAt("l1", now.Add(-time.Second)))

		if _, ok := tbl.Take("l1", now); ok {
			t.Fatal("Take returned an expired lock")
		}
		if tbl.Len() != 1 {
			t.Fatalf("Len = %d, want 1", tbl.Len())
		}
	})

	t.Run("a lock expiring exactly now is expired", func(t *testing.T) {
		tbl := NewLockTable()
		tbl.Insert(lockAt("l1", now))

		if _, ok := tbl.Take("l1", now); ok {
			t.Fatal("Take returned a lock at its exact expiry instant")
		}
	})

	t.Run("only one of many concurrent takers wins", func(t *testing.T) {
		tbl := NewLockTable()
		tbl.Insert(lockAt("l1", now.Add(time.Minute)))

		var wg sync.WaitGroup
		wins := make(chan struct{}, 20)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok := tbl.Take("l1", now); ok {
					wins <- struct{}{}
				}
			}()
		}
		wg.Wait()
		close(wins)

		n := 0
		for range wins {
			n++
		}
		if n != 1 {
			t.Fatalf("%d takers won, want 1", n)
		}
	})
}

func TestTakeExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tbl := NewLockTable()
	tbl.Insert(lockAt("old", now.Add(-time.Minute)))
	tbl.Insert(lockAt("fresh", now.Add(time.Minute)))

	expired := tbl.TakeExpired(now)
	if len(expired) != 1 || expired[0].ID != "old" {
		t.Fatalf("TakeExpired = %+v", expired)
	}
	if tbl.Len() != 1 {
		t.Fatalf("Len = %d, want 1", tbl.Len())
	}
	if again := tbl.TakeExpired(now); len(again) != 0 {
		t.Fatalf("second TakeExpired = %+v, want empty", again)
	}
}
