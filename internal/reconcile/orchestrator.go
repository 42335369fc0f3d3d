package reconcile

import (
	"context"
	"log"
	"sync"
	"time"

	"followerwatch/internal/db"
	"followerwatch/internal/snapshot"
)

// batchTimeout bounds one full reconciliation batch.
const batchTimeout = 300 * time.Second

// Orchestrator fans out one reconciliation per (subscriber, account) pair
// and waits for the batch under a wall-clock bound. The bound only stops
// the wait: in-flight pairs keep running and whatever they commit stands.
type Orchestrator struct {
	store   *snapshot.Store
	timeout time.Duration

	// Swappable in tests.
	reconcileFn func(ctx context.Context, chatID int64, account string) error
	accountsFn  func(chatID int64) ([]string, error)
}

func NewOrchestrator(store *snapshot.Store, reconciler *Reconciler) *Orchestrator {
	return &Orchestrator{
		store:       store,
		timeout:     batchTimeout,
		reconcileFn: reconciler.UpdateFollowers,
		accountsFn:  db.GetTrackedAccounts,
	}
}

// ProcessAllUsers enumerates every subscriber directory and runs one
// reconciliation per tracked account, concurrently. A subscriber whose
// tracked accounts can't be read is logged and skipped; a pair whose
// reconciliation fails is logged and does not affect its siblings.
func (o *Orchestrator) ProcessAllUsers(ctx context.Context) error {
	chatIDs, err := o.store.ListSubscribers()
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	scheduled := 0
	for _, chatID := range chatIDs {
		accounts, err := o.accountsFn(chatID)
		if err != nil {
			log.Printf("Error processing user %d: %v", chatID, err)
			continue
		}
		for _, account := range accounts {
			scheduled++
			wg.Add(1)
			go func(chatID int64, account string) {
				defer wg.Done()
				if err := o.reconcileFn(ctx, chatID, account); err != nil {
					log.Printf("Error updating followers for account %s for user %d: %v", account, chatID, err)
				}
			}(chatID, account)
		}
	}

	if scheduled == 0 {
		log.Println("No users or tracked accounts found to process.")
		return nil
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Printf("Processed %d reconciliations.", scheduled)
	case <-time.After(o.timeout):
		// Abandon the wait only. No cancel signal reaches the
		// still-running pairs.
		log.Println("Timeout occurred while processing all users.")
	}
	return nil
}
