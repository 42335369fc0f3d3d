// Package reconcile diffs each subscriber's private follower snapshot
// against the shared snapshot of a tracked account and alerts on the
// difference.
package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"

	"followerwatch/internal/ingest"
	"followerwatch/internal/models"
	"followerwatch/internal/snapshot"
)

// Alerter delivers a new-follower alert to a chat. It's implemented by
// notify.Notifier, and can be mocked for testing.
type Alerter interface {
	SendFollowerAlert(ctx context.Context, chatID int64, account string, f models.Follower) error
}

type pairKey struct {
	chatID  int64
	account string
}

// Reconciler runs one reconciliation cycle per (chat, account) pair. A
// per-pair mutex keeps a manual update from racing the scheduled batch
// over the same private snapshot.
type Reconciler struct {
	store   *snapshot.Store
	alerter Alerter

	mu    sync.Mutex
	locks map[pairKey]*sync.Mutex
}

func NewReconciler(store *snapshot.Store, alerter Alerter) *Reconciler {
	return &Reconciler{
		store:   store,
		alerter: alerter,
		locks:   make(map[pairKey]*sync.Mutex),
	}
}

func (r *Reconciler) pairLock(chatID int64, account string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey{chatID: chatID, account: account}
	lock, ok := r.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}
	return lock
}

// UpdateFollowers runs one reconciliation cycle for a (chat, account)
// pair: ingest any staged CSV into the shared snapshot, diff the username
// sets, and copy the difference into the private snapshot, alerting per
// new follower. An empty private snapshot is populated in bulk with no
// alerts, so a fresh subscriber isn't flooded with the account's entire
// follower back-catalog. Errors abort only this pair's cycle.
func (r *Reconciler) UpdateFollowers(ctx context.Context, chatID int64, account string) error {
	lock := r.pairLock(chatID, account)
	lock.Lock()
	defer lock.Unlock()

	sharedPath := r.store.SharedPath(account)
	privatePath := r.store.PrivatePath(chatID, account)

	for _, path := range []string{sharedPath, privatePath} {
		exists, err := r.store.TableExists(path)
		if err != nil {
			return fmt.Errorf("failed to check table in %s: %w", path, err)
		}
		if !exists {
			log.Printf("Creating table in %s...", path)
			if err := r.store.EnsureTable(path); err != nil {
				return fmt.Errorf("failed to create table in %s: %w", path, err)
			}
		}
	}

	newData := ingest.Fetch(r.store.StagedCSVPath(account), account)
	if len(newData) > 0 {
		if _, err := r.store.InsertFollowers(sharedPath, newData); err != nil {
			return fmt.Errorf("failed to insert ingested followers for %s: %w", account, err)
		}
	}

	sharedUsernames, err := r.store.Usernames(sharedPath)
	if err != nil {
		return fmt.Errorf("failed to read shared usernames for %s: %w", account, err)
	}
	privateUsernames, err := r.store.Usernames(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private usernames for chat %d: %w", chatID, err)
	}

	if len(privateUsernames) == 0 {
		return r.firstPopulation(chatID, account, sharedPath, privatePath)
	}

	newUsernames := make([]string, 0)
	for username := range sharedUsernames {
		if _, ok := privateUsernames[username]; !ok {
			newUsernames = append(newUsernames, username)
		}
	}
	log.Printf("New followers found for account %s for user %d: %v", account, chatID, newUsernames)

	if len(newUsernames) == 0 {
		log.Printf("No new followers for account %s for user %d", account, chatID)
		return nil
	}

	batch, err := r.store.Begin(privatePath)
	if err != nil {
		return fmt.Errorf("failed to open private snapshot for chat %d: %w", chatID, err)
	}
	defer batch.Close()

	for _, username := range newUsernames {
		follower, err := r.store.GetByUsername(sharedPath, username)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load follower %s for %s: %w", username, account, err)
		}

		inserted, err := batch.InsertIfAbsent(follower)
		if err != nil {
			return fmt.Errorf("failed to insert follower %s for chat %d: %w", username, chatID, err)
		}
		if !inserted {
			log.Printf("Follower %s already exists in user %d's snapshot for %s. Skipping.", username, chatID, account)
			continue
		}

		// Delivery failures are the notifier's problem; a lost alert
		// doesn't abort the cycle.
		r.alerter.SendFollowerAlert(ctx, chatID, account, follower)
	}

	if err := batch.Commit(); err != nil {
		return fmt.Errorf("failed to commit private snapshot for chat %d: %w", chatID, err)
	}
	log.Printf("Updated followers for account %s for user %d", account, chatID)
	return nil
}

// firstPopulation copies every shared row into the empty private snapshot.
// No alerts are sent for this bootstrap case.
func (r *Reconciler) firstPopulation(chatID int64, account, sharedPath, privatePath string) error {
	log.Printf("First population of user %d's snapshot for account %s. No notifications will be sent.", chatID, account)

	followers, err := r.store.AllFollowers(sharedPath)
	if err != nil {
		return fmt.Errorf("failed to read shared snapshot for %s: %w", account, err)
	}

	batch, err := r.store.Begin(privatePath)
	if err != nil {
		return fmt.Errorf("failed to open private snapshot for chat %d: %w", chatID, err)
	}
	defer batch.Close()

	for _, f := range followers {
		if err := batch.Insert(f); err != nil {
			return fmt.Errorf("failed to copy follower %s for chat %d: %w", f.Username, chatID, err)
		}
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("failed to commit private snapshot for chat %d: %w", chatID, err)
	}

	log.Printf("User %d's snapshot for %s has been populated.", chatID, account)
	return nil
}
