package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"followerwatch/internal/snapshot"
)

type pairRecorder struct {
	mu    sync.Mutex
	pairs []pairKey
}

func (p *pairRecorder) record(chatID int64, account string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pairs = append(p.pairs, pairKey{chatID: chatID, account: account})
}

func TestProcessAllUsersFansOutAllPairs(t *testing.T) {
	store := snapshot.NewStore(t.TempDir())
	require.NoError(t, store.EnsureSubscriberDir(1))
	require.NoError(t, store.EnsureSubscriberDir(2))

	recorder := &pairRecorder{}
	o := &Orchestrator{
		store:   store,
		timeout: 5 * time.Second,
		accountsFn: func(chatID int64) ([]string, error) {
			return []string{"alice", "zed"}, nil
		},
		reconcileFn: func(_ context.Context, chatID int64, account string) error {
			recorder.record(chatID, account)
			// One pair fails; its siblings must still run.
			if chatID == 1 && account == "zed" {
				return errors.New("storage failure")
			}
			return nil
		},
	}

	require.NoError(t, o.ProcessAllUsers(context.Background()))

	assert.ElementsMatch(t, []pairKey{
		{chatID: 1, account: "alice"},
		{chatID: 1, account: "zed"},
		{chatID: 2, account: "alice"},
		{chatID: 2, account: "zed"},
	}, recorder.pairs)
}

func TestProcessAllUsersSkipsFailedEnumeration(t *testing.T) {
	store := snapshot.NewStore(t.TempDir())
	require.NoError(t, store.EnsureSubscriberDir(1))
	require.NoError(t, store.EnsureSubscriberDir(2))

	recorder := &pairRecorder{}
	o := &Orchestrator{
		store:   store,
		timeout: 5 * time.Second,
		accountsFn: func(chatID int64) ([]string, error) {
			if chatID == 1 {
				return nil, errors.New("registry unreachable")
			}
			return []string{"alice"}, nil
		},
		reconcileFn: func(_ context.Context, chatID int64, account string) error {
			recorder.record(chatID, account)
			return nil
		},
	}

	require.NoError(t, o.ProcessAllUsers(context.Background()))
	assert.Equal(t, []pairKey{{chatID: 2, account: "alice"}}, recorder.pairs)
}

func TestProcessAllUsersAbandonsSlowBatch(t *testing.T) {
	store := snapshot.NewStore(t.TempDir())
	require.NoError(t, store.EnsureSubscriberDir(1))

	release := make(chan struct{})
	o := &Orchestrator{
		store:   store,
		timeout: 50 * time.Millisecond,
		accountsFn: func(chatID int64) ([]string, error) {
			return []string{"alice"}, nil
		},
		reconcileFn: func(_ context.Context, _ int64, _ string) error {
			<-release
			return nil
		},
	}

	start := time.Now()
	require.NoError(t, o.ProcessAllUsers(context.Background()))
	assert.Less(t, time.Since(start), time.Second, "the batch wait is abandoned at the timeout")
	close(release)
}

func TestProcessAllUsersWithNoSubscribers(t *testing.T) {
	store := snapshot.NewStore(t.TempDir())

	o := &Orchestrator{
		store:   store,
		timeout: time.Second,
		accountsFn: func(int64) ([]string, error) {
			t.Fatal("no subscribers should be enumerated")
			return nil, nil
		},
		reconcileFn: func(context.Context, int64, string) error { return nil },
	}

	require.NoError(t, o.ProcessAllUsers(context.Background()))
}
