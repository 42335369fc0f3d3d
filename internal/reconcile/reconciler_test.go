package reconcile

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"followerwatch/internal/models"
	"followerwatch/internal/snapshot"
)

type alertRecord struct {
	chatID   int64
	account  string
	username string
}

type mockAlerter struct {
	mu     sync.Mutex
	alerts []alertRecord
}

func (m *mockAlerter) SendFollowerAlert(_ context.Context, chatID int64, account string, f models.Follower) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alertRecord{chatID: chatID, account: account, username: f.Username})
	return nil
}

func stageCSV(t *testing.T, store *snapshot.Store, account string, usernames ...string) {
	t.Helper()
	content := "User ID,Name,Username,Bio,Profile URL,Follower Count,Created At,Blue Verified,Location\n"
	for i, u := range usernames {
		content += fmt.Sprintf("%d,Name %s,%s,bio,https://twitter.com/%s,5,Sat Jun 01 00:00:00 +0000 2024,false,\n", i, u, u, u)
	}
	require.NoError(t, os.WriteFile(store.StagedCSVPath(account), []byte(content), 0o644))
}

func usernamesOf(t *testing.T, store *snapshot.Store, path string) map[string]struct{} {
	t.Helper()
	set, err := store.Usernames(path)
	require.NoError(t, err)
	return set
}

func TestFirstPopulationIsSilent(t *testing.T) {
	store := snapshot.NewStore(t.TempDir())
	alerter := &mockAlerter{}
	r := NewReconciler(store, alerter)

	stageCSV(t, store, "alice", "bob", "carol")

	require.NoError(t, r.UpdateFollowers(context.Background(), 42, "alice"))

	private := usernamesOf(t, store, store.PrivatePath(42, "alice"))
	shared := usernamesOf(t, store, store.SharedPath("alice"))
	assert.Equal(t, shared, private, "first run copies the whole shared snapshot")
	assert.Len(t, private, 2)
	assert.Empty(t, alerter.alerts, "the bootstrap population must not notify")

	_, err := os.Stat(store.StagedCSVPath("alice"))
	assert.True(t, os.IsNotExist(err), "the staged CSV is consumed")
}

func TestIncrementalRunNotifiesOnlyNewFollowers(t *testing.T) {
	store := snapshot.NewStore(t.TempDir())
	alerter := &mockAlerter{}
	r := NewReconciler(store, alerter)
	ctx := context.Background()

	stageCSV(t, store, "alice", "bob", "carol")
	require.NoError(t, r.UpdateFollowers(ctx, 42, "alice"))
	require.Empty(t, alerter.alerts)

	// A later drop adds dave; bob is a duplicate and must be suppressed.
	stageCSV(t, store, "alice", "bob", "dave")
	require.NoError(t, r.UpdateFollowers(ctx, 42, "alice"))

	require.Len(t, alerter.alerts, 1)
	assert.Equal(t, alertRecord{chatID: 42, account: "alice", username: "dave"}, alerter.alerts[0])

	private := usernamesOf(t, store, store.PrivatePath(42, "alice"))
	assert.Len(t, private, 3)
	assert.Contains(t, private, "dave")
}

func TestReconcileIsIdempotent(t *testing.T) {
	store := snapshot.NewStore(t.TempDir())
	alerter := &mockAlerter{}
	r := NewReconciler(store, alerter)
	ctx := context.Background()

	stageCSV(t, store, "alice", "bob", "carol")
	require.NoError(t, r.UpdateFollowers(ctx, 42, "alice"))

	// No staged data, nothing new: two more runs change nothing.
	require.NoError(t, r.UpdateFollowers(ctx, 42, "alice"))
	require.NoError(t, r.UpdateFollowers(ctx, 42, "alice"))

	assert.Empty(t, alerter.alerts)
	followers, err := store.AllFollowers(store.PrivatePath(42, "alice"))
	require.NoError(t, err)
	assert.Len(t, followers, 2, "no duplicate rows may appear")
}

func TestStorageFailureLeavesPrivateSnapshotUnchanged(t *testing.T) {
	store := snapshot.NewStore(t.TempDir())
	alerter := &mockAlerter{}
	r := NewReconciler(store, alerter)
	ctx := context.Background()

	stageCSV(t, store, "alice", "bob", "carol")
	require.NoError(t, r.UpdateFollowers(ctx, 42, "alice"))
	require.Empty(t, alerter.alerts)

	// Clobber the shared snapshot so every query against it fails.
	require.NoError(t, os.WriteFile(store.SharedPath("alice"), []byte("this is not a sqlite database"), 0o644))
	stageCSV(t, store, "alice", "dave")

	err := r.UpdateFollowers(ctx, 42, "alice")
	require.Error(t, err, "a storage failure must surface from the cycle")

	private := usernamesOf(t, store, store.PrivatePath(42, "alice"))
	assert.Len(t, private, 2, "the failed cycle must not touch the private snapshot")
	assert.Contains(t, private, "bob")
	assert.Contains(t, private, "carol")
	assert.Empty(t, alerter.alerts, "no alerts may be sent for an aborted cycle")
}

func TestSubscribersHaveIndependentSnapshots(t *testing.T) {
	store := snapshot.NewStore(t.TempDir())
	alerter := &mockAlerter{}
	r := NewReconciler(store, alerter)
	ctx := context.Background()

	stageCSV(t, store, "alice", "bob", "carol")
	require.NoError(t, r.UpdateFollowers(ctx, 42, "alice"))

	// Chat 7 subscribes after the shared snapshot exists: silent bootstrap.
	require.NoError(t, r.UpdateFollowers(ctx, 7, "alice"))
	assert.Empty(t, alerter.alerts)

	stageCSV(t, store, "alice", "dave")
	require.NoError(t, r.UpdateFollowers(ctx, 42, "alice"))
	require.NoError(t, r.UpdateFollowers(ctx, 7, "alice"))

	require.Len(t, alerter.alerts, 2, "each subscriber gets its own alert for dave")
	for _, a := range alerter.alerts {
		assert.Equal(t, "dave", a.username)
	}
}
