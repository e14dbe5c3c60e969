package storage

import (
	"chat-gateway/domain"
	"chat-gateway/errors"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// setupTestDB initializes a temporary Badger instance for testing
func setupTestDB(t *testing.T) *badger.DB {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newRepository(t *testing.T) *PresenceRepository {
	repo := NewPresenceRepository(setupTestDB(t), logs.GetLoggerFromLevel(slog.LevelDebug))
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestPresenceRepository_ConsumeTokenOnce(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newRepository(t)

	// Given a token issued to alice for group 1
	access := domain.Access{User: "alice", GroupID: "1", IssuedAt: time.Now().UTC()}
	req.NoError(repo.IssueToken(ctx, "tok-1", access))

	// When the token is consumed
	got, err := repo.ConsumeTokenOnce(ctx, "tok-1")

	// Then it resolves to the access it was issued for
	req.NoError(err)
	req.Equal("alice", got.User)
	req.Equal(domain.GroupID("1"), got.GroupID)

	// Then a second consumption fails
	_, err = repo.ConsumeTokenOnce(ctx, "tok-1")
	req.ErrorIs(err, errors.ErrTokenNotFound)
}

func TestPresenceRepository_ConcurrentConsumersGetTheTokenOnce(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newRepository(t)
	req.NoError(repo.IssueToken(ctx, "tok-race", domain.Access{User: "bob", GroupID: "2"}))

	const consumers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < consumers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.ConsumeTokenOnce(ctx, "tok-race"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	req.Equal(1, wins)
}

func TestPresenceRepository_IssueTokenRejectsInvalidAccess(t *testing.T) {
	req := require.New(t)
	repo := newRepository(t)

	err := repo.IssueToken(context.Background(), "tok", domain.Access{User: "", GroupID: "lobby"})

	req.Error(err)
}

func TestPresenceRepository_ExpiredTokenIsNotFound(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newRepository(t)

	// Given a token living one second
	req.NoError(repo.IssueExpiringToken(ctx, "tok-ttl", domain.Access{User: "carol", GroupID: "3"}, time.Second))

	// When it is consumed after its expiry
	time.Sleep(1100 * time.Millisecond)
	_, err := repo.ConsumeTokenOnce(ctx, "tok-ttl")

	// Then it does not resolve anymore
	req.ErrorIs(err, errors.ErrTokenNotFound)
}

func TestPresenceRepository_GroupMembership(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newRepository(t)

	// Given a group created once
	created, err := repo.CreateGroup(ctx, domain.Group{ID: "7", Token: "secret", Owner: "alice"})
	req.NoError(err)
	req.True(created)
	created, err = repo.CreateGroup(ctx, domain.Group{ID: "7", Token: "other"})
	req.NoError(err)
	req.False(created)

	group, err := repo.GroupInfo(ctx, "7")
	req.NoError(err)
	req.Equal("secret", group.Token)
	req.Equal("alice", group.Owner)

	// When users join, one of them twice
	for _, user := range []string{"carol", "alice", "bob", "alice"} {
		_, err := repo.JoinGroup(ctx, "7", user)
		req.NoError(err)
	}
	changed, err := repo.JoinGroup(ctx, "7", "bob")
	req.NoError(err)
	req.False(changed)

	// Then membership is a set
	count, err := repo.MemberCount(ctx, "7")
	req.NoError(err)
	req.Equal(3, count)
	members, err := repo.Members(ctx, "7", 2)
	req.NoError(err)
	req.Equal([]string{"alice", "bob"}, members)

	// When bob leaves twice
	changed, err = repo.LeaveGroup(ctx, "7", "bob")
	req.NoError(err)
	req.True(changed)
	changed, err = repo.LeaveGroup(ctx, "7", "bob")
	req.NoError(err)
	req.False(changed)

	// Then only alice and carol remain
	members, err = repo.Members(ctx, "7", 0)
	req.NoError(err)
	req.Equal([]string{"alice", "carol"}, members)

	// When the group is deleted
	deleted, err := repo.DeleteGroup(ctx, "7")
	req.NoError(err)
	req.True(deleted)

	// Then neither the group nor its members remain
	_, err = repo.GroupInfo(ctx, "7")
	req.ErrorIs(err, errors.ErrGroupNotFound)
	count, err = repo.MemberCount(ctx, "7")
	req.NoError(err)
	req.Zero(count)
}

func TestPresenceRepository_CreateGroupRejectsNonNumericID(t *testing.T) {
	req := require.New(t)
	repo := newRepository(t)

	_, err := repo.CreateGroup(context.Background(), domain.Group{ID: "lobby"})

	req.ErrorIs(err, errors.ErrInvalidGroupID)
}

func TestPresenceRepository_NextGroupIDIncreases(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newRepository(t)

	first, err := repo.NextGroupID(ctx)
	req.NoError(err)
	second, err := repo.NextGroupID(ctx)
	req.NoError(err)

	req.Equal(domain.GroupID("1"), first)
	req.Equal(domain.GroupID("2"), second)
}

func TestPresenceRepository_LastLogin(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newRepository(t)

	// Given no login recorded yet
	_, found, err := repo.GetLastLogin(ctx, "1", "bob")
	req.NoError(err)
	req.False(found)

	// When a login is recorded
	at := time.Date(2024, 5, 1, 8, 30, 0, 123_456_789, time.UTC)
	req.NoError(repo.SetLastLogin(ctx, "1", "bob", at))

	// Then it is read back with millisecond precision
	got, found, err := repo.GetLastLogin(ctx, "1", "bob")
	req.NoError(err)
	req.True(found)
	req.True(at.Truncate(time.Millisecond).Equal(got))
}

func TestPresenceRepository_Servers(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newRepository(t)
	server := domain.Server{ID: 42, Host: "10.0.0.1", Port: 9000, StartedAt: time.Now().UTC()}

	registered, err := repo.RegisterServer(ctx, server)
	req.NoError(err)
	req.True(registered)
	registered, err = repo.RegisterServer(ctx, server)
	req.NoError(err)
	req.False(registered)

	got, err := repo.ServerInfo(ctx, 42)
	req.NoError(err)
	req.Equal("10.0.0.1", got.Host)
	servers, err := repo.ListServers(ctx)
	req.NoError(err)
	req.Len(servers, 1)

	removed, err := repo.UnregisterServer(ctx, 42)
	req.NoError(err)
	req.True(removed)
	_, err = repo.ServerInfo(ctx, 42)
	req.ErrorIs(err, errors.ErrServerNotFound)
}

func TestPresenceRepository_ServerLease(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newRepository(t).WithServerLease(3 * time.Second)
	started := time.Now().UTC()
	server := domain.Server{ID: 42, Host: "10.0.0.1", Port: 9000, StartedAt: started}

	// Given an instance that registered and renewed, then died without unregistering
	registered, err := repo.RegisterServer(ctx, server)
	req.NoError(err)
	req.True(registered)
	renewed, err := repo.RenewServer(ctx, server)
	req.NoError(err)
	req.True(renewed)

	// Then its restart is refused and cannot renew while the lease runs
	restart := server
	restart.StartedAt = started.Add(time.Minute)
	registered, err = repo.RegisterServer(ctx, restart)
	req.NoError(err)
	req.False(registered)
	renewed, err = repo.RenewServer(ctx, restart)
	req.NoError(err)
	req.False(renewed)

	// When the lease runs out, expiry being kept at second precision
	time.Sleep(3100 * time.Millisecond)

	// Then the restart takes the id, and the old start can no longer renew
	registered, err = repo.RegisterServer(ctx, restart)
	req.NoError(err)
	req.True(registered)
	renewed, err = repo.RenewServer(ctx, server)
	req.NoError(err)
	req.False(renewed)
}
