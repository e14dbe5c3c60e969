// Package runtime owns the live side of a gateway instance: connection
// sessions, the local group registry and the supervised relay.
// It orchestrates the system without containing transport concerns.
package runtime

import (
	"chat-gateway/contract"
	"chat-gateway/domain"
	"chat-gateway/errors"
	"chat-gateway/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type OrchestratorConfig struct {
	Server          domain.Server
	Session         SessionConfig
	WorkerCount     int
	RelayInterval   time.Duration
	AccessTokenTTL  time.Duration
	MaxGroupMembers int
	// ServerLease is how long the registration survives without renewal.
	// Zero registers for good.
	ServerLease time.Duration
}

type Orchestrator struct {
	mu         sync.Mutex
	log        *slog.Logger
	supervisor contract.ISupervisor
	registry   *Registry
	presence   contract.PresenceStore
	bus        contract.MessageBus
	cfg        OrchestratorConfig
	sessions   map[string]*Session
	registered bool
	now        func() time.Time
}

func NewOrchestrator(
	log *slog.Logger,
	supervisor contract.ISupervisor,
	registry *Registry,
	presence contract.PresenceStore,
	bus contract.MessageBus,
	cfg OrchestratorConfig,
) *Orchestrator {
	cfg.Session.ServerID = cfg.Server.ID
	return &Orchestrator{
		log:        log,
		supervisor: supervisor,
		registry:   registry,
		presence:   presence,
		bus:        bus,
		cfg:        cfg,
		sessions:   make(map[string]*Session),
		now:        time.Now,
	}
}

// Open attaches a new session to a freshly upgraded connection and returns its id.
func (o *Orchestrator) Open(conn contract.Conn) string {
	id := uuid.NewString()
	session := NewSession(id, o.log, conn, o.presence, o.bus, o.registry, o.cfg.Session)

	o.mu.Lock()
	o.sessions[id] = session
	o.mu.Unlock()
	return id
}

func (o *Orchestrator) session(id string) (*Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[id]
	return s, ok
}

// DeliverInboundText hands one text frame to its session. Any error means the
// socket layer must close the connection.
func (o *Orchestrator) DeliverInboundText(ctx context.Context, sessionID, text string) error {
	s, ok := o.session(sessionID)
	if !ok {
		return errors.ErrSessionNotFound
	}
	return s.HandleText(ctx, text)
}

// OnConnectionClosed tears the session down. Unknown ids are ignored.
func (o *Orchestrator) OnConnectionClosed(ctx context.Context, sessionID string) {
	o.mu.Lock()
	s, ok := o.sessions[sessionID]
	delete(o.sessions, sessionID)
	o.mu.Unlock()

	if ok {
		s.Close(ctx)
	}
}

// Sessions returns the number of open sessions.
func (o *Orchestrator) Sessions() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sessions)
}

// Start registers this instance in the presence store, then runs the relay
// and the lease renewal under supervision until ctx is done.
func (o *Orchestrator) Start(ctx context.Context) error {
	server := o.cfg.Server
	server.StartedAt = o.now().UTC()
	registered, err := o.presence.RegisterServer(ctx, server)
	if err != nil {
		return fmt.Errorf("register server %d: %w", server.ID, err)
	}
	if !registered {
		return fmt.Errorf("%w: %d", errors.ErrServerExists, server.ID)
	}
	o.mu.Lock()
	o.registered = true
	o.mu.Unlock()

	relay := workers.NewRelayWorker(o.log, o.bus, o.registry, server.ID, o.cfg.WorkerCount, o.cfg.RelayInterval)
	o.supervisor.Add(relay)
	if o.cfg.ServerLease > 0 {
		o.supervisor.Add(workers.NewLeaseWorker(o.log, o.presence, server, o.cfg.ServerLease))
	}

	o.log.Info("Starting orchestrator and all supervised workers",
		"server_id", server.ID, "address", fmt.Sprintf("%s:%d", server.Host, server.Port))
	o.supervisor.Run(ctx)
	return nil
}

// Stop closes every open session and, when Start registered it, removes this
// instance from the presence store. The supervisor is cancelled first so the
// relay releases its shards.
func (o *Orchestrator) Stop(ctx context.Context) {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()

	o.mu.Lock()
	sessions := lo.Values(o.sessions)
	o.sessions = make(map[string]*Session)
	registered := o.registered
	o.registered = false
	o.mu.Unlock()

	for _, s := range sessions {
		s.Close(ctx)
	}

	if registered {
		if _, err := o.presence.UnregisterServer(ctx, o.cfg.Server.ID); err != nil {
			o.log.Warn("Failed to unregister server", "server_id", o.cfg.Server.ID, "error", err)
		}
	}
	o.log.Info("Orchestrator stopped", "closed_sessions", len(sessions))
}

// CreateGroup allocates the next group id and stores the group with the
// secret token members must present to get an access token.
func (o *Orchestrator) CreateGroup(ctx context.Context, owner, groupToken string) (domain.GroupID, error) {
	id, err := o.presence.NextGroupID(ctx)
	if err != nil {
		return "", fmt.Errorf("allocate group id: %w", err)
	}
	created, err := o.presence.CreateGroup(ctx, domain.Group{
		ID:        id,
		Token:     groupToken,
		Owner:     owner,
		CreatedAt: o.now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("create group %s: %w", id, err)
	}
	if !created {
		return "", fmt.Errorf("%w: %s", errors.ErrGroupExists, id)
	}
	o.log.Info("Group created", "group_id", id, "user", owner)
	return id, nil
}

// IssueAccessToken checks the group secret and capacity, then issues a
// single-use token the client presents as its first frame.
func (o *Orchestrator) IssueAccessToken(ctx context.Context, user string, groupID domain.GroupID, groupToken string) (string, error) {
	group, err := o.presence.GroupInfo(ctx, groupID)
	if err != nil {
		return "", err
	}
	if group.Token != groupToken {
		return "", errors.ErrTokenMismatch
	}
	count, err := o.presence.MemberCount(ctx, groupID)
	if err != nil {
		return "", fmt.Errorf("count members of %s: %w", groupID, err)
	}
	if count > o.cfg.MaxGroupMembers {
		return "", errors.ErrGroupFull
	}

	token := uuid.NewString()
	access := domain.Access{User: user, GroupID: groupID, IssuedAt: o.now().UTC()}
	if err := o.presence.IssueExpiringToken(ctx, token, access, o.cfg.AccessTokenTTL); err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	return token, nil
}
