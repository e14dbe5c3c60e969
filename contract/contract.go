//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-gateway/domain"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker is a long-running loop. Recovery and restarts belong to the
// supervisor running it.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName returns the concrete type name of w, pointers dereferenced.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Conn is the outbound half of a client connection, owned by the socket layer.
type Conn interface {
	// Write must not block: a slow client loses frames rather than stalling
	// the sender. Used for frames fanned out by other sessions.
	Write(frame []byte) error
	// Send waits for room in the outbound buffer until ctx is done. Used by a
	// session for its own frames, such as a login backlog.
	Send(ctx context.Context, frame []byte) error
	Close() error
}

// Member is anything the registrar can multicast a frame to.
type Member interface {
	ID() string
	Deliver(frame []byte) error
}

// IRegistry is the process-local fan-out table of live sessions per group.
type IRegistry interface {
	Join(groupID domain.GroupID, member Member)
	Leave(groupID domain.GroupID, member Member)
	Broadcast(groupID domain.GroupID, frame []byte, exclude Member) int
}

// PresenceStore is the shared metadata store: servers, groups, memberships,
// login watermarks and one-time access tokens.
type PresenceStore interface {
	// RegisterServer takes the lease on server.ID. It reports false while
	// another live instance holds it.
	RegisterServer(ctx context.Context, server domain.Server) (bool, error)
	// RenewServer extends the lease taken by RegisterServer. It reports false
	// once the lease expired or was taken by another start.
	RenewServer(ctx context.Context, server domain.Server) (bool, error)
	UnregisterServer(ctx context.Context, serverID int64) (bool, error)
	ServerInfo(ctx context.Context, serverID int64) (domain.Server, error)
	ListServers(ctx context.Context) ([]domain.Server, error)

	GroupInfo(ctx context.Context, groupID domain.GroupID) (domain.Group, error)
	NextGroupID(ctx context.Context) (domain.GroupID, error)
	CreateGroup(ctx context.Context, group domain.Group) (bool, error)
	DeleteGroup(ctx context.Context, groupID domain.GroupID) (bool, error)
	JoinGroup(ctx context.Context, groupID domain.GroupID, user string) (bool, error)
	LeaveGroup(ctx context.Context, groupID domain.GroupID, user string) (bool, error)
	MemberCount(ctx context.Context, groupID domain.GroupID) (int, error)
	Members(ctx context.Context, groupID domain.GroupID, limit int) ([]string, error)

	GetLastLogin(ctx context.Context, groupID domain.GroupID, user string) (time.Time, bool, error)
	SetLastLogin(ctx context.Context, groupID domain.GroupID, user string, at time.Time) error

	IssueToken(ctx context.Context, token string, access domain.Access) error
	IssueExpiringToken(ctx context.Context, token string, access domain.Access, ttl time.Duration) error
	ConsumeTokenOnce(ctx context.Context, token string) (domain.Access, error)
}

// Record is one entry read from a broker topic.
type Record struct {
	Topic     string
	Offset    uint64
	Key       string
	Value     []byte
	Timestamp time.Time
}

// WorkerID identifies a local consumer of the bus. A worker is registered
// the first time it consumes and owns a slice of the shards from then on.
type WorkerID int

// MessageBus is the publish/consume contract shared by every gateway instance.
type MessageBus interface {
	// Publish hands a serialized message to the shard of groupID. Ordering is
	// only kept per producer and per shard.
	Publish(ctx context.Context, groupID domain.GroupID, payload []byte) error
	// LiveConsume returns what arrived on the worker's shards since its last
	// call. It never blocks indefinitely; the caller reschedules.
	LiveConsume(ctx context.Context, worker WorkerID) ([]Record, error)
	// Release deregisters a worker, committing and handing its shards over.
	Release(ctx context.Context, worker WorkerID) error
	// ReplayConsume opens a cursor on the shard of groupID positioned at since.
	ReplayConsume(ctx context.Context, groupID domain.GroupID, user string, since time.Time) (ReplayCursor, error)
	Close() error
}

// ReplayCursor walks one shard from a point in time. An empty poll means the
// backlog is exhausted and the cursor has already been released.
type ReplayCursor interface {
	Poll(ctx context.Context) ([]Record, error)
	Close() error
}

// ChatService is what the socket and HTTP layers need from the runtime.
type ChatService interface {
	// Open attaches a session to a new connection and returns its id.
	Open(conn Conn) string
	// DeliverInboundText hands one text frame to a session. An error means
	// the connection must be closed.
	DeliverInboundText(ctx context.Context, sessionID, text string) error
	OnConnectionClosed(ctx context.Context, sessionID string)
	CreateGroup(ctx context.Context, owner, groupToken string) (domain.GroupID, error)
	IssueAccessToken(ctx context.Context, user string, groupID domain.GroupID, groupToken string) (string, error)
}
