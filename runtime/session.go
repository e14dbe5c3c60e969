package runtime

import (
	"chat-gateway/codec"
	"chat-gateway/contract"
	"chat-gateway/domain"
	"chat-gateway/errors"
	"chat-gateway/observability"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

type SessionState int

const (
	StateUnauthenticated SessionState = iota
	StateAuthenticating
	StateLive
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "UNAUTHENTICATED"
	case StateAuthenticating:
		return "AUTHENTICATING"
	case StateLive:
		return "LIVE"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

type SessionConfig struct {
	ServerID     int64
	ReplayMaxAge time.Duration
	QuitSentinel string
	// MaxMembers bounds the member list sent at login.
	MaxMembers int
}

// Session is the protocol state machine of one client connection.
// HandleText calls are serialized; Close may come from any goroutine and
// interrupts a login in progress.
type Session struct {
	id       string
	log      *slog.Logger
	conn     contract.Conn
	presence contract.PresenceStore
	bus      contract.MessageBus
	registry contract.IRegistry
	cfg      SessionConfig
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      SessionState
	groupID    domain.GroupID
	user       string
	joined     bool
	registered bool
}

func NewSession(
	id string,
	log *slog.Logger,
	conn contract.Conn,
	presence contract.PresenceStore,
	bus contract.MessageBus,
	registry contract.IRegistry,
	cfg SessionConfig,
) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:       id,
		log:      log.With("session_id", id),
		conn:     conn,
		presence: presence,
		bus:      bus,
		registry: registry,
		cfg:      cfg,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Session) ID() string { return s.id }

// Deliver is how other sessions and the relay reach this connection.
func (s *Session) Deliver(frame []byte) error {
	return s.conn.Write(frame)
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HandleText processes one inbound text frame. A returned error means the
// connection must be closed; ErrQuitRequested is the graceful case.
func (s *Session) HandleText(ctx context.Context, text string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateUnauthenticated:
		return s.login(ctx, text)
	case StateLive:
		return s.chat(ctx, text)
	default:
		return errors.ErrSessionClosed
	}
}

func (s *Session) login(ctx context.Context, token string) error {
	s.state = StateAuthenticating

	access, err := s.presence.ConsumeTokenOnce(ctx, token)
	if err != nil {
		observability.Logins.WithLabelValues("bad_token").Inc()
		return fmt.Errorf("consume access token: %w", err)
	}
	s.groupID, s.user = access.GroupID, access.User
	s.log = s.log.With("group_id", s.groupID, "user", s.user)

	if _, err := s.presence.JoinGroup(ctx, s.groupID, s.user); err != nil {
		observability.Logins.WithLabelValues("join_failed").Inc()
		return fmt.Errorf("%w: %w", errors.ErrJoinRejected, err)
	}
	s.joined = true

	if err := s.sendMembers(ctx); err != nil {
		return s.broken(err)
	}

	unread, busErr, err := s.catchUp(ctx)
	if err != nil {
		return s.broken(err)
	}
	if ctx.Err() != nil {
		return errors.ErrSessionClosed
	}

	if busErr == nil {
		s.registry.Join(s.groupID, s)
		s.registered = true
		if err := s.presence.SetLastLogin(ctx, s.groupID, s.user, s.now()); err != nil {
			s.log.Warn("Failed to persist login watermark", "error", err)
		}
	} else {
		observability.ReplayErrors.Inc()
		s.log.Warn("Backlog replay aborted", "unread", unread, "error", busErr)
	}

	login := domain.NewLoginMessage(s.cfg.ServerID, s.groupID, s.user, s.now())
	frame, err := codec.EncodeFrame(login)
	if err != nil {
		return s.broken(err)
	}
	if s.registered {
		s.registry.Broadcast(s.groupID, frame, s)
	}
	if err := s.send(ctx, frame); err != nil {
		return s.broken(err)
	}
	s.publish(ctx, login)

	if err := s.sendMessage(ctx, domain.NewConfirmMessage(login)); err != nil {
		return s.broken(err)
	}

	s.state = StateLive
	observability.SessionsLive.Inc()
	observability.Logins.WithLabelValues("ok").Inc()
	s.log.Info("Session live", "registered", s.registered)
	return nil
}

func (s *Session) broken(err error) error {
	observability.Logins.WithLabelValues("broken").Inc()
	return err
}

// sendMembers sends the member list once per login. A store failure sends an
// empty list rather than none.
func (s *Session) sendMembers(ctx context.Context) error {
	members, err := s.presence.Members(ctx, s.groupID, s.cfg.MaxMembers)
	if err != nil {
		s.log.Warn("Failed to list group members", "error", err)
	}
	return s.sendMessage(ctx, domain.NewMembersMessage(s.cfg.ServerID, s.groupID, members))
}

// catchUp replays the backlog since the login watermark and reports it with
// one UNREAD message. busErr is the replay failure, if any; err means the
// client itself can no longer be written to.
func (s *Session) catchUp(ctx context.Context) (unread int, busErr error, err error) {
	stored, found, err := s.presence.GetLastLogin(ctx, s.groupID, s.user)
	if err != nil {
		s.log.Warn("Failed to read login watermark, skipping replay", "error", err)
		return 0, nil, nil
	}
	if !found {
		return 0, nil, nil
	}

	watermark := stored
	if floor := s.now().Add(-s.cfg.ReplayMaxAge); watermark.Before(floor) {
		watermark = floor
	}

	unread, busErr = s.replay(ctx, watermark)
	if stderrors.Is(busErr, errors.ErrSessionClosed) {
		return unread, nil, busErr
	}
	if unread > 0 {
		if err := s.sendMessage(ctx, domain.NewUnreadMessage(s.cfg.ServerID, s.groupID, unread, watermark)); err != nil {
			return unread, busErr, err
		}
	}
	return unread, busErr, nil
}

// replay drives a cursor to exhaustion, forwarding the group's CHAT records in
// bus order. Records of other groups sharing the shard are skipped.
func (s *Session) replay(ctx context.Context, since time.Time) (int, error) {
	cursor, err := s.bus.ReplayConsume(ctx, s.groupID, s.user, since)
	if err != nil {
		return 0, err
	}
	defer func() { _ = cursor.Close() }()

	unread := 0
	for {
		records, err := cursor.Poll(ctx)
		if err != nil {
			return unread, err
		}
		if len(records) == 0 {
			return unread, nil
		}
		for _, r := range records {
			m, err := codec.DecodeMessage(r.Value)
			if err != nil {
				s.log.Warn("Skipping undecodable record", "topic", r.Topic, "offset", r.Offset, "error", err)
				continue
			}
			if m.Type != domain.MessageTypeChat || m.GroupID != s.groupID {
				continue
			}
			if err := s.sendMessage(ctx, m); err != nil {
				return unread, err
			}
			unread++
			observability.ReplayedRecords.Inc()
		}
	}
}

func (s *Session) chat(ctx context.Context, text string) error {
	if strings.EqualFold(text, s.cfg.QuitSentinel) {
		return errors.ErrQuitRequested
	}

	m := domain.NewChatMessage(s.cfg.ServerID, s.groupID, s.user, text, s.now())
	frame, err := codec.EncodeFrame(m)
	if err != nil {
		return fmt.Errorf("encode chat frame: %w", err)
	}
	s.registry.Broadcast(s.groupID, frame, s)
	s.publish(ctx, m)
	return nil
}

// publish is best effort: local delivery already happened.
func (s *Session) publish(ctx context.Context, m domain.Message) {
	if err := s.bus.Publish(ctx, s.groupID, codec.EncodeMessage(m)); err != nil {
		s.log.Warn("Failed to publish to bus", "type", m.Type.String(), "error", err)
	}
}

func (s *Session) sendMessage(ctx context.Context, m domain.Message) error {
	frame, err := codec.EncodeFrame(m)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", m.Type, err)
	}
	return s.send(ctx, frame)
}

func (s *Session) send(ctx context.Context, frame []byte) error {
	if err := s.conn.Send(ctx, frame); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrSessionClosed, err)
	}
	return nil
}

// Close tears the session down once. When the user had joined the group, it
// leaves it, moves the watermark to now and announces the LOGOUT locally and
// on the bus. Every step is best effort.
func (s *Session) Close(ctx context.Context) {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	wasLive := s.state == StateLive
	s.state = StateClosed

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if s.joined {
		changed, err := s.presence.LeaveGroup(ctx, s.groupID, s.user)
		if err != nil {
			s.log.Warn("Failed to leave group", "error", err)
		} else if !changed {
			s.log.Debug("User was not a member anymore")
		}
		if err := s.presence.SetLastLogin(ctx, s.groupID, s.user, s.now()); err != nil {
			s.log.Warn("Failed to persist logout watermark", "error", err)
		}
		if s.registered {
			s.registry.Leave(s.groupID, s)
		}

		logout := domain.NewLogoutMessage(s.cfg.ServerID, s.groupID, s.user, s.now())
		if frame, err := codec.EncodeFrame(logout); err == nil {
			s.registry.Broadcast(s.groupID, frame, s)
		}
		s.publish(ctx, logout)
	}

	if wasLive {
		observability.SessionsLive.Dec()
	}
	if err := s.conn.Close(); err != nil {
		s.log.Debug("Connection already closed", "error", err)
	}
	s.log.Info("Session closed")
}
