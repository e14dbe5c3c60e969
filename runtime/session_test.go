package runtime

import (
	"chat-gateway/codec"
	"chat-gateway/contract"
	"chat-gateway/domain"
	"chat-gateway/errors"
	"chat-gateway/mocks"
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testServerID = int64(1001)

// fakeConn records every frame in arrival order, whichever path it took.
type fakeConn struct {
	mu     sync.Mutex
	frames []codec.Frame
	closed bool
	// saturated makes the non-blocking path drop every frame.
	saturated bool
}

func (c *fakeConn) record(frame []byte) error {
	var f codec.Frame
	if err := json.Unmarshal(frame, &f); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.ErrSessionClosed
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Write(frame []byte) error {
	c.mu.Lock()
	saturated := c.saturated
	c.mu.Unlock()
	if saturated {
		return errors.ErrBackpressure
	}
	return c.record(frame)
}

func (c *fakeConn) Send(_ context.Context, frame []byte) error { return c.record(frame) }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		out = append(out, f.Type)
	}
	return out
}

func (c *fakeConn) last() codec.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames[len(c.frames)-1]
}

type sessionFixture struct {
	session  *Session
	conn     *fakeConn
	presence *mocks.MockPresenceStore
	bus      *mocks.MockMessageBus
	registry *Registry
	now      time.Time
}

func newSessionFixture(t *testing.T) *sessionFixture {
	ctrl := gomock.NewController(t)
	f := &sessionFixture{
		conn:     &fakeConn{},
		presence: mocks.NewMockPresenceStore(ctrl),
		bus:      mocks.NewMockMessageBus(ctrl),
		registry: NewRegistry(),
		now:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.session = NewSession("s-1", logs.GetLoggerFromLevel(slog.LevelDebug), f.conn, f.presence, f.bus, f.registry, SessionConfig{
		ServerID:     testServerID,
		ReplayMaxAge: 30 * 24 * time.Hour,
		QuitSentinel: ":quit!",
		MaxMembers:   1000,
	})
	f.session.now = func() time.Time { return f.now }
	return f
}

func chatRecord(groupID domain.GroupID, user, content string, at time.Time) contract.Record {
	return contract.Record{Value: codec.EncodeMessage(domain.NewChatMessage(7, groupID, user, content, at))}
}

// expectLogin wires a successful token exchange and membership for user in group 42.
func (f *sessionFixture) expectLogin(user string, members []string) {
	f.presence.EXPECT().ConsumeTokenOnce(gomock.Any(), "tok").
		Return(domain.Access{User: user, GroupID: "42"}, nil)
	f.presence.EXPECT().JoinGroup(gomock.Any(), domain.GroupID("42"), user).Return(true, nil)
	f.presence.EXPECT().Members(gomock.Any(), domain.GroupID("42"), 1000).Return(members, nil)
}

func (f *sessionFixture) expectPublish(types ...domain.MessageType) *[]domain.Message {
	var published []domain.Message
	for range types {
		f.bus.EXPECT().Publish(gomock.Any(), domain.GroupID("42"), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ domain.GroupID, payload []byte) error {
				m, err := codec.DecodeMessage(payload)
				if err != nil {
					return err
				}
				published = append(published, m)
				return nil
			})
	}
	return &published
}

func TestSession_FirstLoginWithoutWatermark(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)

	// Given alice holds a valid token for group 42 and never logged in
	f.expectLogin("alice", []string{"alice", "bob"})
	f.presence.EXPECT().GetLastLogin(gomock.Any(), domain.GroupID("42"), "alice").Return(time.Time{}, false, nil)
	f.presence.EXPECT().SetLastLogin(gomock.Any(), domain.GroupID("42"), "alice", f.now).Return(nil)
	published := f.expectPublish(domain.MessageTypeLogin)

	// When she sends her token
	err := f.session.HandleText(context.Background(), "tok")

	// Then the session is live after MEMBERS, LOGIN and CONFIRM with no UNREAD
	req.NoError(err)
	req.Equal(StateLive, f.session.State())
	req.Equal([]string{"MEMBERS", "LOGIN", "CONFIRM"}, f.conn.types())
	req.Equal([]string{"alice", "bob"}, f.conn.frames[0].Members)
	req.Empty(f.conn.frames[0].FromUser)
	req.Zero(f.conn.frames[0].CreateAt)
	req.Equal("alice", f.conn.frames[2].FromUser)
	req.Equal(f.now.UnixMilli(), f.conn.frames[2].CreateAt)

	// Then she is registered locally and her LOGIN went to the bus
	req.Equal(1, f.registry.MemberCount("42"))
	req.Len(*published, 1)
	req.Equal(domain.MessageTypeLogin, (*published)[0].Type)
	req.Equal(testServerID, (*published)[0].ServerID)
}

func TestSession_LoginReplaysBacklogAndReportsUnread(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)
	ctrl := gomock.NewController(t)
	cursor := mocks.NewMockReplayCursor(ctrl)
	watermark := f.now.Add(-10 * time.Minute)

	// Given bob logged out 10 minutes ago and 3 messages were posted since
	f.expectLogin("bob", []string{"alice", "bob"})
	f.presence.EXPECT().GetLastLogin(gomock.Any(), domain.GroupID("42"), "bob").Return(watermark, true, nil)
	f.bus.EXPECT().ReplayConsume(gomock.Any(), domain.GroupID("42"), "bob", watermark).Return(cursor, nil)
	gomock.InOrder(
		cursor.EXPECT().Poll(gomock.Any()).Return([]contract.Record{
			chatRecord("42", "alice", "one", f.now.Add(-9*time.Minute)),
			chatRecord("50", "zoe", "other group, same shard", f.now.Add(-9*time.Minute)),
			chatRecord("42", "alice", "two", f.now.Add(-8*time.Minute)),
		}, nil),
		cursor.EXPECT().Poll(gomock.Any()).Return([]contract.Record{
			{Value: []byte{0xff, 0xff}},
			{Value: codec.EncodeMessage(domain.NewLoginMessage(7, "42", "carol", f.now.Add(-7*time.Minute)))},
			chatRecord("42", "carol", "three", f.now.Add(-6*time.Minute)),
		}, nil),
		cursor.EXPECT().Poll(gomock.Any()).Return(nil, nil),
	)
	cursor.EXPECT().Close().Return(nil)
	f.presence.EXPECT().SetLastLogin(gomock.Any(), domain.GroupID("42"), "bob", f.now).Return(nil)
	f.expectPublish(domain.MessageTypeLogin)

	// When he logs in
	err := f.session.HandleText(context.Background(), "tok")

	// Then the three messages are replayed in bus order and counted once
	req.NoError(err)
	req.Equal([]string{"MEMBERS", "CHAT", "CHAT", "CHAT", "UNREAD", "LOGIN", "CONFIRM"}, f.conn.types())
	req.Equal("one", f.conn.frames[1].Content)
	req.Equal("two", f.conn.frames[2].Content)
	req.Equal("three", f.conn.frames[3].Content)

	// Then UNREAD carries the count and the watermark
	unread := f.conn.frames[4]
	req.Equal("3", unread.Content)
	req.Equal(watermark.UnixMilli(), unread.CreateAt)
	req.Equal(StateLive, f.session.State())
}

func TestSession_WatermarkIsClampedToReplayMaxAge(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)
	ctrl := gomock.NewController(t)
	cursor := mocks.NewMockReplayCursor(ctrl)

	// Given a watermark older than 30 days
	f.expectLogin("bob", nil)
	f.presence.EXPECT().GetLastLogin(gomock.Any(), domain.GroupID("42"), "bob").
		Return(f.now.Add(-45*24*time.Hour), true, nil)

	// Then the replay starts exactly 30 days ago
	f.bus.EXPECT().ReplayConsume(gomock.Any(), domain.GroupID("42"), "bob", f.now.Add(-30*24*time.Hour)).
		Return(cursor, nil)
	cursor.EXPECT().Poll(gomock.Any()).Return(nil, nil)
	cursor.EXPECT().Close().Return(nil)
	f.presence.EXPECT().SetLastLogin(gomock.Any(), domain.GroupID("42"), "bob", f.now).Return(nil)
	f.expectPublish(domain.MessageTypeLogin)

	// When bob logs in
	err := f.session.HandleText(context.Background(), "tok")

	// Then nothing was unread
	req.NoError(err)
	req.Equal([]string{"MEMBERS", "LOGIN", "CONFIRM"}, f.conn.types())
}

func TestSession_ReplayErrorSkipsRegistrationAndWatermark(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)
	ctrl := gomock.NewController(t)
	cursor := mocks.NewMockReplayCursor(ctrl)
	watermark := f.now.Add(-time.Hour)

	// Given the bus fails after one replayed message
	f.expectLogin("bob", nil)
	f.presence.EXPECT().GetLastLogin(gomock.Any(), domain.GroupID("42"), "bob").Return(watermark, true, nil)
	f.bus.EXPECT().ReplayConsume(gomock.Any(), domain.GroupID("42"), "bob", watermark).Return(cursor, nil)
	gomock.InOrder(
		cursor.EXPECT().Poll(gomock.Any()).Return([]contract.Record{chatRecord("42", "alice", "one", watermark)}, nil),
		cursor.EXPECT().Poll(gomock.Any()).Return(nil, stderrors.New("broker unreachable")),
	)
	cursor.EXPECT().Close().Return(nil)
	f.expectPublish(domain.MessageTypeLogin)

	// When bob logs in
	err := f.session.HandleText(context.Background(), "tok")

	// Then the login still completes with CONFIRM last
	req.NoError(err)
	req.Equal([]string{"MEMBERS", "CHAT", "UNREAD", "LOGIN", "CONFIRM"}, f.conn.types())
	req.Equal(StateLive, f.session.State())

	// Then bob is not registered locally and the watermark is untouched
	req.Zero(f.registry.MemberCount("42"))
}

func TestSession_InvalidTokenClosesWithoutSideEffects(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)

	// Given an already consumed token
	f.presence.EXPECT().ConsumeTokenOnce(gomock.Any(), "stale").Return(domain.Access{}, errors.ErrTokenNotFound)

	// When it is presented
	err := f.session.HandleText(context.Background(), "stale")
	f.session.Close(context.Background())

	// Then the connection is closed without any frame, broadcast or publish
	req.ErrorIs(err, errors.ErrTokenNotFound)
	req.Empty(f.conn.types())
	req.True(f.conn.closed)
	req.Equal(StateClosed, f.session.State())
}

func TestSession_JoinFailureClosesConnection(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)

	f.presence.EXPECT().ConsumeTokenOnce(gomock.Any(), "tok").Return(domain.Access{User: "alice", GroupID: "42"}, nil)
	f.presence.EXPECT().JoinGroup(gomock.Any(), domain.GroupID("42"), "alice").Return(false, stderrors.New("store down"))

	err := f.session.HandleText(context.Background(), "tok")

	req.ErrorIs(err, errors.ErrJoinRejected)
	req.Empty(f.conn.types())
}

func liveSession(t *testing.T, f *sessionFixture, user string) {
	t.Helper()
	f.expectLogin(user, []string{user})
	f.presence.EXPECT().GetLastLogin(gomock.Any(), domain.GroupID("42"), user).Return(time.Time{}, false, nil)
	f.presence.EXPECT().SetLastLogin(gomock.Any(), domain.GroupID("42"), user, gomock.Any()).Return(nil)
	f.expectPublish(domain.MessageTypeLogin)
	require.NoError(t, f.session.HandleText(context.Background(), "tok"))
}

func TestSession_ChatGoesToOtherLocalMembersAndBus(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)
	bob := newMember()
	f.registry.Join("42", bob)
	liveSession(t, f, "alice")
	framesBefore := len(f.conn.types())

	// Given the bus refuses the publish
	f.bus.EXPECT().Publish(gomock.Any(), domain.GroupID("42"), gomock.Any()).Return(stderrors.New("bus down"))

	// When alice chats
	err := f.session.HandleText(context.Background(), "hello")

	// Then bob receives the CHAT, alice does not, and the session survives
	req.NoError(err)
	req.Len(f.conn.types(), framesBefore)
	received := bob.received()
	req.Len(received, 2) // LOGIN then CHAT
	var chat codec.Frame
	req.NoError(json.Unmarshal(received[1], &chat))
	req.Equal("CHAT", chat.Type)
	req.Equal("alice", chat.FromUser)
	req.Equal("hello", chat.Content)
	req.Equal(StateLive, f.session.State())
}

func TestSession_QuitSentinelIsCaseInsensitive(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)
	liveSession(t, f, "alice")

	err := f.session.HandleText(context.Background(), ":QUIT!")

	req.ErrorIs(err, errors.ErrQuitRequested)
}

func TestSession_CloseAnnouncesLogout(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)
	bob := newMember()
	f.registry.Join("42", bob)
	liveSession(t, f, "alice")

	// Given a live session
	f.now = f.now.Add(time.Minute)
	f.presence.EXPECT().LeaveGroup(gomock.Any(), domain.GroupID("42"), "alice").Return(true, nil)
	f.presence.EXPECT().SetLastLogin(gomock.Any(), domain.GroupID("42"), "alice", f.now).Return(nil)
	published := f.expectPublish(domain.MessageTypeLogout)

	// When the connection closes, twice
	f.session.Close(context.Background())
	f.session.Close(context.Background())

	// Then alice left, bob saw the LOGOUT and the bus got it once
	req.Equal(StateClosed, f.session.State())
	req.True(f.conn.closed)
	req.Equal(1, f.registry.MemberCount("42"))
	var logout codec.Frame
	req.NoError(json.Unmarshal(bob.received()[len(bob.received())-1], &logout))
	req.Equal("LOGOUT", logout.Type)
	req.Equal("alice", logout.FromUser)
	req.Len(*published, 1)
	req.Equal(domain.MessageTypeLogout, (*published)[0].Type)

	// Then further frames are rejected
	req.ErrorIs(f.session.HandleText(context.Background(), "late"), errors.ErrSessionClosed)
}

func TestSession_CloseInterruptsLogin(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)
	ctrl := gomock.NewController(t)
	cursor := mocks.NewMockReplayCursor(ctrl)
	watermark := f.now.Add(-time.Hour)
	polling := make(chan struct{})

	// Given a login blocked on a replay poll
	f.expectLogin("bob", nil)
	f.presence.EXPECT().GetLastLogin(gomock.Any(), domain.GroupID("42"), "bob").Return(watermark, true, nil)
	f.bus.EXPECT().ReplayConsume(gomock.Any(), domain.GroupID("42"), "bob", watermark).Return(cursor, nil)
	cursor.EXPECT().Poll(gomock.Any()).DoAndReturn(func(ctx context.Context) ([]contract.Record, error) {
		close(polling)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	cursor.EXPECT().Close().Return(nil)
	f.presence.EXPECT().LeaveGroup(gomock.Any(), domain.GroupID("42"), "bob").Return(true, nil)
	f.presence.EXPECT().SetLastLogin(gomock.Any(), domain.GroupID("42"), "bob", f.now).Return(nil)
	f.expectPublish(domain.MessageTypeLogout)

	done := make(chan error, 1)
	go func() { done <- f.session.HandleText(context.Background(), "tok") }()
	<-polling

	// When the connection closes
	f.session.Close(context.Background())

	// Then the login gives up and no LOGIN or CONFIRM is sent
	req.ErrorIs(<-done, errors.ErrSessionClosed)
	req.Equal([]string{"MEMBERS"}, f.conn.types())
	req.Equal(StateClosed, f.session.State())
}

func TestSession_OwnLoginSurvivesFullOutboundBuffer(t *testing.T) {
	req := require.New(t)
	f := newSessionFixture(t)
	bob := newMember()
	f.registry.Join("42", bob)

	// Given alice's outbound buffer drops every non-blocking write
	f.conn.saturated = true
	f.expectLogin("alice", []string{"alice", "bob"})
	f.presence.EXPECT().GetLastLogin(gomock.Any(), domain.GroupID("42"), "alice").Return(time.Time{}, false, nil)
	f.presence.EXPECT().SetLastLogin(gomock.Any(), domain.GroupID("42"), "alice", f.now).Return(nil)
	f.expectPublish(domain.MessageTypeLogin)

	// When she logs in and gets registered locally
	err := f.session.HandleText(context.Background(), "tok")

	// Then her own LOGIN still arrives before CONFIRM
	req.NoError(err)
	req.Equal(2, f.registry.MemberCount("42"))
	req.Equal([]string{"MEMBERS", "LOGIN", "CONFIRM"}, f.conn.types())
	req.Equal("alice", f.conn.frames[1].FromUser)

	// Then bob got exactly one LOGIN through the broadcast
	received := bob.received()
	req.Len(received, 1)
	var login codec.Frame
	req.NoError(json.Unmarshal(received[0], &login))
	req.Equal("LOGIN", login.Type)
	req.Equal("alice", login.FromUser)
}
