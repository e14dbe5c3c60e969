package runtime

import (
	"chat-gateway/domain"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type member struct {
	id     string
	mu     sync.Mutex
	frames [][]byte
	err    error
}

func newMember() *member { return &member{id: uuid.NewString()} }

func (m *member) ID() string { return m.id }

func (m *member) Deliver(frame []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.frames = append(m.frames, frame)
	return nil
}

func (m *member) received() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

func TestRegistry_Join_One_Group_One_Member(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	groupID := domain.GroupID("1")
	alice := newMember()

	// Given no group exists
	req.Zero(registry.Groups())

	// When a member joins a group
	registry.Join(groupID, alice)

	// Then the group exists with one member
	req.Equal(1, registry.Groups())
	req.Equal(1, registry.MemberCount(groupID))
}

func TestRegistry_Leave_Last_Member_Drops_Group(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	groupID := domain.GroupID("1")
	alice := newMember()
	bob := newMember()

	// Given two members in a group
	registry.Join(groupID, alice)
	registry.Join(groupID, bob)

	// When one leaves
	registry.Leave(groupID, alice)

	// Then only one member is left
	req.Equal(1, registry.MemberCount(groupID))

	// When the last one leaves
	registry.Leave(groupID, bob)

	// Then the group doesn't exist anymore
	req.Zero(registry.Groups())
	req.Zero(registry.Broadcast(groupID, []byte("x"), nil))
}

func TestRegistry_Broadcast_Excludes_Sender(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	groupID := domain.GroupID("1")
	alice, bob, carol := newMember(), newMember(), newMember()
	registry.Join(groupID, alice)
	registry.Join(groupID, bob)
	registry.Join(domain.GroupID("2"), carol)

	// When alice broadcasts to group 1
	delivered := registry.Broadcast(groupID, []byte("hi"), alice)

	// Then only bob receives it
	req.Equal(1, delivered)
	req.Empty(alice.received())
	req.Equal([][]byte{[]byte("hi")}, bob.received())
	req.Empty(carol.received())

	// When broadcasting without exclusion
	delivered = registry.Broadcast(groupID, []byte("relay"), nil)

	// Then both members of group 1 receive it
	req.Equal(2, delivered)
	req.Len(alice.received(), 1)
	req.Len(bob.received(), 2)
}

func TestRegistry_Broadcast_Skips_Failing_Member(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	groupID := domain.GroupID("1")
	slow, fast := newMember(), newMember()
	slow.err = errors.New("buffer full")
	registry.Join(groupID, slow)
	registry.Join(groupID, fast)

	// When one member refuses the frame
	delivered := registry.Broadcast(groupID, []byte("hi"), nil)

	// Then the others still receive it
	req.Equal(1, delivered)
	req.Len(fast.received(), 1)
}

func TestRegistry_Concurrent_Join_Leave_Broadcast(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	groupID := domain.GroupID("9")
	stable := newMember()
	registry.Join(groupID, stable)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m := newMember()
			registry.Join(groupID, m)
			registry.Leave(groupID, m)
		}()
		go func() {
			defer wg.Done()
			registry.Broadcast(groupID, []byte("x"), nil)
		}()
	}
	wg.Wait()

	req.Equal(1, registry.MemberCount(groupID))
	req.Len(stable.received(), 50)
}
