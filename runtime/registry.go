package runtime

import (
	"chat-gateway/contract"
	"chat-gateway/domain"
	"chat-gateway/observability"
	"sync"
)

type Set map[string]contract.Member

// Registry is the process-local table of live members per group.
// It only knows sessions attached to this gateway instance; members connected
// elsewhere are reached through the bus.
type Registry struct {
	mu           sync.RWMutex
	groupMembers map[domain.GroupID]Set // map group to its live members, by member id
}

func NewRegistry() *Registry {
	return &Registry{
		groupMembers: make(map[domain.GroupID]Set),
	}
}

// Join attaches a member to a group. The group entry is created on the fly.
// Joining twice with the same member id replaces the previous entry.
func (r *Registry) Join(groupID domain.GroupID, member contract.Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.groupMembers[groupID]; !ok {
		r.groupMembers[groupID] = make(Set)
	}
	r.groupMembers[groupID][member.ID()] = member
}

// Leave detaches a member from a group and drops the group once empty,
// so long-running instances don't accumulate dead entries.
func (r *Registry) Leave(groupID domain.GroupID, member contract.Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.groupMembers[groupID]; ok {
		delete(members, member.ID())

		// If no one is left in the group, remove the group entry entirely
		if len(members) == 0 {
			delete(r.groupMembers, groupID)
		}
	}
}

// Broadcast delivers frame to every member of the group except exclude and
// returns how many accepted it. Members are snapshotted under the read lock and
// delivered to outside of it: a member joining concurrently may or may not get
// the frame, and a slow member never blocks Join or Leave.
func (r *Registry) Broadcast(groupID domain.GroupID, frame []byte, exclude contract.Member) int {
	members := r.snapshot(groupID)

	delivered := 0
	for _, m := range members {
		if exclude != nil && m.ID() == exclude.ID() {
			continue
		}
		if err := m.Deliver(frame); err != nil {
			observability.BroadcastDrops.Inc()
			continue
		}
		delivered++
	}
	return delivered
}

func (r *Registry) snapshot(groupID domain.GroupID) []contract.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.groupMembers[groupID]
	if !ok {
		return nil
	}
	out := make([]contract.Member, 0, len(members))
	for _, m := range members {
		out = append(out, m)
	}
	return out
}

// MemberCount returns the number of local members of a group.
func (r *Registry) MemberCount(groupID domain.GroupID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groupMembers[groupID])
}

// Groups returns the number of groups with at least one local member.
func (r *Registry) Groups() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groupMembers)
}
