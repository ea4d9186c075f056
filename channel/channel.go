// channel/channel.go
package channel

import (
	"sort"
	"sync"
)

// Registry indexes session ids by channel name. It holds ids only; the
// gateway owns the sessions themselves. A session may be a member of
// several channels, and each channel keeps its members in join order.
type Registry struct {
	channels map[string][]string
	mutex    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string][]string),
	}
}

// Join adds sessionID to channel. Joining twice is a no-op.
func (r *Registry) Join(channel, sessionID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, id := range r.channels[channel] {
		if id == sessionID {
			return
		}
	}
	r.channels[channel] = append(r.channels[channel], sessionID)
}

// Leave removes sessionID from channel, dropping the channel once empty.
func (r *Registry) Leave(channel, sessionID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.leaveLocked(channel, sessionID)
}

// LeaveAll removes sessionID from every channel and returns the channels
// it was a member of.
func (r *Registry) LeaveAll(sessionID string) []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var left []string
	for name := range r.channels {
		if r.leaveLocked(name, sessionID) {
			left = append(left, name)
		}
	}
	sort.Strings(left)
	return left
}

func (r *Registry) leaveLocked(channel, sessionID string) bool {
	members, exists := r.channels[channel]
	if !exists {
		return false
	}
	for i, id := range members {
		if id == sessionID {
			members = append(members[:i:i], members[i+1:]...)
			if len(members) == 0 {
				delete(r.channels, channel)
			} else {
				r.channels[channel] = members
			}
			return true
		}
	}
	return false
}

// Members returns a copy of the channel's session ids in join order.
func (r *Registry) Members(channel string) ([]string, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	members, exists := r.channels[channel]
	if !exists {
		return nil, false
	}
	out := make([]string, len(members))
	copy(out, members)
	return out, true
}

func (r *Registry) IsMember(channel, sessionID string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	for _, id := range r.channels[channel] {
		if id == sessionID {
			return true
		}
	}
	return false
}

// Channels returns the names of all non-empty channels, sorted.
func (r *Registry) Channels() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.channels)
}
