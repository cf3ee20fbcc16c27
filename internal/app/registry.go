package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tobiasps/signalmaster/internal/domain"
)

// Registry holds the record of every live connection. All operations are
// silent no-ops on unknown ids: a deferred event may arrive after its
// connection already went away.
type Registry struct {
	mu      sync.RWMutex
	clients map[domain.ClientID]*domain.Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[domain.ClientID]*domain.Client)}
}

// Register creates the record for a freshly connected client and returns
// its default resource state.
func (r *Registry) Register(id domain.ClientID) domain.Resources {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := domain.DefaultResources()
	r.clients[id] = &domain.Client{ID: id, Resources: res}
	log.Info().Str("module", "app.registry").Str("id", string(id)).Msg("registered client")
	return res
}

// SetNickname updates the nickname; empty or unchanged values are ignored.
func (r *Registry) SetNickname(id domain.ClientID, name string) {
	if name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cl, ok := r.clients[id]
	if !ok || cl.NickName == name {
		return
	}
	cl.NickName = name
	log.Info().Str("module", "app.registry").Str("id", string(id)).Str("nickname", name).Msg("set nickname")
}

// SetInfo merges the fields present in info into the client record.
func (r *Registry) SetInfo(id domain.ClientID, info domain.ClientInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cl, ok := r.clients[id]
	if !ok {
		return
	}
	if info.NickName != "" {
		cl.NickName = info.NickName
	}
	if info.Mode != "" {
		cl.Mode = info.Mode
	}
	if info.StrongID != "" {
		cl.StrongID = info.StrongID
	}
	log.Info().Str("module", "app.registry").Str("id", string(id)).Msg("changed client info")
}

// SetResource flips one of the shared-resource flags.
func (r *Registry) SetResource(id domain.ClientID, kind domain.ResourceKind, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cl, ok := r.clients[id]
	if !ok {
		return
	}
	switch kind {
	case domain.ResourceScreen:
		cl.Resources.Screen = active
	case domain.ResourceVideo:
		cl.Resources.Video = active
	case domain.ResourceAudio:
		cl.Resources.Audio = active
	}
}

// UpdateRoom records the client's current room; empty clears it.
func (r *Registry) UpdateRoom(id domain.ClientID, room domain.RoomName) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cl, ok := r.clients[id]; ok {
		cl.Room = room
	}
}

// Get returns a snapshot copy of the client record.
func (r *Registry) Get(id domain.ClientID) (domain.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cl, ok := r.clients[id]
	if !ok {
		return domain.Client{}, false
	}
	return *cl, true
}

// Unregister deletes the record. Room cleanup is the Directory's job and
// must happen before this.
func (r *Registry) Unregister(id domain.ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
	log.Info().Str("module", "app.registry").Str("id", string(id)).Msg("unregistered client")
}
