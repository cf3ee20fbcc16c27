package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tobiasps/signalmaster/internal/domain"
)

// memberEvent is the payload of memberjoined and memberleaved broadcasts.
// Unlike MemberInfo it carries raw values: absent fields are omitted.
type memberEvent struct {
	ID       domain.ClientID `json:"id"`
	StrongID string          `json:"strongId,omitempty"`
	Name     string          `json:"name,omitempty"`
	Mode     string          `json:"mode,omitempty"`
}

// removeEvent tears down one feed of a member; an empty Type means the
// member left entirely.
type removeEvent struct {
	ID   domain.ClientID `json:"id"`
	Type string          `json:"type,omitempty"`
}

type membersSnapshot struct {
	Clients []domain.MemberInfo `json:"clients"`
}

// Directory owns room membership. One mutex guards every member list so a
// capacity check and the insert it permits are a single step, as are a
// leave and its broadcasts. Emitting under the lock is fine because the
// Emitter contract is non-blocking.
type Directory struct {
	mu       sync.Mutex
	registry *Registry
	emitter  Emitter
	rooms    map[domain.RoomName][]domain.ClientID

	maxClients int
	genName    func() string
}

// NewDirectory wires the directory. maxClients of zero disables the room
// capacity limit. genName produces names for create without an explicit one.
func NewDirectory(registry *Registry, emitter Emitter, maxClients int, genName func() string) *Directory {
	return &Directory{
		registry:   registry,
		emitter:    emitter,
		rooms:      make(map[domain.RoomName][]domain.ClientID),
		maxClients: maxClients,
		genName:    genName,
	}
}

// Members returns the current member ids of a room in enumeration order.
func (d *Directory) Members(name domain.RoomName) []domain.ClientID {
	d.mu.Lock()
	defer d.mu.Unlock()
	members := d.rooms[name]
	out := make([]domain.ClientID, len(members))
	copy(out, members)
	return out
}

// Describe maps each member to its resource flags and identity fields.
func (d *Directory) Describe(name domain.RoomName) domain.RoomDescription {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.describeLocked(name)
}

func (d *Directory) describeLocked(name domain.RoomName) domain.RoomDescription {
	desc := domain.RoomDescription{Clients: make(map[domain.ClientID]domain.ClientDescription)}
	for _, id := range d.rooms[name] {
		cl, ok := d.registry.Get(id)
		if !ok {
			continue
		}
		desc.Clients[id] = domain.ClientDescription{
			Screen:   cl.Resources.Screen,
			Video:    cl.Resources.Video,
			Audio:    cl.Resources.Audio,
			StrongID: cl.StrongID,
			NickName: cl.NickName,
			Mode:     cl.Mode,
		}
	}
	return desc
}

// ListMembers returns the ordered roommembers snapshot with the sentinel
// values for absent fields.
func (d *Directory) ListMembers(name domain.RoomName) []domain.MemberInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listMembersLocked(name)
}

func (d *Directory) listMembersLocked(name domain.RoomName) []domain.MemberInfo {
	members := d.rooms[name]
	out := make([]domain.MemberInfo, 0, len(members))
	for _, id := range members {
		cl, ok := d.registry.Get(id)
		if !ok {
			continue
		}
		info := domain.MemberInfo{ID: id, StrongID: cl.StrongID, Name: "undefined", Mode: "undefined"}
		if cl.NickName != "" {
			info.Name = cl.NickName
		}
		if cl.Mode != "" {
			info.Mode = cl.Mode
		}
		out = append(out, info)
	}
	return out
}

// Join places the client in the room, leaving any different current room
// first. It returns the description of the room as it was before the join,
// so a joiner learns about the peers already present.
func (d *Directory) Join(id domain.ClientID, name domain.RoomName) (domain.RoomDescription, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.joinLocked(id, name)
}

func (d *Directory) joinLocked(id domain.ClientID, name domain.RoomName) (domain.RoomDescription, error) {
	cl, ok := d.registry.Get(id)
	if !ok {
		return domain.RoomDescription{Clients: map[domain.ClientID]domain.ClientDescription{}}, nil
	}
	if d.maxClients > 0 && len(d.rooms[name]) >= d.maxClients {
		return domain.RoomDescription{}, domain.ErrRoomFull
	}
	if cl.Room != "" && cl.Room != name {
		d.leaveLocked(id, "")
	}
	desc := d.describeLocked(name)

	if !containsID(d.rooms[name], id) {
		d.rooms[name] = append(d.rooms[name], id)
	}
	d.registry.UpdateRoom(id, name)
	log.Info().Str("module", "app.directory").Str("id", string(id)).Str("room", string(name)).Msg("client joins room")

	d.emitter.Broadcast(d.rooms[name], "memberjoined", memberEvent{
		ID:       id,
		StrongID: cl.StrongID,
		Name:     cl.NickName,
		Mode:     cl.Mode,
	})
	if list := d.listMembersLocked(name); len(list) > 0 {
		d.emitter.Broadcast(d.rooms[name], "roommembers", membersSnapshot{Clients: list})
	}
	return desc, nil
}

// Leave broadcasts a remove for the given feed type. An empty reason is a
// full departure: the member is dropped from the room, memberleaved and a
// fresh roommembers snapshot (suppressed when empty) go out, and the
// client's room field is cleared. A non-empty reason (e.g. "screen") keeps
// the member in the room.
func (d *Directory) Leave(id domain.ClientID, reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.leaveLocked(id, reason)
}

func (d *Directory) leaveLocked(id domain.ClientID, reason string) {
	cl, ok := d.registry.Get(id)
	if !ok || cl.Room == "" {
		return
	}
	room := cl.Room
	d.emitter.Broadcast(d.rooms[room], "remove", removeEvent{ID: id, Type: reason})
	if reason != "" {
		return
	}
	log.Info().Str("module", "app.directory").Str("id", string(id)).Str("room", string(room)).Msg("client leaves room")

	d.rooms[room] = removeID(d.rooms[room], id)
	if len(d.rooms[room]) == 0 {
		delete(d.rooms, room)
	}
	d.emitter.Broadcast(d.rooms[room], "memberleaved", memberEvent{
		ID:       id,
		StrongID: cl.StrongID,
		Name:     cl.NickName,
		Mode:     cl.Mode,
	})
	if list := d.listMembersLocked(room); len(list) > 0 {
		d.emitter.Broadcast(d.rooms[room], "roommembers", membersSnapshot{Clients: list})
	}
	d.registry.UpdateRoom(id, "")
}

// Create claims a room name for the client and joins it. A name held by an
// occupied room is rejected; an absent name is generated.
func (d *Directory) Create(id domain.ClientID, name domain.RoomName) (domain.RoomName, error) {
	if name == "" {
		name = domain.RoomName(d.genName())
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.rooms[name]) > 0 {
		return "", domain.ErrRoomTaken
	}
	log.Info().Str("module", "app.directory").Str("room", string(name)).Msg("room created")
	if _, err := d.joinLocked(id, name); err != nil {
		return "", err
	}
	return name, nil
}

func containsID(ids []domain.ClientID, id domain.ClientID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []domain.ClientID, id domain.ClientID) []domain.ClientID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
