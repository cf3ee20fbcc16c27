package app

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tobiasps/signalmaster/internal/domain"
	"github.com/tobiasps/signalmaster/internal/turncred"
)

// Controller is the per-connection event layer: it wires inbound client
// events to the registry, directory and router, and emits the connect-time
// handshake (stunservers, turnservers, loggedin).
type Controller struct {
	Registry *Registry
	Rooms    *Directory
	Router   *Router
	Emitter  Emitter
	Turn     *turncred.Issuer
	Stun     []string

	now func() time.Time
}

func NewController(registry *Registry, rooms *Directory, router *Router, emitter Emitter, turn *turncred.Issuer, stun []string) *Controller {
	return &Controller{
		Registry: registry,
		Rooms:    rooms,
		Router:   router,
		Emitter:  emitter,
		Turn:     turn,
		Stun:     stun,
		now:      time.Now,
	}
}

// handlers is the dispatch table from inbound event name to handler.
var handlers = map[string]func(*Controller, domain.ClientID, json.RawMessage){
	"nickname":       (*Controller).handleNickname,
	"setinfo":        (*Controller).handleSetInfo,
	"getroommembers": (*Controller).handleGetRoomMembers,
	"message":        (*Controller).handleMessage,
	"shareScreen":    (*Controller).handleShareScreen,
	"unshareScreen":  (*Controller).handleUnshareScreen,
	"join":           (*Controller).handleJoin,
	"create":         (*Controller).handleCreate,
	"leave":          (*Controller).handleLeave,
	"trace":          (*Controller).handleTrace,
}

// Connect registers the connection and sends the handshake events.
func (c *Controller) Connect(id domain.ClientID, origin string) {
	c.Registry.Register(id)

	stun := c.Stun
	if stun == nil {
		stun = []string{}
	}
	c.Emitter.ToClient(id, "stunservers", stun)

	creds := c.Turn.Issue(origin)
	if creds == nil {
		creds = []turncred.Credential{}
	}
	c.Emitter.ToClient(id, "turnservers", creds)

	c.Emitter.ToClient(id, "loggedin", []string{
		string(id),
		strconv.FormatInt(c.now().UnixMilli(), 10),
	})
	log.Info().Str("module", "app.controller").Str("id", string(id)).Msg("client connected to signaling")
}

// Disconnect runs the full-departure cleanup: leave the current room, then
// drop the registry record.
func (c *Controller) Disconnect(id domain.ClientID) {
	c.Rooms.Leave(id, "")
	c.Registry.Unregister(id)
	log.Info().Str("module", "app.controller").Str("id", string(id)).Msg("client disconnected")
}

// HandleEvent dispatches one inbound event. Unknown events are logged and
// dropped; a connection's bad input never propagates past its handler.
func (c *Controller) HandleEvent(id domain.ClientID, event string, data json.RawMessage) {
	h, ok := handlers[event]
	if !ok {
		log.Warn().Str("module", "app.controller").Str("id", string(id)).Str("event", event).Msg("unknown event")
		return
	}
	h(c, id, data)
}

func (c *Controller) handleNickname(id domain.ClientID, data json.RawMessage) {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return
	}
	c.Registry.SetNickname(id, name)
}

func (c *Controller) handleSetInfo(id domain.ClientID, data json.RawMessage) {
	obj, ok := decodeObject(data)
	if !ok {
		log.Warn().Str("module", "app.controller").Str("id", string(id)).Msg("undecodable setinfo payload")
		return
	}
	c.Registry.SetInfo(id, domain.ClientInfo{
		NickName: stringField(obj, "nickname"),
		Mode:     stringField(obj, "mode"),
		StrongID: stringField(obj, "strongId"),
	})
}

func (c *Controller) handleGetRoomMembers(id domain.ClientID, _ json.RawMessage) {
	cl, ok := c.Registry.Get(id)
	if !ok {
		return
	}
	list := c.Rooms.ListMembers(cl.Room)
	if len(list) > 0 {
		c.Emitter.ToClient(id, "roommembers", membersSnapshot{Clients: list})
	}
}

func (c *Controller) handleMessage(id domain.ClientID, data json.RawMessage) {
	c.Router.Route(id, data)
}

func (c *Controller) handleShareScreen(id domain.ClientID, _ json.RawMessage) {
	c.Registry.SetResource(id, domain.ResourceScreen, true)
}

func (c *Controller) handleUnshareScreen(id domain.ClientID, _ json.RawMessage) {
	c.Registry.SetResource(id, domain.ResourceScreen, false)
	c.Rooms.Leave(id, string(domain.ResourceScreen))
}

// joinResult replaces the socket.io join callback: either the room plus its
// pre-join description, or a result code.
type joinResult struct {
	Room    domain.RoomName                              `json:"room,omitempty"`
	Clients map[domain.ClientID]domain.ClientDescription `json:"clients,omitempty"`
	Error   string                                       `json:"error,omitempty"`
}

type createResult struct {
	Room  domain.RoomName `json:"room,omitempty"`
	Error string          `json:"error,omitempty"`
}

func (c *Controller) handleJoin(id domain.ClientID, data json.RawMessage) {
	var name string
	if err := json.Unmarshal(data, &name); err != nil || name == "" {
		return
	}
	desc, err := c.Rooms.Join(id, domain.RoomName(name))
	if err != nil {
		c.Emitter.ToClient(id, "joined", joinResult{Error: resultCode(err)})
		return
	}
	c.Emitter.ToClient(id, "joined", joinResult{Room: domain.RoomName(name), Clients: desc.Clients})
}

func (c *Controller) handleCreate(id domain.ClientID, data json.RawMessage) {
	var name string
	if len(data) > 0 {
		// non-string arguments mean "pick a name for me"
		_ = json.Unmarshal(data, &name)
	}
	room, err := c.Rooms.Create(id, domain.RoomName(name))
	if err != nil {
		c.Emitter.ToClient(id, "created", createResult{Error: resultCode(err)})
		return
	}
	c.Emitter.ToClient(id, "created", createResult{Room: room})
}

func (c *Controller) handleLeave(id domain.ClientID, _ json.RawMessage) {
	c.Rooms.Leave(id, "")
}

// handleTrace logs full webrtc traces to stdout, useful for large-scale
// error monitoring. No state changes.
func (c *Controller) handleTrace(id domain.ClientID, data json.RawMessage) {
	if len(data) == 0 {
		return
	}
	log.Info().Str("module", "app.controller").Str("id", string(id)).RawJSON("trace", data).Msg("trace")
}

func resultCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomFull):
		return "full"
	case errors.Is(err, domain.ErrRoomTaken):
		return "taken"
	default:
		return err.Error()
	}
}
