package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/tobiasps/signalmaster/internal/domain"
	"github.com/tobiasps/signalmaster/internal/sdpshape"
)

// Router relays signaling envelopes between two connections, stamping
// sender attribution and shaping any embedded SDP on the way through.
type Router struct {
	registry  *Registry
	directory *Directory
	emitter   Emitter

	codecPriority     []string
	maxAverageBitRate int
}

func NewRouter(registry *Registry, directory *Directory, emitter Emitter, codecPriority []string, maxAverageBitRate int) *Router {
	return &Router{
		registry:          registry,
		directory:         directory,
		emitter:           emitter,
		codecPriority:     codecPriority,
		maxAverageBitRate: maxAverageBitRate,
	}
}

// Route resolves the envelope's destination and delivers it. Envelopes that
// fail to decode or to resolve are dropped without telling the sender; the
// deployed protocol relies on that.
func (rt *Router) Route(senderID domain.ClientID, raw json.RawMessage) {
	env, ok := decodeObject(raw)
	if !ok {
		log.Warn().Str("module", "app.router").Str("from", string(senderID)).Msg("undecodable message payload")
		return
	}
	to := stringField(env, "to")
	if to == "" {
		return
	}
	sender, ok := rt.registry.Get(senderID)
	if !ok {
		return
	}
	dest, ok := rt.resolve(sender, to)
	if !ok {
		log.Debug().Str("module", "app.router").Str("from", string(senderID)).Str("to", to).Msg("destination not resolved, dropping")
		return
	}

	env["from"] = string(sender.ID)
	env["fromStrongId"] = sender.StrongID
	env["fromNickName"] = sender.NickName
	env["fromMode"] = sender.Mode
	env["fromRoom"] = string(sender.Room)

	rt.shapeSDP(env)

	rt.emitter.ToClient(dest, "message", env)
	log.Info().Str("module", "app.router").
		Str("from", string(senderID)).
		Str("to", string(dest)).
		Str("type", stringField(env, "type")).
		Msg("relayed message")
}

// resolve tries the destination key as a live connection id first, then as
// the strong identifier of a member of the sender's room.
func (rt *Router) resolve(sender domain.Client, to string) (domain.ClientID, bool) {
	if _, ok := rt.registry.Get(domain.ClientID(to)); ok {
		return domain.ClientID(to), true
	}
	if sender.Room == "" {
		return "", false
	}
	for _, id := range rt.directory.Members(sender.Room) {
		if member, ok := rt.registry.Get(id); ok && member.StrongID == to {
			return id, true
		}
	}
	return "", false
}

// shapeSDP rewrites payload.sdp in place. Shaping failures are logged and
// the best-effort SDP still goes out: delivery is never blocked by a
// malformed session description.
func (rt *Router) shapeSDP(env map[string]any) {
	payload, ok := env["payload"].(map[string]any)
	if !ok {
		return
	}
	s, ok := payload["sdp"].(string)
	if !ok || s == "" {
		return
	}
	shaped, err := sdpshape.PrioritizeCodecs(s, rt.codecPriority)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Msg("codec prioritization failed")
	}
	shaped, err = sdpshape.SetOpusBitrate(shaped, rt.maxAverageBitRate)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Msg("opus bitrate override failed")
	}
	payload["sdp"] = shaped
}
