package app

import "github.com/tobiasps/signalmaster/internal/domain"

// Emitter is the outbound half of the signaling transport. Implementations
// must never block: slow consumers are the transport's problem, not the
// room machinery's.
type Emitter interface {
	ToClient(id domain.ClientID, event string, payload any)
	Broadcast(ids []domain.ClientID, event string, payload any)
}
