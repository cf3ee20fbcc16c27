package domain

// ClientID is the opaque connection identifier assigned by the transport
// when a client connects.
type ClientID string

// ResourceKind names one of the shareable media resources of a client.
type ResourceKind string

const (
	ResourceScreen ResourceKind = "screen"
	ResourceVideo  ResourceKind = "video"
	ResourceAudio  ResourceKind = "audio"
)

// Resources tracks which media a client is currently sharing.
type Resources struct {
	Screen bool `json:"screen"`
	Video  bool `json:"video"`
	Audio  bool `json:"audio"`
}

// DefaultResources is the state of a freshly connected client.
func DefaultResources() Resources {
	return Resources{Video: true}
}

// Client is the registry record of one live connection.
type Client struct {
	ID        ClientID
	NickName  string
	StrongID  string
	Mode      string
	Resources Resources
	Room      RoomName
}

// ClientInfo carries the optional identity fields of a setinfo event.
// Empty fields are left untouched on merge.
type ClientInfo struct {
	NickName string `json:"nickname"`
	Mode     string `json:"mode"`
	StrongID string `json:"strongId"`
}
