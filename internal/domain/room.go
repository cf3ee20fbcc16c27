package domain

import "errors"

// RoomName identifies a room. A room exists only while it has members.
type RoomName string

// Join and create failures are surfaced to the client verbatim; the wire
// protocol uses the error text as the result code.
var (
	ErrRoomFull  = errors.New("full")
	ErrRoomTaken = errors.New("taken")
)

// MemberInfo is one entry of a roommembers snapshot. Absent name and mode
// are the literal string "undefined" and absent strongId the empty string;
// deployed clients parse these sentinels, do not change them.
type MemberInfo struct {
	ID       ClientID `json:"id"`
	StrongID string   `json:"strongId"`
	Name     string   `json:"name"`
	Mode     string   `json:"mode"`
}

// ClientDescription is the per-member view inside a RoomDescription.
type ClientDescription struct {
	Screen   bool   `json:"screen"`
	Video    bool   `json:"video"`
	Audio    bool   `json:"audio"`
	StrongID string `json:"strongId"`
	NickName string `json:"nickName"`
	Mode     string `json:"mode"`
}

// RoomDescription is the full picture of a room handed to a joiner.
type RoomDescription struct {
	Clients map[ClientID]ClientDescription `json:"clients"`
}
