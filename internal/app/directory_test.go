package app

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobiasps/signalmaster/internal/domain"
)

func newTestDirectory(maxClients int) (*Registry, *Directory, *recorder) {
	rec := &recorder{}
	reg := NewRegistry()
	n := 0
	gen := func() string {
		n++
		return fmt.Sprintf("generated-%d", n)
	}
	return reg, NewDirectory(reg, rec, maxClients, gen), rec
}

func TestJoinCapacity(t *testing.T) {
	reg, dir, _ := newTestDirectory(2)
	reg.Register("a")
	reg.Register("b")
	reg.Register("c")

	_, err := dir.Join("a", "r1")
	require.NoError(t, err)
	_, err = dir.Join("b", "r1")
	require.NoError(t, err)

	_, err = dir.Join("c", "r1")
	require.ErrorIs(t, err, domain.ErrRoomFull)

	// the rejected client joined nothing
	cl, _ := reg.Get("c")
	assert.Empty(t, cl.Room)
}

func TestJoinDescribesRoomBeforeEntry(t *testing.T) {
	reg, dir, _ := newTestDirectory(0)
	reg.Register("a")
	reg.Register("b")
	reg.SetInfo("a", domain.ClientInfo{NickName: "alice", StrongID: "sa"})

	desc, err := dir.Join("a", "r1")
	require.NoError(t, err)
	assert.Empty(t, desc.Clients, "first joiner sees an empty room")

	desc, err = dir.Join("b", "r1")
	require.NoError(t, err)
	require.Len(t, desc.Clients, 1)
	got := desc.Clients["a"]
	assert.Equal(t, "alice", got.NickName)
	assert.Equal(t, "sa", got.StrongID)
	assert.True(t, got.Video)
	assert.False(t, got.Screen)
}

func TestJoinBroadcasts(t *testing.T) {
	reg, dir, rec := newTestDirectory(0)
	reg.Register("a")
	reg.Register("b")
	reg.SetInfo("b", domain.ClientInfo{NickName: "bob", Mode: "guest"})

	_, err := dir.Join("a", "r1")
	require.NoError(t, err)
	rec.reset()

	_, err = dir.Join("b", "r1")
	require.NoError(t, err)

	// both the existing member and the joiner get memberjoined
	for _, id := range []domain.ClientID{"a", "b"} {
		assert.Equal(t, 1, rec.countFor(id, "memberjoined"), "memberjoined for %s", id)
		e, ok := rec.lastFor(id, "memberjoined")
		require.True(t, ok)
		me := e.payload.(memberEvent)
		assert.Equal(t, domain.ClientID("b"), me.ID)
		assert.Equal(t, "bob", me.Name)
		assert.Equal(t, "guest", me.Mode)

		assert.Equal(t, 1, rec.countFor(id, "roommembers"), "roommembers for %s", id)
		e, ok = rec.lastFor(id, "roommembers")
		require.True(t, ok)
		snap := e.payload.(membersSnapshot)
		assert.Len(t, snap.Clients, 2)
	}
}

func TestJoinSwitchesRooms(t *testing.T) {
	reg, dir, rec := newTestDirectory(0)
	reg.Register("a")
	reg.Register("b")
	_, _ = dir.Join("a", "r1")
	_, _ = dir.Join("b", "r1")
	rec.reset()

	_, err := dir.Join("a", "r2")
	require.NoError(t, err)

	cl, _ := reg.Get("a")
	assert.Equal(t, domain.RoomName("r2"), cl.Room)
	assert.Equal(t, []domain.ClientID{"b"}, dir.Members("r1"))
	assert.Equal(t, []domain.ClientID{"a"}, dir.Members("r2"))

	// the old room saw the full departure
	assert.Equal(t, 1, rec.countFor("b", "remove"))
	assert.Equal(t, 1, rec.countFor("b", "memberleaved"))
}

func TestFullLeaveTwoMemberRoom(t *testing.T) {
	reg, dir, rec := newTestDirectory(0)
	reg.Register("a")
	reg.Register("b")
	reg.SetInfo("a", domain.ClientInfo{NickName: "alice", StrongID: "sa"})
	_, _ = dir.Join("a", "r1")
	_, _ = dir.Join("b", "r1")
	rec.reset()

	dir.Leave("a", "")

	assert.Equal(t, 1, rec.countFor("b", "remove"))
	assert.Equal(t, 1, rec.countFor("b", "memberleaved"))
	assert.Equal(t, 1, rec.countFor("b", "roommembers"))

	e, ok := rec.lastFor("b", "remove")
	require.True(t, ok)
	re := e.payload.(removeEvent)
	assert.Equal(t, domain.ClientID("a"), re.ID)
	assert.Empty(t, re.Type)

	e, ok = rec.lastFor("b", "memberleaved")
	require.True(t, ok)
	me := e.payload.(memberEvent)
	assert.Equal(t, domain.ClientID("a"), me.ID)
	assert.Equal(t, "alice", me.Name)
	assert.Equal(t, "sa", me.StrongID)

	e, ok = rec.lastFor("b", "roommembers")
	require.True(t, ok)
	snap := e.payload.(membersSnapshot)
	require.Len(t, snap.Clients, 1)
	assert.Equal(t, domain.ClientID("b"), snap.Clients[0].ID)

	cl, _ := reg.Get("a")
	assert.Empty(t, cl.Room)
}

func TestFullLeaveLastMemberSuppressesEmptySnapshot(t *testing.T) {
	reg, dir, rec := newTestDirectory(0)
	reg.Register("a")
	_, _ = dir.Join("a", "r1")
	rec.reset()

	dir.Leave("a", "")

	// the leaver still receives its own remove
	assert.Equal(t, 1, rec.countFor("a", "remove"))
	for _, e := range rec.all() {
		assert.NotEqual(t, "roommembers", e.event, "empty roommembers must never be broadcast")
	}
	assert.Empty(t, dir.Members("r1"))
}

func TestPartialLeaveKeepsMembership(t *testing.T) {
	reg, dir, rec := newTestDirectory(0)
	reg.Register("a")
	reg.Register("b")
	_, _ = dir.Join("a", "r1")
	_, _ = dir.Join("b", "r1")
	rec.reset()

	dir.Leave("a", "screen")

	e, ok := rec.lastFor("b", "remove")
	require.True(t, ok)
	re := e.payload.(removeEvent)
	assert.Equal(t, domain.ClientID("a"), re.ID)
	assert.Equal(t, "screen", re.Type)

	assert.Zero(t, rec.countFor("b", "memberleaved"))
	assert.Zero(t, rec.countFor("b", "roommembers"))
	assert.Equal(t, []domain.ClientID{"a", "b"}, dir.Members("r1"))
}

func TestLeaveWithoutRoomIsNoop(t *testing.T) {
	reg, dir, rec := newTestDirectory(0)
	reg.Register("a")
	dir.Leave("a", "")
	assert.Empty(t, rec.all())
}

func TestCreateTakenAndReleased(t *testing.T) {
	reg, dir, _ := newTestDirectory(0)
	reg.Register("a")
	reg.Register("b")

	name, err := dir.Create("a", "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomName("r1"), name)

	_, err = dir.Create("b", "r1")
	require.ErrorIs(t, err, domain.ErrRoomTaken)

	dir.Leave("a", "")

	name, err = dir.Create("b", "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomName("r1"), name)
}

func TestCreateGeneratesName(t *testing.T) {
	reg, dir, _ := newTestDirectory(0)
	reg.Register("a")

	name, err := dir.Create("a", "")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomName("generated-1"), name)
	assert.Equal(t, []domain.ClientID{"a"}, dir.Members(name))
}

func TestListMembersSentinels(t *testing.T) {
	reg, dir, _ := newTestDirectory(0)
	reg.Register("a")
	reg.Register("b")
	reg.SetInfo("b", domain.ClientInfo{NickName: "bob", Mode: "host", StrongID: "sb"})
	_, _ = dir.Join("a", "r1")
	_, _ = dir.Join("b", "r1")

	list := dir.ListMembers("r1")
	require.Len(t, list, 2)

	assert.Equal(t, domain.ClientID("a"), list[0].ID)
	assert.Equal(t, "undefined", list[0].Name)
	assert.Equal(t, "undefined", list[0].Mode)
	assert.Equal(t, "", list[0].StrongID)

	assert.Equal(t, domain.ClientID("b"), list[1].ID)
	assert.Equal(t, "bob", list[1].Name)
	assert.Equal(t, "host", list[1].Mode)
	assert.Equal(t, "sb", list[1].StrongID)
}
