package confirm

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPending(m *Manager, token, userID string) *pending {
	p := &pending{userID: userID, ch: make(chan Result, 1)}
	m.mu.Lock()
	m.pending[token] = p
	m.mu.Unlock()
	return p
}

func TestDeliverConfirm(t *testing.T) {
	m := NewManager()
	p := newPending(m, "tok", "user-1")

	require.Equal(t, delivered, m.deliver("tok", "user-1", "yes"))
	assert.Equal(t, Confirmed, <-p.ch)
}

func TestDeliverCancel(t *testing.T) {
	m := NewManager()
	p := newPending(m, "tok", "user-1")

	require.Equal(t, delivered, m.deliver("tok", "user-1", "no"))
	assert.Equal(t, Cancelled, <-p.ch)
}

func TestDeliverRejectsOtherUsers(t *testing.T) {
	m := NewManager()
	p := newPending(m, "tok", "user-1")

	require.Equal(t, wrongUser, m.deliver("tok", "user-2", "yes"))
	select {
	case <-p.ch:
		t.Fatal("a stranger's click must not resolve the prompt")
	default:
	}
}

func TestDeliverUnknownTokenExpired(t *testing.T) {
	m := NewManager()
	assert.Equal(t, expiredPrompt, m.deliver("missing", "user-1", "yes"))
}

func TestDeliverDoubleClickKeepsFirstResult(t *testing.T) {
	m := NewManager()
	p := newPending(m, "tok", "user-1")

	require.Equal(t, delivered, m.deliver("tok", "user-1", "yes"))
	require.Equal(t, delivered, m.deliver("tok", "user-1", "no"))
	assert.Equal(t, Confirmed, <-p.ch)
}

func TestButtonsCarryToken(t *testing.T) {
	rows := buttons("tok-123")
	require.Len(t, rows, 1)

	row, ok := rows[0].(discordgo.ActionsRow)
	require.True(t, ok)
	require.Len(t, row.Components, 2)

	yes, ok := row.Components[0].(discordgo.Button)
	require.True(t, ok)
	assert.Equal(t, "confirm:yes:tok-123", yes.CustomID)

	no, ok := row.Components[1].(discordgo.Button)
	require.True(t, ok)
	assert.Equal(t, "confirm:no:tok-123", no.CustomID)
}
