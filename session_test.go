package docan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionManagerChangeResetsSALevel(t *testing.T) {
	m := NewSessionManager(time.Second)
	m.Change(SessionExtended)
	m.SetSALevel(1)
	assert.EqualValues(t, SessionExtended, m.SessionType())
	assert.EqualValues(t, 1, m.SALevel())

	m.Change(SessionDefault)
	assert.EqualValues(t, SessionDefault, m.SessionType())
	assert.EqualValues(t, 0, m.SALevel())
}

func TestSessionManagerTickRevertsAfterDeadline(t *testing.T) {
	m := NewSessionManager(10 * time.Millisecond)
	m.Change(SessionExtended)
	m.Keep()

	reverted := m.tick(time.Now())
	assert.False(t, reverted)

	reverted = m.tick(time.Now().Add(20 * time.Millisecond))
	assert.True(t, reverted)
	assert.EqualValues(t, SessionDefault, m.SessionType())
}

func TestSessionManagerTickNoopWithoutDeadline(t *testing.T) {
	m := NewSessionManager(time.Second)
	m.Change(SessionExtended)
	reverted := m.tick(time.Now().Add(time.Hour))
	assert.False(t, reverted)
	assert.EqualValues(t, SessionExtended, m.SessionType())
}
