package docan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBufferPushPop(t *testing.T) {
	buf := NewEventBuffer(2)
	buf.Push(IsoTpEvent{Kind: EventDataReceived, Data: []byte{0x01}})
	buf.Push(IsoTpEvent{Kind: EventDataReceived, Data: []byte{0x02}})

	evt, ok := buf.Pop()
	assert.True(t, ok)
	assert.EqualValues(t, []byte{0x01}, evt.Data)

	evt, ok = buf.Pop()
	assert.True(t, ok)
	assert.EqualValues(t, []byte{0x02}, evt.Data)

	_, ok = buf.Pop()
	assert.False(t, ok)
}

func TestEventBufferDropsOldestWhenFull(t *testing.T) {
	buf := NewEventBuffer(2)
	buf.Push(IsoTpEvent{Kind: EventDataReceived, Data: []byte{0x01}})
	buf.Push(IsoTpEvent{Kind: EventDataReceived, Data: []byte{0x02}})
	buf.Push(IsoTpEvent{Kind: EventDataReceived, Data: []byte{0x03}})

	evt, ok := buf.Pop()
	assert.True(t, ok)
	assert.EqualValues(t, []byte{0x02}, evt.Data)
}

func TestEventBufferNotify(t *testing.T) {
	buf := NewEventBuffer(4)
	select {
	case <-buf.Notify():
		t.Fatal("unexpected notify before any push")
	default:
	}
	buf.Push(IsoTpEvent{Kind: EventDataReceived})
	select {
	case <-buf.Notify():
	default:
		t.Fatal("expected notify after push")
	}
}

func TestEventBufferClear(t *testing.T) {
	buf := NewEventBuffer(4)
	buf.Push(IsoTpEvent{Kind: EventDataReceived})
	buf.Clear()
	_, ok := buf.Pop()
	assert.False(t, ok)
}
