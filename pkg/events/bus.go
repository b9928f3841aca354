package events

import (
	"sync"

	"github.com/rs/zerolog/log"
)

const defaultBufferSize = 64

// Bus fans events out to per-topic subscriber channels. Publish never
// blocks; a subscriber that falls behind drops events.
type Bus struct {
	mu         sync.RWMutex
	channels   map[string][]chan *Envelope
	bufferSize int
	closed     bool
}

func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Bus{
		channels:   make(map[string][]chan *Envelope),
		bufferSize: bufferSize,
	}
}

// Subscribe returns a receive channel for one topic. The channel is closed
// when the bus shuts down.
func (b *Bus) Subscribe(topic string) <-chan *Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan *Envelope, b.bufferSize)
	b.channels[topic] = append(b.channels[topic], ch)
	return ch
}

func (b *Bus) Publish(topic string, data interface{}) {
	envelope := &Envelope{Topic: topic, Data: data}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.channels[topic] {
		select {
		case ch <- envelope:
		default:
			log.Warn().Str("topic", topic).Msg("[EventBus] subscriber buffer full, event dropped")
		}
	}
}

// Close shuts the bus down and closes every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, chans := range b.channels {
		for _, ch := range chans {
			close(ch)
		}
	}
}
