// Package queue implements the durable queue between the gateway and the consumer.
//
// Every backend has the same delivery model: received messages stay invisible to other
// receivers until they are acknowledged or their visibility timeout runs out. Messages
// delivered more than MaxReceives times are moved to a dead-letter destination.
package queue

import (
	"errors"
	"time"
)

var ErrClosed = errors.New("queue is closed")

const (
	DefaultVisibilityTimeout = 30 * time.Second
	DefaultMaxReceives       = 5
)

func withDefaults(visibility time.Duration, maxReceives int) (time.Duration, int) {
	if visibility <= 0 {
		visibility = DefaultVisibilityTimeout
	}
	if maxReceives == 0 {
		maxReceives = DefaultMaxReceives
	}
	return visibility, maxReceives
}

// exhausted reports whether a message delivered receives times must be dead-lettered.
// A negative maxReceives disables dead-lettering.
func exhausted(receives, maxReceives int) bool {
	return maxReceives > 0 && receives > maxReceives
}
