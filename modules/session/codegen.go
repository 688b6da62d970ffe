package session

import (
	"strings"
	"sync"

	nanoid "github.com/jaevor/go-nanoid"
)

const (
	// RoomCodeAlphabet is the set of characters room codes are drawn from.
	RoomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// RoomCodeLength is the length of generated room codes.
	RoomCodeLength = 6

	// MaxCodeAttempts bounds room code regeneration on collision.
	MaxCodeAttempts = 10
)

// NewCodeGenerator returns a generator of random room codes that is safe
// for concurrent use.
func NewCodeGenerator() (func() string, error) {
	gen, err := nanoid.CustomASCII(RoomCodeAlphabet, RoomCodeLength)
	if err != nil {
		return nil, err
	}
	var mu sync.Mutex
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return gen()
	}, nil
}

// NormalizeRoomCode trims and uppercases a client-supplied room code.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RoomTopic is the topic for every joined participant of a room.
func RoomTopic(code string) string {
	return "room_" + code
}

// BroadcastTopic is the topic for broadcast viewers of a room.
func BroadcastTopic(code string) string {
	return "broadcast_" + code
}
