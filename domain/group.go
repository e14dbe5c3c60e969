package domain

import (
	"chat-gateway/errors"
	"strconv"
	"time"
)

// GroupID is kept as a string on the wire but must parse as a non-negative integer,
// the shard of a group being derived from its numeric value.
type GroupID string

func (g GroupID) Numeric() (uint64, error) {
	n, err := strconv.ParseUint(string(g), 10, 64)
	if err != nil {
		return 0, errors.ErrInvalidGroupID
	}
	return n, nil
}

func (g GroupID) String() string { return string(g) }

type Group struct {
	ID        GroupID   `cbor:"1,keyasint"`
	Token     string    `cbor:"2,keyasint"`
	Owner     string    `cbor:"3,keyasint"`
	CreatedAt time.Time `cbor:"4,keyasint"`
}

// Access is what a one-time access token resolves to.
type Access struct {
	User     string    `cbor:"1,keyasint" validate:"required"`
	GroupID  GroupID   `cbor:"2,keyasint" validate:"required,numeric"`
	IssuedAt time.Time `cbor:"3,keyasint"`
}

// Server describes a running gateway instance registered in the presence store.
type Server struct {
	ID        int64     `cbor:"1,keyasint"`
	Host      string    `cbor:"2,keyasint"`
	Port      int       `cbor:"3,keyasint"`
	StartedAt time.Time `cbor:"4,keyasint"`
}
