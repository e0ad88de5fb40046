package core

import "github.com/google/uuid"

// IDGenerator hands out opaque unique identifiers.
type IDGenerator interface {
	NewID() string
}

// IDFunc adapts a function to IDGenerator.
type IDFunc func() string

func (f IDFunc) NewID() string { return f() }

type uuidGenerator struct{}

func (uuidGenerator) NewID() string { return uuid.NewString() }

// NewUUIDGenerator returns a generator producing random UUIDs.
func NewUUIDGenerator() IDGenerator {
	return uuidGenerator{}
}
