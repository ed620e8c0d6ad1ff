package models

import (
	"fmt"
	"time"
)

// MutationState captures where an optimistic mutation is in its lifecycle.
type MutationState string

const (
	MutationInFlight   MutationState = "in-flight"
	MutationConfirmed  MutationState = "confirmed"
	MutationRolledBack MutationState = "rolled-back"
)

// MutationKey identifies the (entity, field) pair a mutation writes.
type MutationKey struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
	Field  string `json:"field"`
}

func (k MutationKey) String() string {
	return fmt.Sprintf("%s/%s.%s", k.Entity, k.ID, k.Field)
}

// MutationRecord is the ephemeral trace of one optimistic mutation.
type MutationRecord struct {
	Key       MutationKey   `json:"key"`
	Seq       uint64        `json:"seq"`
	Previous  interface{}   `json:"previousValue"`
	Proposed  interface{}   `json:"proposedValue"`
	Confirmed interface{}   `json:"confirmedValue,omitempty"`
	State     MutationState `json:"status"`
	Drifted   bool          `json:"drifted"`
	Stale     bool          `json:"stale"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"startedAt"`
	EndedAt   time.Time     `json:"endedAt,omitempty"`
}
