package models

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// EventKind identifies which lifecycle callback a scheduled event fires.
// The set is closed: dispatch switches over these four values exhaustively.
type EventKind string

const (
	EventPhase1End      EventKind = "phase1_end"
	EventPhase1Reminder EventKind = "phase1_reminder"
	EventPhase2End      EventKind = "phase2_end"
	EventPhase2Reminder EventKind = "phase2_reminder"
)

// Event is one document in the events collection: a durable timer for a
// single phase transition or reminder. Rows are deleted once fired and when
// the owning trade is stopped.
type Event struct {
	TradeName string       `bson:"trade_name"`
	Server    snowflake.ID `bson:"server"`
	Kind      EventKind    `bson:"kind"`
	DueAt     time.Time    `bson:"due_at"`
}
