package models

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

type Phase string

const (
	Phase1    Phase = "phase1" // song collection window
	Phase2    Phase = "phase2" // response/rating window
	PhaseDone Phase = "done"   // terminal
)

// Song is a recommendation submitted by an edge's sender during phase 1.
type Song struct {
	Song     string `bson:"song"`
	Comments string `bson:"comments,omitempty"`
}

// Response is the recipient's rating, submitted during phase 2.
type Response struct {
	Rating   string `bson:"rating"`
	Comments string `bson:"comments,omitempty"`
}

// Edge is one directed pairing in a trade: From recommends a song to To.
type Edge struct {
	From     snowflake.ID `bson:"from"`
	To       snowflake.ID `bson:"to"`
	Song     *Song        `bson:"song,omitempty"`
	Response *Response    `bson:"response,omitempty"`
}

// Trade is one run of the song trade within a server. The edge list encodes
// a derangement over Users: every participant appears exactly once as From
// and exactly once as To, and never on both ends of the same edge.
type Trade struct {
	Name   string         `bson:"name"`
	Server snowflake.ID   `bson:"server"`
	Users  []snowflake.ID `bson:"users"`
	Edges  []Edge         `bson:"edges"`
	Start  time.Time      `bson:"start"`
	End    time.Time      `bson:"end"` // phase 1 deadline
	Phase  Phase          `bson:"phase"`
}

// EdgeFrom returns the edge whose sender is from, if any.
func (t *Trade) EdgeFrom(from snowflake.ID) *Edge {
	for i := range t.Edges {
		if t.Edges[i].From == from {
			return &t.Edges[i]
		}
	}
	return nil
}

// EdgeTo returns the edge whose recipient is to, if any.
func (t *Trade) EdgeTo(to snowflake.ID) *Edge {
	for i := range t.Edges {
		if t.Edges[i].To == to {
			return &t.Edges[i]
		}
	}
	return nil
}
