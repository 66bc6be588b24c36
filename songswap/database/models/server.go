package models

import (
	"github.com/disgoorg/snowflake/v2"
)

// Default periods, in minutes.
const (
	DefaultReminderPeriod = 24 * 60
	DefaultCommentPeriod  = 48 * 60
)

// ServerUser is a user's membership record inside a server document. Opt
// state lives here, not on the user profile, so a user can be opted in on
// one server and out on another.
type ServerUser struct {
	UID      snowflake.ID `bson:"uid"`
	Nickname string       `bson:"nickname,omitempty"`
	OptedIn  bool         `bson:"opted_in"`
}

// Server is one document in the servers collection.
type Server struct {
	UID                  snowflake.ID `bson:"uid"`
	Name                 string       `bson:"name"`
	Users                []ServerUser `bson:"users"`
	AnnouncementsChannel snowflake.ID `bson:"announcements_channel,omitempty"`
	PingableRole         snowflake.ID `bson:"pingable_role,omitempty"`
	ReminderPeriod       int          `bson:"reminder_period"` // minutes before a deadline
	CommentPeriod        int          `bson:"comment_period"`  // minutes after phase 1 ends
}

// OptedIn returns the UIDs of every user currently opted into trades.
func (s *Server) OptedIn() []snowflake.ID {
	var out []snowflake.ID
	for _, u := range s.Users {
		if u.OptedIn {
			out = append(out, u.UID)
		}
	}
	return out
}

// User returns the membership record for the given user, if present.
func (s *Server) User(uid snowflake.ID) *ServerUser {
	for i := range s.Users {
		if s.Users[i].UID == uid {
			return &s.Users[i]
		}
	}
	return nil
}
