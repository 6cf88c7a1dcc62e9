package domain

import "time"

// PresenceInfo is a read-only view of the agent presence in one community.
type PresenceInfo struct {
	Community    CommunityID
	Room         RoomID
	JoinedAt     time.Time
	Transcribing bool
}
