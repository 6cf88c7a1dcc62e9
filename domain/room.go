// Package domain contains core concepts of the moderation agent.
// This file defines audio rooms and the room selection rule.
package domain

// AudioRoom is a channel supporting live multi-party audio inside a community.
type AudioRoom struct {
	ID        RoomID
	Community CommunityID
	Name      string
	Position  int
}

// RoomOccupancy is the number of human occupants observed in a room at reconciliation time.
type RoomOccupancy struct {
	Room   AudioRoom
	Humans int
}

// SelectRoom returns the room with the highest human count.
// Only a strictly greater count replaces the current best, so on ties the room
// listed first wins. ok is false when no room has a human occupant.
func SelectRoom(occupancies []RoomOccupancy) (room AudioRoom, humans int, ok bool) {
	for _, o := range occupancies {
		if o.Humans > humans {
			room, humans = o.Room, o.Humans
		}
	}
	return room, humans, humans > 0
}
