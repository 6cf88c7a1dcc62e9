// Package domain contains core concepts of the moderation agent.
// This file defines the identifiers shared by communities, rooms and participants.
// No runtime, network, or platform logic should be added here.
package domain

type CommunityID string
type RoomID string
type ParticipantID string

// NoRoom is the RoomID of a participant who is not connected to any audio room.
const NoRoom RoomID = ""
