package discord

import (
	"sort"
	"swear-jar/domain"
	"swear-jar/domain/event"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

func messageEvent(m *discordgo.MessageCreate) event.MessageSent {
	msg := event.MessageSent{
		ID:        m.ID,
		Community: domain.CommunityID(m.GuildID),
		Channel:   m.ChannelID,
		Content:   m.Content,
		At:        m.Timestamp,
	}
	if msg.At.IsZero() {
		msg.At = time.Now().UTC()
	}
	if m.Author != nil {
		msg.Author = domain.ParticipantID(m.Author.ID)
		msg.AuthorAutomated = m.Author.Bot
	}
	return msg
}

// presenceEvent needs the previous state tracked by the session state cache.
// Without it the participant is considered to come from no room.
func presenceEvent(selfID string, vs *discordgo.VoiceStateUpdate, automated bool) event.PresenceChanged {
	evt := event.PresenceChanged{
		Community:   domain.CommunityID(vs.GuildID),
		Participant: domain.ParticipantID(vs.UserID),
		Automated:   automated,
		Self:        vs.UserID == selfID,
		After:       domain.RoomID(vs.ChannelID),
	}
	if vs.BeforeUpdate != nil {
		evt.Before = domain.RoomID(vs.BeforeUpdate.ChannelID)
	}
	return evt
}

func readyEvent(r *discordgo.Ready) event.ConnectionReady {
	return event.ConnectionReady{
		Communities: lo.Map(r.Guilds, func(g *discordgo.Guild, _ int) domain.CommunityID {
			return domain.CommunityID(g.ID)
		}),
	}
}

// voiceRooms keeps voice channels ordered by position, then ID.
func voiceRooms(community domain.CommunityID, channels []*discordgo.Channel) []domain.AudioRoom {
	voice := lo.Filter(channels, func(c *discordgo.Channel, _ int) bool {
		return c != nil && (c.Type == discordgo.ChannelTypeGuildVoice || c.Type == discordgo.ChannelTypeGuildStageVoice)
	})
	sort.SliceStable(voice, func(i, j int) bool {
		if voice[i].Position != voice[j].Position {
			return voice[i].Position < voice[j].Position
		}
		return voice[i].ID < voice[j].ID
	})
	return lo.Map(voice, func(c *discordgo.Channel, _ int) domain.AudioRoom {
		return domain.AudioRoom{ID: domain.RoomID(c.ID), Community: community, Name: c.Name, Position: c.Position}
	})
}

// occupants lists the participants whose voice state points at room.
// isBot is asked only when the voice state carries no member.
func occupants(states []*discordgo.VoiceState, room domain.RoomID, isBot func(userID string) bool) []domain.Participant {
	var out []domain.Participant
	for _, vs := range states {
		if vs == nil || domain.RoomID(vs.ChannelID) != room {
			continue
		}
		p := domain.Participant{ID: domain.ParticipantID(vs.UserID)}
		if vs.Member != nil && vs.Member.User != nil {
			p.Automated = vs.Member.User.Bot
			p.Name = displayName(vs.Member.User)
		} else {
			p.Automated = isBot(vs.UserID)
		}
		out = append(out, p)
	}
	return out
}

func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
