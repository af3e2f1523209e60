// Package bottest provides an in-memory Discord session for command tests.
package bottest

import (
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Reply is one message sent back to an interaction.
type Reply struct {
	Content   string
	Embeds    []*discordgo.MessageEmbed
	Ephemeral bool
	Followup  bool
}

// Session records what a command sends. The zero value is ready to use.
type Session struct {
	mu sync.Mutex

	Replies []Reply
	// Sent maps a channel ID to the messages posted there.
	Sent map[string][]string

	RespondErr  error
	FollowupErr error
	// DMErr is returned when opening a DM channel.
	DMErr error
	// SendErr, when set, decides the error of each ChannelMessageSend call.
	SendErr func(channelID string, n int) error
}

func (s *Session) InteractionRespond(_ *discordgo.Interaction, r *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RespondErr != nil {
		return s.RespondErr
	}
	reply := Reply{}
	if r.Data != nil {
		reply.Content = r.Data.Content
		reply.Embeds = r.Data.Embeds
		reply.Ephemeral = r.Data.Flags&discordgo.MessageFlagsEphemeral != 0
	}
	s.Replies = append(s.Replies, reply)
	return nil
}

func (s *Session) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, p *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FollowupErr != nil {
		return nil, s.FollowupErr
	}
	s.Replies = append(s.Replies, Reply{
		Content:   p.Content,
		Embeds:    p.Embeds,
		Ephemeral: p.Flags&discordgo.MessageFlagsEphemeral != 0,
		Followup:  true,
	})
	return &discordgo.Message{Content: p.Content}, nil
}

func (s *Session) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if s.DMErr != nil {
		return nil, s.DMErr
	}
	return &discordgo.Channel{ID: DMChannelID(recipientID), Type: discordgo.ChannelTypeDM}, nil
}

func (s *Session) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SendErr != nil {
		if err := s.SendErr(channelID, len(s.Sent[channelID])); err != nil {
			return nil, err
		}
	}
	if s.Sent == nil {
		s.Sent = make(map[string][]string)
	}
	s.Sent[channelID] = append(s.Sent[channelID], content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

// Contents returns the text of every interaction reply in order.
func (s *Session) Contents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Replies))
	for i, r := range s.Replies {
		out[i] = r.Content
	}
	return out
}

// LastReply returns the most recent interaction reply, or an empty Reply.
func (s *Session) LastReply() Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Replies) == 0 {
		return Reply{}
	}
	return s.Replies[len(s.Replies)-1]
}

// DMs returns what was sent to userID's DM channel.
func (s *Session) DMs(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Sent[DMChannelID(userID)]
}

func DMChannelID(userID string) string { return "dm-" + userID }

// RESTError builds a discordgo REST failure with the given status and API code.
func RESTError(status, code int) *discordgo.RESTError {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status, Status: http.StatusText(status)},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: http.StatusText(status)},
	}
}
