// Package bot holds the Discord reply helpers shared by commands and event handlers.
package bot

import "github.com/bwmarrin/discordgo"

const EmbedColor = 0xb01e66

// MaxMessageLength is Discord's limit for a message body.
const MaxMessageLength = 2000

// Session is the part of *discordgo.Session used to talk back to users.
type Session interface {
	InteractionRespond(i *discordgo.Interaction, r *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(i *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ Session = (*discordgo.Session)(nil)
