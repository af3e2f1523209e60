package core

import (
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duque/internal/bot/bottest"
	"duque/internal/command/channel"
	ct "duque/internal/command/commandtest"
	"duque/internal/command/custom"
	"duque/internal/middleware"
)

func newEnv(t *testing.T) *ct.Env {
	t.Helper()
	help := &HelpCommand{}
	env := ct.New(t, middleware.Defaults(), help, &custom.CommandCommand{}, &custom.ListCommand{}, &channel.RolesCommand{}, &channel.TriggerCommand{})
	help.Registry = env.Registry
	return env
}

func TestBuildHelp(t *testing.T) {
	t.Parallel()
	env := newEnv(t)

	got := BuildHelp(env.Registry, "1.2.3")

	assert.True(t, strings.HasPrefix(got, "📘 **Supported bot commands**\n\n**🕯️ Information**\n• `/help` - Show all supported bot commands\n"))
	assert.Contains(t, got, "• `/command add|edit|remove` - Manage custom commands for this channel")
	assert.Contains(t, got, "• `/roles add|remove|list` - Manage which roles can edit commands in this channel (admin only)")
	assert.Contains(t, got, "• `/trigger` - Set the trigger prefix for this channel (admin only)\n")
	assert.NotContains(t, got, "(admin only) (admin only)")
	assert.True(t, strings.HasSuffix(got, "_Duque 1.2.3_"))

	info := strings.Index(got, "Information")
	customIdx := strings.Index(got, "Custom Commands")
	settings := strings.Index(got, "Settings")
	assert.Less(t, info, customIdx)
	assert.Less(t, customIdx, settings)
}

func TestHelpCommand(t *testing.T) {
	t.Parallel()

	t.Run("reply works outside guilds", func(t *testing.T) {
		t.Parallel()
		env := newEnv(t)
		env.Run(t, ct.DM("help", "user-1"))

		require.Len(t, env.Session.Replies, 1)
		assert.True(t, env.Session.Replies[0].Ephemeral)
		assert.Contains(t, env.Session.Replies[0].Content, "📘 **Supported bot commands**")
	})

	t.Run("dm", func(t *testing.T) {
		t.Parallel()
		env := newEnv(t)
		env.Run(t, ct.Slash("help", "user-1", 0, nil, ct.Bool("dm", true)))

		assert.Equal(t, "✅ Help sent to your DMs.", env.Session.LastReply().Content)
		require.Len(t, env.Session.DMs("user-1"), 1)
	})

	t.Run("dm refused", func(t *testing.T) {
		t.Parallel()
		env := newEnv(t)
		env.Session.DMErr = bottest.RESTError(403, discordgo.ErrCodeCannotSendMessagesToThisUser)
		env.Run(t, ct.Slash("help", "user-1", 0, nil, ct.Bool("dm", true)))

		assert.Equal(t, "❌ I couldn't send you a DM. Please check your DM privacy settings.", env.Session.LastReply().Content)
	})
}
