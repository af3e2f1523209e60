package custom

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duque/internal/bot/bottest"
	ct "duque/internal/command/commandtest"
	"duque/internal/middleware"
	st "duque/internal/storagetypes"
)

func newEnv(t *testing.T) *ct.Env {
	t.Helper()
	return ct.New(t, middleware.Defaults(), &CommandCommand{}, &ListCommand{}, &PreviewCommand{}, &HistoryCommand{})
}

func TestCommandAddEditRemove(t *testing.T) {
	t.Parallel()
	env := newEnv(t)
	ctx := context.Background()

	env.Run(t, ct.Admin("command", ct.Sub("add", ct.Str("trigger", "  Hello "), ct.Str("response", "Hi there"))))
	assert.Equal(t, "✅ Command `!hello` has been added to this channel.", env.Session.LastReply().Content)
	assert.True(t, env.Session.LastReply().Ephemeral)

	cmd, err := env.Storage.GetCommand(ctx, ct.ChannelID, "hello")
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.Equal(t, "Hi there", cmd.CurrentResponse)
	assert.Equal(t, "admin-1", cmd.CreatedByUserID)

	env.Run(t, ct.Admin("command", ct.Sub("add", ct.Str("trigger", "hello"), ct.Str("response", "again"))))
	assert.Equal(t, "⚠️ The command `!hello` already exists in this channel. Use `/command edit hello <new_response>` to update it.",
		env.Session.LastReply().Content)

	env.Run(t, ct.Admin("command", ct.Sub("edit", ct.Str("trigger", "HELLO"), ct.Str("response", "Hey"))))
	assert.Equal(t, "✅ Command `!hello` has been updated.", env.Session.LastReply().Content)

	env.Run(t, ct.Admin("command", ct.Sub("edit", ct.Str("trigger", "nope"), ct.Str("response", "x"))))
	assert.Equal(t, "❌ The command `!nope` does not exist in this channel. Use `/command add` to create it first.",
		env.Session.LastReply().Content)

	env.Run(t, ct.Admin("command", ct.Sub("remove", ct.Str("trigger", "hello"))))
	assert.Equal(t, "✅ Command `!hello` has been removed from this channel.", env.Session.LastReply().Content)

	env.Run(t, ct.Admin("command", ct.Sub("remove", ct.Str("trigger", "hello"))))
	assert.Equal(t, "❌ The command `!hello` does not exist in this channel.", env.Session.LastReply().Content)

	history, err := env.Storage.GetHistory(ctx, ct.ChannelID, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
}

func TestCommandUsesChannelPrefix(t *testing.T) {
	t.Parallel()
	env := newEnv(t)
	require.NoError(t, env.Storage.SetTriggerPrefix(context.Background(), ct.ChannelID, ct.GuildID, "?"))

	env.Run(t, ct.Admin("command", ct.Sub("add", ct.Str("trigger", "rules"), ct.Str("response", "Be nice"))))
	assert.Equal(t, "✅ Command `?rules` has been added to this channel.", env.Session.LastReply().Content)
}

func TestCommandValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		trigger  string
		response string
		want     string
	}{
		{"blank trigger", "   ", "x", "❌ The trigger must not be empty."},
		{"spaces", "two words", "x", "❌ The trigger must be a single word without spaces."},
		{"too long", strings.Repeat("a", 51), "x", "❌ The trigger must be at most 50 characters."},
		{"blank response", "ok", "  ", "❌ The response must not be empty."},
		{"long response", "ok", strings.Repeat("r", 2001), "❌ The response must be at most 2000 characters."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newEnv(t)
			env.Run(t, ct.Admin("command", ct.Sub("add", ct.Str("trigger", tt.trigger), ct.Str("response", tt.response))))
			assert.Equal(t, tt.want, env.Session.LastReply().Content)

			cmds, err := env.Storage.ListCommands(context.Background(), ct.ChannelID)
			require.NoError(t, err)
			assert.Empty(t, cmds)
		})
	}
}

func TestCommandAccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("member without editor role", func(t *testing.T) {
		t.Parallel()
		env := newEnv(t)
		env.Run(t, ct.Slash("command", "user-1", 0, []string{"r1"}, ct.Sub("add", ct.Str("trigger", "a"), ct.Str("response", "b"))))
		assert.Equal(t, "❌ You don't have permission to manage commands in this channel. Ask an admin to add your role with `/roles add`.",
			env.Session.LastReply().Content)
	})

	t.Run("member with editor role", func(t *testing.T) {
		t.Parallel()
		env := newEnv(t)
		_, err := env.Storage.AddEditorRole(ctx, ct.ChannelID, ct.GuildID, "r1")
		require.NoError(t, err)

		env.Run(t, ct.Slash("command", "user-1", 0, []string{"r0", "r1"}, ct.Sub("add", ct.Str("trigger", "a"), ct.Str("response", "b"))))
		assert.Equal(t, "✅ Command `!a` has been added to this channel.", env.Session.LastReply().Content)
	})

	t.Run("bot owner", func(t *testing.T) {
		t.Parallel()
		env := newEnv(t)
		env.Run(t, ct.Slash("command", ct.OwnerID, 0, nil, ct.Sub("add", ct.Str("trigger", "a"), ct.Str("response", "b"))))
		assert.Equal(t, "✅ Command `!a` has been added to this channel.", env.Session.LastReply().Content)
	})

	t.Run("direct message", func(t *testing.T) {
		t.Parallel()
		env := newEnv(t)
		env.Run(t, ct.DM("command", ct.OwnerID, ct.Sub("add", ct.Str("trigger", "a"), ct.Str("response", "b"))))
		assert.Equal(t, "❌ This command can only be used in a server channel.", env.Session.LastReply().Content)
	})
}

func TestListCommands(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("empty channel", func(t *testing.T) {
		t.Parallel()
		env := newEnv(t)
		env.Run(t, ct.Slash("commands", "user-1", 0, nil))
		assert.Equal(t, "📭 No commands registered in this channel. Use `/command add` to create one.", env.Session.LastReply().Content)
	})

	t.Run("lists with prefix in creation order", func(t *testing.T) {
		t.Parallel()
		env := newEnv(t)
		for _, tr := range []string{"zeta", "alpha"} {
			_, err := env.Storage.AddCommand(ctx, ct.ChannelID, tr, "resp-"+tr, "u1")
			require.NoError(t, err)
		}

		env.Run(t, ct.Slash("commands", "user-1", 0, nil))
		require.Len(t, env.Session.Replies, 1)
		got := env.Session.Replies[0].Content
		assert.True(t, strings.HasPrefix(got, "📋 **Commands in this channel** (2):\n\n• `!zeta` → resp-zeta"))
		assert.Less(t, strings.Index(got, "!zeta"), strings.Index(got, "!alpha"))
		assert.Contains(t, got, "added by <@u1>")
	})

	t.Run("long list is split into followups", func(t *testing.T) {
		t.Parallel()
		env := newEnv(t)
		for i := range 30 {
			_, err := env.Storage.AddCommand(ctx, ct.ChannelID, fmt.Sprintf("cmd%02d", i), strings.Repeat("x", 150), "u1")
			require.NoError(t, err)
		}

		env.Run(t, ct.Slash("commands", "user-1", 0, nil))
		require.Greater(t, len(env.Session.Replies), 1)
		assert.False(t, env.Session.Replies[0].Followup)
		for _, r := range env.Session.Replies[1:] {
			assert.True(t, r.Followup)
			assert.True(t, r.Ephemeral)
		}
		for _, r := range env.Session.Replies {
			assert.LessOrEqual(t, len([]rune(r.Content)), 2000)
		}
	})

	t.Run("dm delivery", func(t *testing.T) {
		t.Parallel()
		env := newEnv(t)
		_, err := env.Storage.AddCommand(ctx, ct.ChannelID, "a", "b", "u1")
		require.NoError(t, err)

		env.Run(t, ct.Slash("commands", "user-1", 0, nil, ct.Bool("dm", true)))
		assert.Equal(t, "✅ Command list sent to your DMs.", env.Session.LastReply().Content)
		require.Len(t, env.Session.DMs("user-1"), 1)
	})

	t.Run("dm refused", func(t *testing.T) {
		t.Parallel()
		env := newEnv(t)
		env.Session.DMErr = bottest.RESTError(403, discordgo.ErrCodeCannotSendMessagesToThisUser)
		_, err := env.Storage.AddCommand(ctx, ct.ChannelID, "a", "b", "u1")
		require.NoError(t, err)

		env.Run(t, ct.Slash("commands", "user-1", 0, nil, ct.Bool("dm", true)))
		assert.Equal(t, "❌ I couldn't send you a DM. Please check your DM privacy settings.", env.Session.LastReply().Content)
	})
}

func TestPreview(t *testing.T) {
	t.Parallel()
	env := newEnv(t)
	ctx := context.Background()
	_, err := env.Storage.AddCommand(ctx, ct.ChannelID, "hello", "Hi!", "u1")
	require.NoError(t, err)

	tests := []struct {
		message string
		want    string
	}{
		{"!HELLO world", "🔍 `!hello` would reply with:\n\nHi!"},
		{"hello", "🔍 Messages must start with `!` to trigger a command in this channel."},
		{"! hello", "🔍 There is no trigger word after `!`."},
		{"!bye", "🔍 `!bye` does not match any command in this channel."},
	}
	for _, tt := range tests {
		env.Run(t, ct.Slash("preview", "user-1", 0, nil, ct.Str("message", tt.message)))
		assert.Equal(t, tt.want, env.Session.LastReply().Content, tt.message)
	}
}

func TestHistory(t *testing.T) {
	t.Parallel()
	env := newEnv(t)
	ctx := context.Background()

	env.Run(t, ct.Admin("history"))
	assert.Equal(t, "📭 No command history for this channel.", env.Session.LastReply().Content)

	_, err := env.Storage.AddCommand(ctx, ct.ChannelID, "a", "one", "u1")
	require.NoError(t, err)
	_, err = env.Storage.EditCommand(ctx, ct.ChannelID, "a", "two", "u2")
	require.NoError(t, err)
	_, err = env.Storage.AddCommand(ctx, ct.ChannelID, "b", "bee", "u1")
	require.NoError(t, err)

	env.Run(t, ct.Admin("history"))
	got := env.Session.LastReply().Content
	assert.True(t, strings.HasPrefix(got, "🕘 **Command history** (3):"))
	assert.Contains(t, got, "one ⇒ two")

	env.Run(t, ct.Admin("history", ct.Str("trigger", "A"), ct.Int("limit", 1)))
	got = env.Session.LastReply().Content
	assert.True(t, strings.HasPrefix(got, "🕘 **History for `!a`** (1):"))
	assert.Contains(t, got, "**"+string(st.ActionUpdate)+"**")

	env.Run(t, ct.Admin("history", ct.Str("trigger", "zzz")))
	assert.Equal(t, "📭 No history for `!zzz` in this channel.", env.Session.LastReply().Content)

	env.Run(t, ct.Slash("history", "user-1", 0, nil))
	assert.Contains(t, env.Session.LastReply().Content, "You don't have permission")
}

func TestShorten(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "a b", shorten("a\n  b", 10))
	assert.Equal(t, "abcd…", shorten("abcdefgh", 5))
}
