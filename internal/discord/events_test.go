package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duque/internal/admin"
	"duque/internal/bot/bottest"
	"duque/internal/config"
	"duque/internal/docstore"
	"duque/internal/storage"
)

const ownerID = "owner-1"

type fakeLeaver struct {
	mu   sync.Mutex
	left []string
	err  error
}

func (f *fakeLeaver) GuildLeave(guildID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.left = append(f.left, guildID)
	return nil
}

func newTestBot(t *testing.T) *Bot {
	t.Helper()
	cfg := &config.Config{BotOwnerID: ownerID, DiscordClientID: "app-1"}
	store := storage.New(docstore.NewMemory(), storage.DefaultLimits(), quietLog())
	return New(cfg, store, nil, quietLog())
}

func message(guildID, authorID, content string) *discordgo.Message {
	return &discordgo.Message{
		ChannelID: "chan-1",
		GuildID:   guildID,
		Content:   content,
		Author:    &discordgo.User{ID: authorID},
	}
}

func TestHandleMessage_Trigger(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)
	ctx := context.Background()
	_, err := b.storage.AddCommand(ctx, "chan-1", "hello", "Hi there!", "u1")
	require.NoError(t, err)

	s := &bottest.Session{}
	b.handleMessage(ctx, s, nil, message("guild-1", "u2", "!Hello everyone"))
	b.handleMessage(ctx, s, nil, message("guild-1", "u2", "hello"))
	b.handleMessage(ctx, s, nil, message("guild-1", "u2", "!unknown"))
	b.handleMessage(ctx, s, nil, message("guild-1", "u2", "! hello"))

	assert.Equal(t, []string{"Hi there!"}, s.Sent["chan-1"])
}

func TestHandleMessage_IgnoresBotsAndStrangers(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)
	ctx := context.Background()
	_, err := b.storage.AddCommand(ctx, "chan-1", "hello", "Hi there!", "u1")
	require.NoError(t, err)

	s := &bottest.Session{}
	m := message("guild-1", "bot-2", "!hello")
	m.Author.Bot = true
	b.handleMessage(ctx, s, nil, m)
	b.handleMessage(ctx, s, nil, message("", "stranger", "!owner help"))
	b.handleMessage(ctx, s, nil, &discordgo.Message{ChannelID: "chan-1", GuildID: "guild-1", Content: "!hello"})

	assert.Empty(t, s.Sent)
}

func TestHandleMessage_OwnerConsole(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)
	ctx := context.Background()
	s := &bottest.Session{}

	b.handleMessage(ctx, s, nil, message("", ownerID, "!owner blacklist-server g1"))
	b.handleMessage(ctx, s, nil, message("", ownerID, "!owner"))
	b.handleMessage(ctx, s, nil, message("", ownerID, "!ownership"))
	b.handleMessage(ctx, s, nil, message("", ownerID, "hello"))
	b.handleMessage(ctx, s, nil, message("", ownerID, "!owner servers"))

	assert.Equal(t, []string{
		"✅ Server `g1` blacklisted for future joins. If already joined, the bot stays until force-left.",
		"❓ Unknown owner command. Use `!owner help` for a list of commands.",
		"❌ `servers` needs a running bot.",
	}, s.Sent["chan-1"])

	approved, err := b.storage.IsGuildApproved(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, approved)
}

type bigDirectory struct{ guilds []admin.Guild }

func (d bigDirectory) Guilds() []admin.Guild { return d.guilds }
func (bigDirectory) LeaveGuild(string) error { return nil }
func (bigDirectory) InviteURL() string       { return InviteURL("app-1") }

func TestHandleMessage_OwnerConsoleSplitsOutput(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)
	s := &bottest.Session{}

	dir := bigDirectory{}
	for i := range 60 {
		dir.guilds = append(dir.guilds, admin.Guild{
			ID:          fmt.Sprintf("%018d", i),
			Name:        strings.Repeat("server name ", 4),
			MemberCount: i,
		})
	}
	b.handleMessage(context.Background(), s, dir, message("", ownerID, "!owner servers"))

	sent := s.Sent["chan-1"]
	require.Greater(t, len(sent), 1)
	for _, chunk := range sent {
		assert.LessOrEqual(t, len([]rune(chunk)), 2000)
		assert.False(t, strings.HasSuffix(chunk, "\n"))
	}
	assert.True(t, strings.HasPrefix(sent[0], "📡 **Servers** (60):"))
}

func TestAdmitGuild(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)
	ctx := context.Background()
	leaver := &fakeLeaver{}

	assert.True(t, admitGuild(ctx, b.storage, leaver, b.log, "g1", "Home"))
	assert.True(t, admitGuild(ctx, b.storage, leaver, b.log, "g1", "Home renamed"))
	g, err := b.storage.GetGuild(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Home renamed", g.GuildName)

	_, err = b.storage.BlacklistGuild(ctx, "g2", "Spam")
	require.NoError(t, err)
	assert.False(t, admitGuild(ctx, b.storage, leaver, b.log, "g2", "Spam"))
	assert.Equal(t, []string{"g2"}, leaver.left)

	leaver.err = errors.New("gateway down")
	assert.False(t, admitGuild(ctx, b.storage, leaver, b.log, "g2", "Spam"))
}

func TestSweepGuilds(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)
	ctx := context.Background()
	leaver := &fakeLeaver{}

	_, err := b.storage.BlacklistGuild(ctx, "g2", "Spam")
	require.NoError(t, err)
	_, err = b.storage.ApproveGuild(ctx, "g3", "Stored name")
	require.NoError(t, err)

	err = b.sweepGuilds(ctx, leaver, []*discordgo.Guild{
		{ID: "g1", Name: "Home"},
		{ID: "g2"},
		{ID: "g3"},
		{ID: "g4"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"g2"}, leaver.left)

	guilds, err := b.storage.ListGuilds(ctx)
	require.NoError(t, err)
	names := make(map[string]string, len(guilds))
	for _, g := range guilds {
		names[g.GuildID] = g.GuildName
	}
	assert.Equal(t, map[string]string{
		"g1": "Home",
		"g2": "Spam",
		"g3": "Stored name",
		"g4": "Guild g4",
	}, names)
}

func TestConsoleLine(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"!owner help", "help", true},
		{"!owner   leave-server  42 ", "leave-server  42", true},
		{"!owner", "", true},
		{"!ownerhelp", "", false},
		{"owner help", "", false},
		{" !owner help", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := consoleLine(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInviteURL(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		"https://discord.com/oauth2/authorize?client_id=123&scope=bot+applications.commands&permissions=2147552256",
		InviteURL("123"))
}

func TestIntents(t *testing.T) {
	t.Parallel()
	base := intents(false)
	assert.Zero(t, base&discordgo.IntentMessageContent)
	assert.NotZero(t, base&discordgo.IntentsDirectMessages)
	assert.NotZero(t, intents(true)&discordgo.IntentMessageContent)
}

type fakeGuildFetcher struct {
	guilds map[string]*discordgo.Guild
	calls  int
}

func (f *fakeGuildFetcher) Guild(guildID string, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	f.calls++
	g, ok := f.guilds[guildID]
	if !ok {
		return nil, bottest.RESTError(404, 10004)
	}
	return g, nil
}

func TestGuildOwnerID(t *testing.T) {
	t.Parallel()
	b := newTestBot(t)
	ctx := context.Background()

	state := discordgo.NewState()
	require.NoError(t, state.GuildAdd(&discordgo.Guild{ID: "cached", OwnerID: "owner-cached"}))
	api := &fakeGuildFetcher{guilds: map[string]*discordgo.Guild{
		"uncached": {ID: "uncached", OwnerID: "owner-rest"},
	}}

	assert.Equal(t, "owner-cached", b.guildOwnerID(ctx, state, api, "cached"))
	assert.Zero(t, api.calls)

	assert.Equal(t, "owner-rest", b.guildOwnerID(ctx, state, api, "uncached"))
	assert.Equal(t, "owner-rest", b.guildOwnerID(ctx, nil, api, "uncached"))
	assert.Equal(t, 2, api.calls)

	assert.Empty(t, b.guildOwnerID(ctx, state, api, "gone"))
	assert.Empty(t, b.guildOwnerID(ctx, state, api, ""))
	assert.Equal(t, 3, api.calls)
}
