package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	st "duque/internal/storagetypes"
)

func TestGuild_BlacklistThenJoin(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestStorage(t, DefaultLimits())
	ctx := context.Background()

	res, err := s.BlacklistGuild(ctx, "g1", "Name")
	require.NoError(t, err)
	assert.Equal(t, st.BlacklistResult{Success: true, Created: true}, res)

	join, err := s.RegisterGuildJoin(ctx, "g1", "Renamed")
	require.NoError(t, err)
	assert.Equal(t, st.JoinResult{Allowed: false, Reason: st.ReasonBlacklisted}, join)

	g, err := s.GetGuild(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", g.GuildName, "name refreshes even when rejected")

	approved, err := s.IsGuildApproved(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, approved)
}

func TestGuild_StateMachine(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestStorage(t, DefaultLimits())
	ctx := context.Background()

	approved, err := s.IsGuildApproved(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, approved, "absent guilds are not approved")

	join, err := s.RegisterGuildJoin(ctx, "g1", "One")
	require.NoError(t, err)
	assert.Equal(t, st.JoinResult{Allowed: true, Reason: st.ReasonAutoApproved}, join)

	join, err = s.RegisterGuildJoin(ctx, "g1", "One")
	require.NoError(t, err)
	assert.Equal(t, st.JoinResult{Allowed: true, Reason: st.ReasonAlreadyApproved}, join)

	res, err := s.ApproveGuild(ctx, "g1", "One")
	require.NoError(t, err)
	assert.Equal(t, st.Fail(st.ReasonAlreadyApproved), res)

	bl, err := s.BlacklistGuild(ctx, "g1", "")
	require.NoError(t, err)
	assert.Equal(t, st.BlacklistResult{Success: true}, bl)
	g, err := s.GetGuild(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Guild g1", g.GuildName)

	bl, err = s.BlacklistGuild(ctx, "g1", "One")
	require.NoError(t, err)
	assert.Equal(t, st.BlacklistResult{Success: true, AlreadyBlacklisted: true}, bl)

	res, err = s.ApproveGuild(ctx, "g1", "One again")
	require.NoError(t, err)
	assert.Equal(t, st.OKWith(st.ReasonUnblacklisted), res)
	approved, err = s.IsGuildApproved(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, approved)

	res, err = s.UnblacklistGuild(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, st.Fail(st.ReasonNotBlacklisted), res)

	_, err = s.BlacklistGuild(ctx, "g1", "One")
	require.NoError(t, err)
	res, err = s.UnblacklistGuild(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, st.OK(), res)

	res, err = s.RevokeGuild(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, st.OK(), res)
	g, err = s.GetGuild(ctx, "g1")
	require.NoError(t, err)
	assert.Nil(t, g)

	res, err = s.RevokeGuild(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, st.Fail(st.ReasonNotFound), res)
	res, err = s.UnblacklistGuild(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, st.Fail(st.ReasonNotFound), res)
}

func TestGuild_ApproveCreatesAndList(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestStorage(t, DefaultLimits())
	ctx := context.Background()

	res, err := s.ApproveGuild(ctx, "g2", "Two")
	require.NoError(t, err)
	assert.Equal(t, st.OK(), res)
	_, err = s.BlacklistGuild(ctx, "g3", "Three")
	require.NoError(t, err)

	guilds, err := s.ListGuilds(ctx)
	require.NoError(t, err)
	require.Len(t, guilds, 2)
	assert.Equal(t, "g2", guilds[0].GuildID)
	assert.False(t, guilds[0].Blacklisted())
	assert.True(t, guilds[1].Blacklisted())
	assert.NotEmpty(t, guilds[1].ID)
}
