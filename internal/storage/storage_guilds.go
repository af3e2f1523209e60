package storage

import (
	"context"
	"errors"
	"fmt"

	"duque/internal/docstore"
	st "duque/internal/storagetypes"
)

func guildQuery(guildID string) docstore.Query {
	return docstore.Query{
		Collection: collApprovedGuilds,
		Where:      map[string]any{"guildId": guildID},
	}
}

func (s *Storage) GetGuild(ctx context.Context, guildID string) (*st.ApprovedGuild, error) {
	return findOne[st.ApprovedGuild](ctx, s.ds, guildQuery(guildID))
}

// IsGuildApproved is true when the guild has a record that is not blacklisted.
func (s *Storage) IsGuildApproved(ctx context.Context, guildID string) (bool, error) {
	g, err := s.GetGuild(ctx, guildID)
	if err != nil {
		return false, err
	}
	return g != nil && !g.Blacklisted(), nil
}

// ListGuilds returns every known guild in registration order.
func (s *Storage) ListGuilds(ctx context.Context) ([]st.ApprovedGuild, error) {
	return findAll[st.ApprovedGuild](ctx, s.ds, docstore.Query{Collection: collApprovedGuilds})
}

// RegisterGuildJoin is called when the bot joins or sees a guild. Unknown
// guilds are approved automatically; a stored name is refreshed even when the
// guild turns out to be blacklisted.
func (s *Storage) RegisterGuildJoin(ctx context.Context, guildID, guildName string) (st.JoinResult, error) {
	var res st.JoinResult
	err := s.ds.RunInTx(ctx, func(ctx context.Context) error {
		g, err := s.GetGuild(ctx, guildID)
		if err != nil {
			return err
		}

		if g == nil {
			if err := s.insertGuild(ctx, guildID, guildName, nil); err != nil {
				return err
			}
			res = st.JoinResult{Allowed: true, Reason: st.ReasonAutoApproved}
			return nil
		}

		if g.GuildName != guildName {
			if err := s.patchGuild(ctx, g, map[string]any{"guildName": guildName}); err != nil {
				return err
			}
		}

		if g.Blacklisted() {
			res = st.JoinResult{Allowed: false, Reason: st.ReasonBlacklisted}
			return nil
		}
		res = st.JoinResult{Allowed: true, Reason: st.ReasonAlreadyApproved}
		return nil
	})
	return res, err
}

// ApproveGuild creates an approved record or lifts a blacklist.
func (s *Storage) ApproveGuild(ctx context.Context, guildID, guildName string) (st.Result, error) {
	var res st.Result
	err := s.ds.RunInTx(ctx, func(ctx context.Context) error {
		g, err := s.GetGuild(ctx, guildID)
		if err != nil {
			return err
		}

		if g == nil {
			if err := s.insertGuild(ctx, guildID, guildName, nil); err != nil {
				return err
			}
			res = st.OK()
			return nil
		}

		if !g.Blacklisted() {
			res = st.Fail(st.ReasonAlreadyApproved)
			return nil
		}
		if err := s.patchGuild(ctx, g, map[string]any{"guildName": guildName, "blacklistedAt": nil}); err != nil {
			return err
		}
		res = st.OKWith(st.ReasonUnblacklisted)
		return nil
	})
	return res, err
}

// BlacklistGuild marks a guild as rejected, creating the record when absent.
// An empty guildName defaults to "Guild <id>".
func (s *Storage) BlacklistGuild(ctx context.Context, guildID, guildName string) (st.BlacklistResult, error) {
	if guildName == "" {
		guildName = "Guild " + guildID
	}

	var res st.BlacklistResult
	err := s.ds.RunInTx(ctx, func(ctx context.Context) error {
		g, err := s.GetGuild(ctx, guildID)
		if err != nil {
			return err
		}
		now := s.nowMs()

		if g == nil {
			if err := s.insertGuild(ctx, guildID, guildName, &now); err != nil {
				return err
			}
			res = st.BlacklistResult{Success: true, Created: true}
			return nil
		}

		if g.Blacklisted() {
			res = st.BlacklistResult{Success: true, AlreadyBlacklisted: true}
			return nil
		}
		if err := s.patchGuild(ctx, g, map[string]any{"guildName": guildName, "blacklistedAt": now}); err != nil {
			return err
		}
		res = st.BlacklistResult{Success: true}
		return nil
	})
	return res, err
}

// UnblacklistGuild returns a blacklisted guild to the approved state.
func (s *Storage) UnblacklistGuild(ctx context.Context, guildID string) (st.Result, error) {
	var res st.Result
	err := s.ds.RunInTx(ctx, func(ctx context.Context) error {
		g, err := s.GetGuild(ctx, guildID)
		if err != nil {
			return err
		}
		if g == nil {
			res = st.Fail(st.ReasonNotFound)
			return nil
		}
		if !g.Blacklisted() {
			res = st.Fail(st.ReasonNotBlacklisted)
			return nil
		}
		if err := s.patchGuild(ctx, g, map[string]any{"blacklistedAt": nil}); err != nil {
			return err
		}
		res = st.OK()
		return nil
	})
	return res, err
}

// RevokeGuild forgets the guild entirely.
func (s *Storage) RevokeGuild(ctx context.Context, guildID string) (st.Result, error) {
	var res st.Result
	err := s.ds.RunInTx(ctx, func(ctx context.Context) error {
		g, err := s.GetGuild(ctx, guildID)
		if err != nil {
			return err
		}
		if g == nil {
			res = st.Fail(st.ReasonNotFound)
			return nil
		}
		if err := s.ds.Delete(ctx, collApprovedGuilds, g.ID); err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				res = st.Fail(st.ReasonNotFound)
				return nil
			}
			return fmt.Errorf("delete guild: %w", err)
		}
		s.logWrite(ctx, collApprovedGuilds, "delete", "id", g.ID, "guild_id", guildID)
		res = st.OK()
		return nil
	})
	return res, err
}

func (s *Storage) insertGuild(ctx context.Context, guildID, guildName string, blacklistedAt *int64) error {
	id, err := s.ds.Insert(ctx, collApprovedGuilds, st.ApprovedGuild{
		GuildID:       guildID,
		GuildName:     guildName,
		ApprovedAt:    s.nowMs(),
		BlacklistedAt: blacklistedAt,
	})
	if err != nil {
		return fmt.Errorf("insert guild: %w", err)
	}
	s.logWrite(ctx, collApprovedGuilds, "insert", "id", id, "guild_id", guildID, "blacklisted", blacklistedAt != nil)
	return nil
}

func (s *Storage) patchGuild(ctx context.Context, g *st.ApprovedGuild, fields map[string]any) error {
	if err := s.ds.Patch(ctx, collApprovedGuilds, g.ID, fields); err != nil {
		return fmt.Errorf("patch guild: %w", err)
	}
	s.logWrite(ctx, collApprovedGuilds, "patch", "id", g.ID, "guild_id", g.GuildID, "fields", len(fields))
	return nil
}
