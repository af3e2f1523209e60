package storage

import (
	"context"
	"errors"
	"fmt"

	"duque/internal/docstore"
	st "duque/internal/storagetypes"
)

func channelQuery(channelID string) docstore.Query {
	return docstore.Query{
		Collection: collChannelConfigs,
		Where:      map[string]any{"channelId": channelID},
	}
}

// GetChannelConfig returns the channel's config or nil when none exists.
func (s *Storage) GetChannelConfig(ctx context.Context, channelID string) (*st.ChannelConfig, error) {
	return findOne[st.ChannelConfig](ctx, s.ds, channelQuery(channelID))
}

// TriggerPrefix returns the configured prefix or the default one.
func (s *Storage) TriggerPrefix(ctx context.Context, channelID string) (string, error) {
	cfg, err := s.GetChannelConfig(ctx, channelID)
	if err != nil {
		return "", err
	}
	return s.prefixOf(cfg), nil
}

func (s *Storage) prefixOf(cfg *st.ChannelConfig) string {
	if cfg == nil || cfg.TriggerPrefix == "" {
		return s.limits.TriggerPrefix
	}
	return cfg.TriggerPrefix
}

// SetTriggerPrefix stores prefix as given, creating the config if needed.
func (s *Storage) SetTriggerPrefix(ctx context.Context, channelID, guildID, prefix string) error {
	return s.ds.RunInTx(ctx, func(ctx context.Context) error {
		cfg, err := s.GetChannelConfig(ctx, channelID)
		if err != nil {
			return err
		}
		now := s.nowMs()

		if cfg == nil {
			id, err := s.ds.Insert(ctx, collChannelConfigs, st.ChannelConfig{
				ChannelID:     channelID,
				GuildID:       guildID,
				EditorRoleIDs: []string{},
				TriggerPrefix: prefix,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
			if err != nil {
				return fmt.Errorf("insert channel config: %w", err)
			}
			s.logWrite(ctx, collChannelConfigs, "insert", "id", id, "channel_id", channelID, "prefix", prefix)
			return nil
		}

		if err := s.ds.Patch(ctx, collChannelConfigs, cfg.ID, map[string]any{
			"triggerPrefix": prefix,
			"updatedAt":     now,
		}); err != nil {
			return fmt.Errorf("patch channel config: %w", err)
		}
		s.logWrite(ctx, collChannelConfigs, "patch", "id", cfg.ID, "channel_id", channelID, "prefix", prefix)
		return nil
	})
}

// AddEditorRole grants roleID command management in the channel.
func (s *Storage) AddEditorRole(ctx context.Context, channelID, guildID, roleID string) (st.Result, error) {
	var res st.Result
	err := s.ds.RunInTx(ctx, func(ctx context.Context) error {
		cfg, err := s.GetChannelConfig(ctx, channelID)
		if err != nil {
			return err
		}
		now := s.nowMs()

		if cfg == nil {
			id, err := s.ds.Insert(ctx, collChannelConfigs, st.ChannelConfig{
				ChannelID:     channelID,
				GuildID:       guildID,
				EditorRoleIDs: []string{roleID},
				TriggerPrefix: s.limits.TriggerPrefix,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
			if err != nil {
				return fmt.Errorf("insert channel config: %w", err)
			}
			s.logWrite(ctx, collChannelConfigs, "insert", "id", id, "channel_id", channelID, "role_id", roleID)
			res = st.OK()
			return nil
		}

		if cfg.HasEditorRole(roleID) {
			res = st.Fail(st.ReasonRoleAlreadyAdded)
			return nil
		}

		added, err := s.ds.AddToSet(ctx, collChannelConfigs, cfg.ID, "editorRoleIds", roleID,
			map[string]any{"updatedAt": now})
		if err != nil {
			return fmt.Errorf("add editor role: %w", err)
		}
		if !added {
			res = st.Fail(st.ReasonRoleAlreadyAdded)
			return nil
		}
		s.logWrite(ctx, collChannelConfigs, "patch", "id", cfg.ID, "channel_id", channelID, "role_id", roleID)
		res = st.OK()
		return nil
	})
	return res, err
}

// RemoveEditorRole revokes roleID from the channel's editor list.
func (s *Storage) RemoveEditorRole(ctx context.Context, channelID, roleID string) (st.Result, error) {
	var res st.Result
	err := s.ds.RunInTx(ctx, func(ctx context.Context) error {
		cfg, err := s.GetChannelConfig(ctx, channelID)
		if err != nil {
			return err
		}
		if cfg == nil {
			res = st.Fail(st.ReasonNoConfig)
			return nil
		}
		if !cfg.HasEditorRole(roleID) {
			res = st.Fail(st.ReasonRoleNotFound)
			return nil
		}

		removed, err := s.ds.Pull(ctx, collChannelConfigs, cfg.ID, "editorRoleIds", roleID,
			map[string]any{"updatedAt": s.nowMs()})
		if err != nil {
			return fmt.Errorf("remove editor role: %w", err)
		}
		if !removed {
			res = st.Fail(st.ReasonRoleNotFound)
			return nil
		}
		s.logWrite(ctx, collChannelConfigs, "patch", "id", cfg.ID, "channel_id", channelID, "removed_role_id", roleID)
		res = st.OK()
		return nil
	})
	return res, err
}

// DeleteChannelConfig removes the channel's config. Deleting a missing config succeeds.
func (s *Storage) DeleteChannelConfig(ctx context.Context, channelID string) (st.Result, error) {
	err := s.ds.RunInTx(ctx, func(ctx context.Context) error {
		cfg, err := s.GetChannelConfig(ctx, channelID)
		if err != nil || cfg == nil {
			return err
		}
		if err := s.ds.Delete(ctx, collChannelConfigs, cfg.ID); err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("delete channel config: %w", err)
		}
		s.logWrite(ctx, collChannelConfigs, "delete", "id", cfg.ID, "channel_id", channelID)
		return nil
	})
	if err != nil {
		return st.Result{}, err
	}
	return st.OK(), nil
}
