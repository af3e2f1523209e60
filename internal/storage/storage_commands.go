package storage

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"duque/internal/docstore"
	st "duque/internal/storagetypes"
)

func commandQuery(channelID, trigger string) docstore.Query {
	return docstore.Query{
		Collection: collCustomCommands,
		Where:      map[string]any{"channelId": channelID, "trigger": trigger},
	}
}

// GetCommand returns the command for (channelID, trigger) or nil.
func (s *Storage) GetCommand(ctx context.Context, channelID, trigger string) (*st.CustomCommand, error) {
	return findOne[st.CustomCommand](ctx, s.ds, commandQuery(channelID, NormalizeTrigger(trigger)))
}

// ListCommands returns the channel's commands in creation order.
func (s *Storage) ListCommands(ctx context.Context, channelID string) ([]st.CustomCommand, error) {
	return findAll[st.CustomCommand](ctx, s.ds, docstore.Query{
		Collection: collCustomCommands,
		Where:      map[string]any{"channelId": channelID},
	})
}

// ResolveTrigger decides whether text invokes a custom command in the channel.
// It returns nil when the text does not start with the channel's prefix, the
// token after the prefix is empty, or no command matches the token.
func (s *Storage) ResolveTrigger(ctx context.Context, channelID, text string) (*st.Match, error) {
	prefix, err := s.TriggerPrefix(ctx, channelID)
	if err != nil {
		return nil, err
	}
	trigger, ok := ExtractTrigger(prefix, text)
	if !ok {
		return nil, nil
	}

	cmd, err := s.GetCommand(ctx, channelID, trigger)
	if err != nil || cmd == nil {
		return nil, err
	}
	return &st.Match{Trigger: trigger, Prefix: prefix, Response: cmd.CurrentResponse}, nil
}

// ExtractTrigger returns the lowercased token between prefix and the first
// whitespace of text.
func ExtractTrigger(prefix, text string) (string, bool) {
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return "", false
	}
	rest := text[len(prefix):]
	if i := strings.IndexFunc(rest, unicode.IsSpace); i >= 0 {
		rest = rest[:i]
	}
	trigger := NormalizeTrigger(rest)
	return trigger, trigger != ""
}

// AddCommand creates a command and records a CREATE entry.
func (s *Storage) AddCommand(ctx context.Context, channelID, trigger, response, actorID string) (st.Result, error) {
	trigger = NormalizeTrigger(trigger)
	var res st.Result

	err := s.withHistory(ctx, func(ctx context.Context, rec *historyRecorder) error {
		existing, err := s.GetCommand(ctx, channelID, trigger)
		if err != nil {
			return err
		}
		if existing != nil {
			res = st.Fail(st.ReasonAlreadyExists)
			return nil
		}

		now := s.nowMs()
		id, err := s.ds.Insert(ctx, collCustomCommands, st.CustomCommand{
			ChannelID:       channelID,
			Trigger:         trigger,
			CurrentResponse: response,
			CreatedAt:       now,
			CreatedByUserID: actorID,
			UpdatedAt:       now,
			UpdatedByUserID: actorID,
		})
		if err != nil {
			return fmt.Errorf("insert command: %w", err)
		}
		s.logWrite(ctx, collCustomCommands, "insert",
			"id", id, "channel_id", channelID, "trigger", trigger,
			"actor_id", actorID, "response_len", len(response))

		if _, err := rec.insertCapped(ctx, st.CommandHistoryEntry{
			ChannelID:   channelID,
			Trigger:     trigger,
			Action:      st.ActionCreate,
			NewResponse: &response,
			ActorUserID: actorID,
			Timestamp:   now,
		}); err != nil {
			return err
		}
		res = st.OK()
		return nil
	})
	return res, err
}

// EditCommand replaces a command's response and records an UPDATE entry.
func (s *Storage) EditCommand(ctx context.Context, channelID, trigger, newResponse, actorID string) (st.Result, error) {
	trigger = NormalizeTrigger(trigger)
	var res st.Result

	err := s.withHistory(ctx, func(ctx context.Context, rec *historyRecorder) error {
		existing, err := s.GetCommand(ctx, channelID, trigger)
		if err != nil {
			return err
		}
		if existing == nil {
			res = st.Fail(st.ReasonNotFound)
			return nil
		}

		now := s.nowMs()
		previous := existing.CurrentResponse
		if err := s.ds.Patch(ctx, collCustomCommands, existing.ID, map[string]any{
			"currentResponse": newResponse,
			"updatedAt":       now,
			"updatedByUserId": actorID,
		}); err != nil {
			return fmt.Errorf("patch command: %w", err)
		}
		s.logWrite(ctx, collCustomCommands, "patch",
			"id", existing.ID, "channel_id", channelID, "trigger", trigger, "actor_id", actorID,
			"previous_len", len(previous), "response_len", len(newResponse))

		if _, err := rec.insertCapped(ctx, st.CommandHistoryEntry{
			ChannelID:        channelID,
			Trigger:          trigger,
			Action:           st.ActionUpdate,
			PreviousResponse: &previous,
			NewResponse:      &newResponse,
			ActorUserID:      actorID,
			Timestamp:        now,
		}); err != nil {
			return err
		}
		res = st.OK()
		return nil
	})
	return res, err
}

// RemoveCommand deletes a command after recording a DELETE entry.
func (s *Storage) RemoveCommand(ctx context.Context, channelID, trigger, actorID string) (st.Result, error) {
	trigger = NormalizeTrigger(trigger)
	var res st.Result

	err := s.withHistory(ctx, func(ctx context.Context, rec *historyRecorder) error {
		existing, err := s.GetCommand(ctx, channelID, trigger)
		if err != nil {
			return err
		}
		if existing == nil {
			res = st.Fail(st.ReasonNotFound)
			return nil
		}
		if err := s.deleteCommand(ctx, rec, *existing, actorID); err != nil {
			return err
		}
		res = st.OK()
		return nil
	})
	return res, err
}

// RemoveAllByChannel deletes up to BatchSize of the channel's commands, one
// DELETE entry each. HasMore reports whether commands remain; callers loop
// until it is false.
func (s *Storage) RemoveAllByChannel(ctx context.Context, channelID, actorID string) (st.ClearResult, error) {
	var res st.ClearResult
	batch := s.limits.BatchSize

	err := s.withHistory(ctx, func(ctx context.Context, rec *historyRecorder) error {
		commands, err := findAll[st.CustomCommand](ctx, s.ds, docstore.Query{
			Collection: collCustomCommands,
			Where:      map[string]any{"channelId": channelID},
			Limit:      batch,
		})
		if err != nil {
			return err
		}

		for _, c := range commands {
			if err := s.deleteCommand(ctx, rec, c, actorID); err != nil {
				return err
			}
		}
		res.Deleted = len(commands)
		return nil
	})
	if err != nil {
		return st.ClearResult{}, err
	}

	if res.Deleted == batch {
		_, more, err := s.ds.First(ctx, docstore.Query{
			Collection: collCustomCommands,
			Where:      map[string]any{"channelId": channelID},
		})
		if err != nil {
			return st.ClearResult{}, fmt.Errorf("probe remaining commands: %w", err)
		}
		res.HasMore = more
	}
	return res, nil
}

func (s *Storage) deleteCommand(ctx context.Context, rec *historyRecorder, c st.CustomCommand, actorID string) error {
	previous := c.CurrentResponse
	if _, err := rec.insertCapped(ctx, st.CommandHistoryEntry{
		ChannelID:        c.ChannelID,
		Trigger:          c.Trigger,
		Action:           st.ActionDelete,
		PreviousResponse: &previous,
		ActorUserID:      actorID,
		Timestamp:        s.nowMs(),
	}); err != nil {
		return err
	}

	if err := s.ds.Delete(ctx, collCustomCommands, c.ID); err != nil {
		return fmt.Errorf("delete command: %w", err)
	}
	s.logWrite(ctx, collCustomCommands, "delete",
		"id", c.ID, "channel_id", c.ChannelID, "trigger", c.Trigger, "actor_id", actorID)
	return nil
}
