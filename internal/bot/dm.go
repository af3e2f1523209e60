package bot

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"duque/pkg/retrylimit"
)

type DMOutcome int

const (
	DMDelivered DMOutcome = iota
	DMRefused
	DMFailed
)

func (o DMOutcome) String() string {
	switch o {
	case DMDelivered:
		return "delivered"
	case DMRefused:
		return "refused"
	default:
		return "failed"
	}
}

// DMResult reports how a direct message went. Messages counts the chunks
// that reached the user.
type DMResult struct {
	Outcome  DMOutcome
	Messages int
	Err      error
}

func (r DMResult) Delivered() bool { return r.Outcome == DMDelivered }

// DMSender delivers multi-part direct messages.
type DMSender struct {
	s        Session
	lim      *retrylimit.AdaptiveLimiter
	log      *slog.Logger
	attempts int
}

func NewDMSender(s Session, log *slog.Logger) *DMSender {
	if log == nil {
		log = slog.Default()
	}
	return &DMSender{
		s:        s,
		lim:      NewRESTLimiter(),
		log:      log.With("component", "dm"),
		attempts: 3,
	}
}

// Send opens a DM channel with userID and posts chunks in order, stopping at
// the first failure.
func (d *DMSender) Send(ctx context.Context, userID string, chunks []string) DMResult {
	var ch *discordgo.Channel
	err := Retry(ctx, d.lim, d.attempts, func() error {
		c, err := d.s.UserChannelCreate(userID)
		if err != nil {
			return err
		}
		ch = c
		return nil
	})
	if err != nil {
		return d.failed(userID, 0, err)
	}

	for i, chunk := range chunks {
		err := Retry(ctx, d.lim, d.attempts, func() error {
			_, err := d.s.ChannelMessageSend(ch.ID, chunk)
			return err
		})
		if err != nil {
			return d.failed(userID, i, err)
		}
	}

	d.log.Debug("DM delivered", "user_id", userID, "messages", len(chunks))
	return DMResult{Outcome: DMDelivered, Messages: len(chunks)}
}

func (d *DMSender) failed(userID string, sent int, err error) DMResult {
	if IsDMRefused(err) {
		d.log.Info("DM refused", "user_id", userID, "sent", sent)
		return DMResult{Outcome: DMRefused, Messages: sent, Err: err}
	}
	d.log.Warn("DM failed", "user_id", userID, "sent", sent, "error", err)
	return DMResult{Outcome: DMFailed, Messages: sent, Err: err}
}

// IsDMRefused reports whether Discord rejected a DM because of the user's
// privacy settings or a missing shared guild.
func IsDMRefused(err error) bool {
	var re *discordgo.RESTError
	if !errors.As(err, &re) {
		return false
	}
	if re.Message != nil && re.Message.Code == discordgo.ErrCodeCannotSendMessagesToThisUser {
		return true
	}
	return re.Response != nil && re.Response.StatusCode == http.StatusForbidden
}
