// Package storagetypes holds the persisted entities and the result values
// returned by storage operations. Timestamps are Unix milliseconds.
package storagetypes

// ChannelConfig is the per-channel trigger prefix and editor role list.
type ChannelConfig struct {
	ID            string   `json:"-"`
	ChannelID     string   `json:"channelId"`
	GuildID       string   `json:"guildId"`
	EditorRoleIDs []string `json:"editorRoleIds"`
	TriggerPrefix string   `json:"triggerPrefix"`
	CreatedAt     int64    `json:"createdAt"`
	UpdatedAt     int64    `json:"updatedAt"`
}

// HasEditorRole reports whether roleID is in the editor list.
func (c *ChannelConfig) HasEditorRole(roleID string) bool {
	if c == nil {
		return false
	}
	for _, id := range c.EditorRoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// CustomCommand maps a trigger to a response within one channel.
type CustomCommand struct {
	ID              string `json:"-"`
	ChannelID       string `json:"channelId"`
	Trigger         string `json:"trigger"`
	CurrentResponse string `json:"currentResponse"`
	CreatedAt       int64  `json:"createdAt"`
	CreatedByUserID string `json:"createdByUserId"`
	UpdatedAt       int64  `json:"updatedAt"`
	UpdatedByUserID string `json:"updatedByUserId"`
}

type HistoryAction string

const (
	ActionCreate HistoryAction = "CREATE"
	ActionUpdate HistoryAction = "UPDATE"
	ActionDelete HistoryAction = "DELETE"
)

// CommandHistoryEntry is one audit record of a command mutation.
type CommandHistoryEntry struct {
	ID               string        `json:"-"`
	ChannelID        string        `json:"channelId"`
	Trigger          string        `json:"trigger"`
	Action           HistoryAction `json:"action"`
	PreviousResponse *string       `json:"previousResponse,omitempty"`
	NewResponse      *string       `json:"newResponse,omitempty"`
	ActorUserID      string        `json:"actorUserId"`
	Timestamp        int64         `json:"timestamp"`
}

// AppMeta is a keyed bookkeeping record. The history counter is the only one.
type AppMeta struct {
	ID                  string `json:"-"`
	Key                 string `json:"key"`
	CommandHistoryCount int    `json:"commandHistoryCount"`
	UpdatedAt           int64  `json:"updatedAt"`
}

// ApprovedGuild is present for every guild the bot knows about.
// A nil BlacklistedAt means approved.
type ApprovedGuild struct {
	ID            string `json:"-"`
	GuildID       string `json:"guildId"`
	GuildName     string `json:"guildName"`
	ApprovedAt    int64  `json:"approvedAt"`
	BlacklistedAt *int64 `json:"blacklistedAt"`
}

func (g *ApprovedGuild) Blacklisted() bool {
	return g != nil && g.BlacklistedAt != nil
}

// Reason codes for expected business outcomes.
const (
	ReasonAlreadyExists    = "already_exists"
	ReasonNotFound         = "not_found"
	ReasonRoleAlreadyAdded = "role_already_added"
	ReasonRoleNotFound     = "role_not_found"
	ReasonNoConfig         = "no_config"
	ReasonAutoApproved     = "auto_approved"
	ReasonAlreadyApproved  = "already_approved"
	ReasonBlacklisted      = "blacklisted"
	ReasonUnblacklisted    = "unblacklisted"
	ReasonNotBlacklisted   = "not_blacklisted"
)

// Result is the outcome of a mutation. Reason is empty on plain success.
type Result struct {
	Success bool
	Reason  string
}

func OK() Result { return Result{Success: true} }
func OKWith(reason string) Result { return Result{Success: true, Reason: reason} }
func Fail(reason string) Result { return Result{Reason: reason} }

// JoinResult tells the caller whether to stay in a guild it just joined.
type JoinResult struct {
	Allowed bool
	Reason  string
}

type BlacklistResult struct {
	Success            bool
	Created            bool
	AlreadyBlacklisted bool
}

// ClearResult reports one batch of a channel clear.
type ClearResult struct {
	Deleted int
	HasMore bool
}

// Match is what a message resolves to.
type Match struct {
	Trigger  string
	Prefix   string
	Response string
}

// SetID records the store id of a decoded document.
func (c *ChannelConfig) SetID(id string)       { c.ID = id }
func (c *CustomCommand) SetID(id string)       { c.ID = id }
func (e *CommandHistoryEntry) SetID(id string) { e.ID = id }
func (m *AppMeta) SetID(id string)             { m.ID = id }
func (g *ApprovedGuild) SetID(id string)       { g.ID = id }
