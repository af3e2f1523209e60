package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	st "duque/internal/storagetypes"
	"duque/pkg/jobmgr"
	"duque/pkg/util"
)

const dateFormat = "YYYY-MM-DD hh:mm"

func commands() []*ownerCommand {
	return []*ownerCommand{
		{
			name:    "servers",
			desc:    "List all servers and channels",
			discord: true,
			run:     runServers,
		},
		{
			name:    "force-leave-server",
			aliases: []string{"leave-server"},
			args:    []string{"guildId"},
			desc:    "Force leave a server now",
			discord: true,
			failure: "Failed to force-leave server `%s`.",
			run:     runForceLeave,
		},
		{
			name:    "blacklist-server",
			aliases: []string{"blacklist"},
			args:    []string{"guildId"},
			desc:    "Block future joins for a server",
			failure: "Failed to blacklist server `%s`.",
			run:     runBlacklist,
		},
		{
			name:    "unblacklist-server",
			aliases: []string{"unblacklist"},
			args:    []string{"guildId"},
			desc:    "Allow future joins again",
			failure: "Failed to unblacklist server `%s`.",
			run:     runUnblacklist,
		},
		{
			name:    "approve",
			args:    []string{"guildId"},
			desc:    "Approve a server, lifting a blacklist if present",
			failure: "Failed to approve server `%s`.",
			run:     runApprove,
		},
		{
			name:    "revoke-server",
			aliases: []string{"revoke"},
			args:    []string{"guildId"},
			desc:    "Forget a server's record; it is approved again on its next join",
			failure: "Failed to revoke server `%s`.",
			run:     runRevoke,
		},
		{
			name:    "guilds",
			desc:    "List stored server records",
			failure: "Failed to list server records.",
			run:     runGuilds,
		},
		{
			name:    "leave-channel",
			aliases: []string{"clear-channel"},
			args:    []string{"channelId"},
			desc:    "Clear a channel's config and commands",
			failure: "Failed to clear channel `%s`.",
			run:     runLeaveChannel,
		},
		{
			name:    "history",
			args:    []string{"channelId"},
			optArgs: []string{"limit"},
			desc:    "Show a channel's command history",
			failure: "Failed to load history for channel `%s`.",
			run:     runHistory,
		},
		{
			name:    "recount-history",
			desc:    "Reset the history counter to the stored entry count",
			failure: "Failed to recount history.",
			run:     runRecount,
		},
		{
			name: "jobs",
			desc: "List running maintenance jobs",
			run: func(_ context.Context, env *Env, _ []string) error {
				env.say("⚙️ %s", env.Jobs.Status())
				return nil
			},
		},
		{
			name: "stop-job",
			args: []string{"name"},
			desc: "Cancel a running maintenance job",
			run:  runStopJob,
		},
		{
			name:    "invite",
			desc:    "Generate bot invite link",
			discord: true,
			run: func(_ context.Context, env *Env, _ []string) error {
				env.say("🔗 **Bot Invite Link:**\n%s", env.Discord.InviteURL())
				return nil
			},
		},
		{
			name: "help",
			desc: "Show this message",
			run:  runHelp,
		},
	}
}

func runServers(_ context.Context, env *Env, _ []string) error {
	guilds := env.Discord.Guilds()
	if len(guilds) == 0 {
		env.say("📭 I'm not in any servers.")
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📡 **Servers** (%d):\n", len(guilds))
	for _, g := range guilds {
		fmt.Fprintf(&sb, "\n🏠 **%s** (`%s`)\n   Members: %d", g.Name, g.ID, g.MemberCount)
		for _, ch := range g.Channels {
			fmt.Fprintf(&sb, "\n   • #%s (`%s`)", ch.Name, ch.ID)
		}
		sb.WriteString("\n")
	}
	env.say("%s", strings.TrimRight(sb.String(), "\n"))
	return nil
}

func runForceLeave(_ context.Context, env *Env, args []string) error {
	id := args[0]
	g, ok := env.guild(id)
	if !ok {
		env.say("❌ I'm not in a server with ID `%s`.", id)
		return nil
	}
	if err := env.Discord.LeaveGuild(id); err != nil {
		return err
	}
	env.say("✅ Force-left server **%s** (`%s`).", g.Name, id)
	return nil
}

func runBlacklist(ctx context.Context, env *Env, args []string) error {
	id := args[0]
	name := ""
	if g, ok := env.guild(id); ok {
		name = g.Name
	}

	res, err := env.Storage.BlacklistGuild(ctx, id, name)
	if err != nil {
		return err
	}
	if res.AlreadyBlacklisted {
		env.say("⚠️ Server `%s` is already blacklisted.", id)
		return nil
	}
	env.say("✅ Server `%s` blacklisted for future joins. If already joined, the bot stays until force-left.", id)
	return nil
}

func runUnblacklist(ctx context.Context, env *Env, args []string) error {
	id := args[0]
	res, err := env.Storage.UnblacklistGuild(ctx, id)
	if err != nil {
		return err
	}
	if !res.Success {
		if res.Reason == st.ReasonNotFound {
			env.say("⚠️ No guild record found.")
		} else {
			env.say("⚠️ Guild is not blacklisted.")
		}
		return nil
	}
	env.say("✅ Server `%s` has been unblacklisted.", id)
	return nil
}

func runApprove(ctx context.Context, env *Env, args []string) error {
	id := args[0]
	name := "Guild " + id
	if g, ok := env.guild(id); ok {
		name = g.Name
	}

	res, err := env.Storage.ApproveGuild(ctx, id, name)
	if err != nil {
		return err
	}
	switch {
	case !res.Success:
		env.say("⚠️ Server `%s` is already approved.", id)
	case res.Reason == st.ReasonUnblacklisted:
		env.say("✅ Server `%s` has been unblacklisted.", id)
	default:
		env.say("✅ Server `%s` has been approved.", id)
	}
	return nil
}

func runRevoke(ctx context.Context, env *Env, args []string) error {
	id := args[0]
	res, err := env.Storage.RevokeGuild(ctx, id)
	if err != nil {
		return err
	}
	if !res.Success {
		env.say("⚠️ No guild record found.")
		return nil
	}
	env.say("✅ Removed the record of server `%s`. It will be approved again on its next join.", id)
	return nil
}

func runGuilds(ctx context.Context, env *Env, _ []string) error {
	guilds, err := env.Storage.ListGuilds(ctx)
	if err != nil {
		return err
	}
	if len(guilds) == 0 {
		env.say("📭 No server records.")
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🗂️ **Server records** (%d):", len(guilds))
	for _, g := range guilds {
		fmt.Fprintf(&sb, "\n• **%s** (`%s`) approved %s", g.GuildName, g.GuildID, util.FormatDateTpl(g.ApprovedAt, dateFormat))
		if g.Blacklisted() {
			fmt.Fprintf(&sb, ", ⛔ blacklisted %s", util.FormatDateTpl(*g.BlacklistedAt, dateFormat))
		}
	}
	env.say("%s", sb.String())
	return nil
}

func runLeaveChannel(ctx context.Context, env *Env, args []string) error {
	id := args[0]
	deleted := 0

	err := env.Jobs.Run(ctx, "clear-channel:"+id, func(ctx context.Context) error {
		if _, err := env.Storage.DeleteChannelConfig(ctx, id); err != nil {
			return err
		}
		for {
			res, err := env.Storage.RemoveAllByChannel(ctx, id, env.ActorID)
			if err != nil {
				return err
			}
			deleted += res.Deleted
			if !res.HasMore {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	})
	if errors.Is(err, jobmgr.ErrJobRunning) {
		env.say("⚠️ Channel `%s` is already being cleared.", id)
		return nil
	}
	if errors.Is(err, context.Canceled) {
		env.say("⚠️ Clearing channel `%s` was stopped after %d command(s).", id, deleted)
		return nil
	}
	if err != nil {
		return err
	}
	env.say("✅ Cleared channel `%s`: removed config and %d command(s).", id, deleted)
	return nil
}

func runHistory(ctx context.Context, env *Env, args []string) error {
	id := args[0]
	limit := 0
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			env.say("❌ Limit must be a positive number.")
			return nil
		}
		limit = n
	}

	entries, err := env.Storage.GetHistory(ctx, id, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		env.say("📭 No command history for channel `%s`.", id)
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🕘 **History of `%s`** (%d):", id, len(entries))
	for _, e := range entries {
		fmt.Fprintf(&sb, "\n• %s %s `%s` by %s", util.FormatDateTpl(e.Timestamp, dateFormat), e.Action, e.Trigger, e.ActorUserID)
	}
	env.say("%s", sb.String())
	return nil
}

func runRecount(ctx context.Context, env *Env, _ []string) error {
	n, err := env.Storage.RecountHistory(ctx)
	if err != nil {
		return err
	}
	env.say("✅ History counter reset to %d entries.", n)
	return nil
}

func runStopJob(_ context.Context, env *Env, args []string) error {
	if err := env.Jobs.Stop(args[0]); err != nil {
		env.say("⚠️ No running job named `%s`.", args[0])
		return nil
	}
	env.say("✅ Stopping job `%s`.", args[0])
	return nil
}

func runHelp(_ context.Context, env *Env, _ []string) error {
	var sb strings.Builder
	sb.WriteString("📖 **Owner Commands:**\n")
	for _, c := range commands() {
		fmt.Fprintf(&sb, "\n`%s %s` – %s", env.prefix(), c.usage(c.name), c.desc)
		if len(c.aliases) > 0 {
			fmt.Fprintf(&sb, " (alias: `%s`)", strings.Join(c.aliases, "`, `"))
		}
	}
	env.say("%s", sb.String())
	return nil
}
