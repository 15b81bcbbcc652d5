/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package console

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/waterrock/game"
	"github.com/dustin/go-humanize"
)

func (inv *invocation) listUsers(ctx context.Context, _ []string) {
	users, err := inv.game.Users.List(ctx)
	if err != nil {
		inv.out.errorf("Error loading users: %v", err)
		return
	}

	if len(users) == 0 {
		inv.out.info(`No users found. Use "user add <role>" to create a new user.`)
		return
	}

	inv.out.blank()
	inv.out.info("Total users: %d", len(users))

	for _, u := range users {
		active := "active"
		if !u.Active {
			active = "inactive"
		}

		inv.out.add(KindUser, "["+u.ID+"] "+u.Role+" - "+u.Username+" ("+active+")")
	}
}

func (inv *invocation) listPoints(ctx context.Context, _ []string) {
	users, err := inv.game.Users.List(ctx)
	if err != nil {
		inv.out.errorf("Error loading users: %v", err)
		return
	}

	balances, err := inv.game.Ledger.All(ctx)
	if err != nil {
		inv.out.errorf("Error loading points: %v", err)
		return
	}

	points := make(map[string]int, len(balances))
	for _, b := range balances {
		points[b.UserID] = b.Points
	}

	if len(users) == 0 && len(balances) == 0 {
		inv.out.info("No users found.")
		return
	}

	inv.out.blank()
	inv.out.info("Player Points:")

	known := make(map[string]bool, len(users))
	for _, u := range users {
		known[u.ID] = true
		inv.out.add(KindUser, "["+u.ID+"] "+u.Role+" - "+strconv.Itoa(points[u.ID])+" points")
	}

	// Balances can outlive their user record.
	for _, b := range balances {
		if !known[b.UserID] {
			inv.out.add(KindUser, "["+b.UserID+"] unknown - "+strconv.Itoa(b.Points)+" points")
		}
	}
}

func (inv *invocation) listDrinks(ctx context.Context, _ []string) {
	groups, err := inv.game.Drinks.All(ctx)
	if err != nil {
		inv.out.errorf("Error loading drink choices: %v", err)
		return
	}

	total := 0
	for _, g := range groups {
		total += len(g.Choices)
	}

	if total == 0 {
		inv.out.info("No drink choices found yet.")
		return
	}

	inv.out.blank()
	inv.out.info("Total drink choices: %d", total)

	for _, g := range groups {
		inv.out.blank()
		inv.out.info("%s:", g.Drink)

		for _, c := range g.Choices {
			inv.out.add(KindUser, "  - "+orDefault(c.Role, c.UserID)+" ("+c.UserID+")")
		}
	}
}

func (inv *invocation) listProgress(ctx context.Context) {
	progress, err := inv.game.Progression.AllProgress(ctx)
	if err != nil {
		inv.out.errorf("Error loading clue progress: %v", err)
		return
	}

	if len(progress) == 0 {
		inv.out.info("No user progress found.")
		return
	}

	inv.out.blank()
	inv.out.info("User Clue Progress:")

	for _, p := range progress {
		waiting := "No"
		if p.WaitingForOthers {
			waiting = "Yes"
		}

		inv.out.info("%s:", p.UserID)
		inv.out.info("  Current Order: %d", p.CurrentClueOrder)
		inv.out.info("  Completed Clues: %d", len(p.CompletedClueIDs))
		inv.out.info("  Waiting for Others: %s", waiting)
		if len(p.CompletedClueIDs) > 0 {
			inv.out.info("  Completed IDs: %s", strings.Join(p.CompletedClueIDs, ", "))
		}
	}
}

func (inv *invocation) userUsage(_ context.Context, args []string) {
	if len(args) > 0 {
		inv.out.errorf("Unknown user command. Use: add, list, or pass")
		return
	}

	inv.out.errorf("Usage: user <command> [args]")
	inv.out.info("Commands: add <role> [password], list, pass <id> <password>")
}

func (inv *invocation) userAdd(ctx context.Context, args []string) {
	if len(args) < 1 {
		inv.out.errorf("Usage: user add <role> [password]")
		return
	}

	role, password := args[0], ""
	if len(args) > 1 {
		password = args[1]
	}

	if err := inv.game.Users.Add(ctx, role, password); err != nil {
		inv.out.errorf("Error adding user: %v", err)
		return
	}

	inv.out.success("User %s added successfully.", role)
	inv.listUsers(ctx, nil)
}

func (inv *invocation) userPass(ctx context.Context, args []string) {
	if len(args) < 2 {
		inv.out.errorf("Usage: user pass <id> <password>")
		return
	}

	if err := inv.game.Users.SetPassword(ctx, args[0], args[1]); err != nil {
		inv.out.errorf("Error updating password: %v", err)
		return
	}

	inv.out.success("Password updated for user %s.", args[0])
}

func (inv *invocation) unlock(ctx context.Context, args []string) {
	if len(args) < 1 {
		inv.out.errorf("Usage: unlock <true|false>")
		return
	}

	unlocked := parseBool(args[0])
	if err := inv.game.Gates.SetUnlocked(ctx, unlocked); err != nil {
		inv.out.errorf("Error updating unlock state: %v", err)
		return
	}

	inv.out.success("Unlocked state set to: %t", unlocked)
}

func (inv *invocation) proceed(ctx context.Context, args []string) {
	if len(args) < 1 {
		inv.out.errorf("Usage: proceed <true|false>")
		return
	}

	proceed := parseBool(args[0])
	if err := inv.game.Gates.SetCanProceed(ctx, proceed); err != nil {
		inv.out.errorf("Error updating proceed state: %v", err)
		return
	}

	inv.out.success("Users can proceed to dashboard: %t", proceed)
}

func (inv *invocation) reset(ctx context.Context, args []string) {
	if len(args) > 0 && args[0] == "points" {
		inv.resetPoints(ctx, args[1:])
		return
	}

	if len(args) < 2 || args[0] != "vote" {
		inv.out.errorf("Usage: reset vote <userId>")
		inv.out.info("Example: reset vote Zoe")
		return
	}

	inv.resetVote(ctx, args[1:])
}

func (inv *invocation) resetPoints(ctx context.Context, args []string) {
	if len(args) < 1 || !strings.EqualFold(args[0], "all") {
		inv.out.errorf("Usage: reset points all")
		inv.out.info("This will reset all user points to zero")
		return
	}

	n, err := inv.game.Ledger.ResetAll(ctx)
	if err != nil {
		inv.out.errorf("Error resetting points: %v", err)
		return
	}

	inv.out.success("Reset points to zero for %d users", n)
}

func (inv *invocation) resetVote(ctx context.Context, args []string) {
	if len(args) < 1 {
		inv.out.errorf("Usage: reset vote <userId>")
		inv.out.info("Example: reset vote Zoe")
		return
	}

	ok, err := inv.game.Drinks.Reset(ctx, args[0])
	switch {
	case err != nil:
		inv.out.errorf("Error resetting vote: %v", err)
	case ok:
		inv.out.success("Drink vote reset for %s", args[0])
	default:
		inv.out.info("No vote found for %s", args[0])
	}
}

func (inv *invocation) settings(ctx context.Context, _ []string) {
	fields, err := inv.game.Gates.Fields(ctx)
	if err != nil {
		inv.out.errorf("Error loading settings: %v", err)
		return
	}
	state := game.GateStateFromFields(fields)

	inv.out.blank()
	inv.out.info("Admin Settings:")
	inv.out.info("  Unlocked: %t", state.Unlocked)
	inv.out.info("  Can Proceed to Dashboard: %t", state.CanProceed)
	inv.out.info("  Mode: %s", inv.game.Mode())

	if changed, err := time.Parse(time.RFC3339Nano, fields.String("updatedAt")); err == nil {
		inv.out.info("  Last Changed: %s", humanize.RelTime(changed, inv.now(), "ago", "from now"))
	}

	inv.out.info(`Use "unlock true" or "unlock false" to change unlock state.`)
	inv.out.info(`Use "proceed true" or "proceed false" to allow users to proceed from instructions.`)
}
