/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package console is the admin command line. Each input line is tokenised
// like a shell would, dispatched through a cobra command tree and answered
// with tagged output lines; nothing an admin types can stop the server.
package console

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/Seednode/waterrock/game"
	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"
)

// Kind tags an output line for display.
type Kind string

const (
	KindCommand Kind = "command"
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindDare    Kind = "dare"
	KindUser    Kind = "user"
	KindRiddle  Kind = "riddle"
	KindClue    Kind = "clue"
)

type Line struct {
	Text string `json:"text"`
	Kind Kind   `json:"kind"`
}

type Console struct {
	game *game.Game
	now  func() time.Time
}

func New(g *game.Game) *Console {
	return &Console{game: g, now: time.Now}
}

// groups take a subcommand as their first argument.
var groups = []string{"list", "ls", "riddle", "clue", "user", "reset"}

// Run executes one command line. The first output line always echoes it.
func (c *Console) Run(ctx context.Context, input string) []Line {
	input = strings.TrimSpace(input)

	out := &output{}
	out.add(KindCommand, "> "+input)

	args, err := shellwords.Parse(input)
	if err != nil {
		out.errorf("Error: %v", err)
		return out.lines
	}
	if len(args) == 0 {
		return out.lines
	}

	args[0] = strings.ToLower(args[0])
	if len(args) > 1 && slices.Contains(groups, args[0]) {
		args[1] = strings.ToLower(args[1])
	}

	root := c.root(out)

	cmd, _, err := root.Find(args)
	if err != nil || cmd == root {
		out.errorf("Unknown command: %s. Type \"help\" for available commands.", args[0])
		return out.lines
	}

	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		out.errorf("Error: %v", err)
	}

	return out.lines
}

type output struct {
	lines []Line
}

func (o *output) add(kind Kind, text string) {
	o.lines = append(o.lines, Line{Text: text, Kind: kind})
}

func (o *output) info(format string, args ...any) {
	o.add(KindInfo, fmt.Sprintf(format, args...))
}

func (o *output) success(format string, args ...any) {
	o.add(KindSuccess, fmt.Sprintf(format, args...))
}

func (o *output) errorf(format string, args ...any) {
	o.add(KindError, fmt.Sprintf(format, args...))
}

func (o *output) blank() {
	o.add(KindInfo, "")
}

// invocation is the state of a single Run.
type invocation struct {
	*Console
	out *output
}

type handler func(ctx context.Context, args []string)

func command(use string, run handler, aliases ...string) *cobra.Command {
	return &cobra.Command{
		Use:                use,
		Aliases:            aliases,
		DisableFlagParsing: true,
		Run: func(cmd *cobra.Command, args []string) {
			run(cmd.Context(), args)
		},
	}
}

func (c *Console) root(out *output) *cobra.Command {
	inv := &invocation{Console: c, out: out}

	root := &cobra.Command{
		Use:           "waterrock",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetHelpCommand(command("help", inv.help))
	root.InitDefaultHelpCmd()

	riddle := command("riddle", inv.riddleUsage)
	riddle.AddCommand(
		command("add", inv.riddleAdd),
		command("edit", inv.riddleEdit),
		command("delete", inv.riddleDelete, "del"),
	)

	clue := command("clue", inv.clueUsage)
	clue.AddCommand(
		command("add", inv.clueAdd),
		command("edit", inv.clueEdit),
		command("delete", inv.clueDelete, "del"),
		command("reset", inv.clueReset),
	)

	user := command("user", inv.userUsage)
	user.AddCommand(
		command("add", inv.userAdd),
		command("list", inv.listUsers, "ls"),
		command("pass", inv.userPass),
	)

	root.AddCommand(
		command("list", inv.list, "ls"),
		command("points", inv.listPoints),
		command("drinks", inv.listDrinks, "drink"),
		command("add", inv.dareAdd),
		command("edit", inv.dareEdit),
		command("delete", inv.dareDelete, "del"),
		riddle,
		clue,
		user,
		command("unlock", inv.unlock),
		command("proceed", inv.proceed),
		command("reset", inv.reset),
		command("resetvote", inv.resetVote),
		command("settings", inv.settings),
		command("clear", inv.clear),
	)

	return root
}

var helpText = []string{
	"Available commands:",
	"  help              - Show this help message",
	"  list              - List all dares",
	"  list users        - List all users",
	"  list points       - List all player points",
	"  list riddles      - List all riddles",
	"  list clues        - List all clues",
	"  list progress     - List all user clue progress",
	"  points            - List all player points (shortcut)",
	"  drinks            - List all drink choices",
	`  add "challenge"   - Add a new dare (simple one-line challenge)`,
	`  edit <id> challenge "<value>" - Edit dare challenge`,
	"  delete <id>       - Delete a dare by ID",
	`  riddle add <id> "riddle" "answer" "hint" ["instruction"] - Add a new riddle`,
	`  riddle edit <id> <field> "<value>" - Edit riddle (field: riddle, answer, hint, or instruction)`,
	"  riddle delete <id> - Delete a riddle by ID",
	`  clue add <order> <type> "riddle" "answer" "hint" [assignedTo] - Add a clue`,
	`  clue edit <id> <field> "<value>" - Edit clue`,
	"  clue delete <id> - Delete a clue",
	"  clue reset <userId> - Reset user's clue progress",
	"  user add <role> [password] - Add a new user",
	"  user list         - List all users",
	"  user pass <id> <password> - Change user password",
	"  unlock <true|false> - Set unlocked state",
	"  proceed <true|false> - Allow users to proceed from instructions to dashboard",
	"  reset vote <userId>  - Reset drink vote for a user (e.g., reset vote Zoe)",
	"  reset points all     - Reset all user points to zero",
	"  settings          - Show admin settings",
	"  clear             - Clear output",
}

func (inv *invocation) help(context.Context, []string) {
	for _, line := range helpText {
		inv.out.info("%s", line)
	}
}

func (inv *invocation) clear(context.Context, []string) {
	inv.out.info("Output cleared.")
}

func (inv *invocation) list(ctx context.Context, args []string) {
	what := ""
	if len(args) > 0 {
		what = strings.ToLower(args[0])
	}

	switch what {
	case "users":
		inv.listUsers(ctx, nil)
	case "points":
		inv.listPoints(ctx, nil)
	case "riddles":
		inv.listRiddles(ctx)
	case "clues":
		inv.listClues(ctx)
	case "progress":
		inv.listProgress(ctx)
	default:
		inv.listDares(ctx)
	}
}

// parseBool reads an admin switch; anything but "true" is false.
func parseBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

// rest joins the free-text remainder of a command.
func rest(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
