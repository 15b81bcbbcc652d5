/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package console

import (
	"context"
	"strconv"
	"strings"

	"github.com/Seednode/waterrock/game"
)

func (inv *invocation) listDares(ctx context.Context) {
	dares, err := inv.game.Content.Dares(ctx)
	if err != nil {
		inv.out.errorf("Error loading dares: %v", err)
		return
	}

	if len(dares) == 0 {
		inv.out.info(`No dares found. Use "add" to create a new dare.`)
		return
	}

	inv.out.blank()
	inv.out.info("Total dares: %d", len(dares))

	for i, d := range dares {
		id := d.ID
		if id == "" {
			id = strconv.Itoa(i + 1)
		}

		text := d.Text()
		if d.Challenge == "" && d.Title == "" && d.Description == "" {
			text = "Untitled"
		}

		inv.out.add(KindDare, "["+id+"] "+text)
	}
}

func (inv *invocation) dareAdd(ctx context.Context, args []string) {
	challenge := rest(args)
	if challenge == "" {
		inv.out.errorf(`Usage: add "challenge text"`)
		inv.out.info(`Example: add "Take a picture in a fountain"`)
		return
	}

	key, err := inv.game.Content.AddDare(ctx, challenge)
	if err != nil {
		inv.out.errorf("Error adding dare: %v", err)
		return
	}

	inv.out.success("Dare added successfully with ID: %s", key)
	inv.listDares(ctx)
}

func (inv *invocation) dareEdit(ctx context.Context, args []string) {
	if len(args) < 3 {
		inv.out.errorf(`Usage: edit <id> <field> "<value>"`)
		inv.out.info(`Example: edit 1 challenge "New challenge"`)
		return
	}

	if _, err := inv.game.Content.EditDare(ctx, args[0], args[1], rest(args[2:])); err != nil {
		inv.out.errorf("Error updating dare: %v", err)
		return
	}

	inv.out.success("Dare %s updated successfully.", args[0])
	inv.listDares(ctx)
}

func (inv *invocation) dareDelete(ctx context.Context, args []string) {
	if len(args) < 1 {
		inv.out.errorf("Usage: delete <id>")
		return
	}

	ok, err := inv.game.Content.DeleteDare(ctx, args[0])
	switch {
	case err != nil:
		inv.out.errorf("Error deleting dare: %v", err)
		return
	case !ok:
		inv.out.errorf("Error deleting dare: no dare %s", args[0])
		return
	}

	inv.out.success("Dare %s deleted successfully.", args[0])
	inv.listDares(ctx)
}

func (inv *invocation) listRiddles(ctx context.Context) {
	riddles, err := inv.game.Content.Riddles(ctx)
	if err != nil {
		inv.out.errorf("Error loading riddles: %v", err)
		return
	}

	if len(riddles) == 0 {
		inv.out.info(`No riddles found. Use "riddle add" to create a new riddle.`)
		return
	}

	inv.out.blank()
	inv.out.info("Total riddles: %d", len(riddles))

	for _, r := range riddles {
		inv.out.add(KindRiddle, "["+strconv.Itoa(r.ID)+"] "+orDefault(r.Riddle, "No riddle text")+" -> "+orDefault(r.Answer, "No answer"))
		if r.Instruction != "" {
			inv.out.info("  Instruction: %s", r.Instruction)
		}
	}
}

func (inv *invocation) riddleUsage(_ context.Context, args []string) {
	if len(args) > 0 {
		inv.out.errorf("Unknown riddle command. Use: add, edit, or delete")
		return
	}

	inv.out.errorf("Usage: riddle <command> [args]")
	inv.out.info(`Commands: add <id> "riddle" "answer" "hint" ["instruction"], edit <id> <field> "<value>", delete <id>`)
}

func (inv *invocation) riddleAdd(ctx context.Context, args []string) {
	if len(args) < 4 {
		inv.out.errorf(`Usage: riddle add <id> "riddle" "answer" "hint" ["instruction"]`)
		inv.out.info(`Example: riddle add 1 "What has keys?" "piano" "It's a musical instrument" "All lowercase. One word."`)
		return
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		inv.out.errorf("Error adding riddle: id must be a number")
		return
	}

	p := game.Puzzle{Riddle: args[1], Answer: args[2], Hint: args[3]}
	if len(args) > 4 {
		p.Instruction = rest(args[4:])
	}

	if _, err := inv.game.Content.AddRiddle(ctx, id, p); err != nil {
		inv.out.errorf("Error adding riddle: %v", err)
		return
	}

	inv.out.success("Riddle %d added successfully.", id)
	inv.listRiddles(ctx)
}

func (inv *invocation) riddleEdit(ctx context.Context, args []string) {
	if len(args) < 3 {
		inv.out.errorf(`Usage: riddle edit <id> <field> "<value>"`)
		inv.out.info("Fields: riddle, answer, hint, instruction")
		return
	}

	if _, err := inv.game.Content.EditRiddle(ctx, args[0], args[1], rest(args[2:])); err != nil {
		inv.out.errorf("Error updating riddle: %v", err)
		return
	}

	inv.out.success("Riddle %s updated successfully.", args[0])
	inv.listRiddles(ctx)
}

func (inv *invocation) riddleDelete(ctx context.Context, args []string) {
	if len(args) < 1 {
		inv.out.errorf("Usage: riddle delete <id>")
		return
	}

	ok, err := inv.game.Content.DeleteRiddle(ctx, args[0])
	switch {
	case err != nil:
		inv.out.errorf("Error deleting riddle: %v", err)
		return
	case !ok:
		inv.out.errorf("Error deleting riddle: no riddle %s", args[0])
		return
	}

	inv.out.success("Riddle %s deleted successfully.", args[0])
	inv.listRiddles(ctx)
}

func (inv *invocation) listClues(ctx context.Context) {
	clues, err := inv.game.Content.Clues(ctx)
	if err != nil {
		inv.out.errorf("Error loading clues: %v", err)
		return
	}

	if len(clues) == 0 {
		inv.out.info(`No clues found. Use "clue add" to create a new clue.`)
		return
	}

	inv.out.blank()
	inv.out.info("Total clues: %d", len(clues))

	for _, c := range clues {
		inv.out.add(KindClue, "["+c.ID+"] Order "+strconv.Itoa(c.Order)+": "+string(c.Type))
		inv.out.info("  Riddle: %s", orDefault(c.Riddle, "No riddle text"))
		inv.out.info("  Answer: %s", orDefault(c.Answer, "No answer"))
		if c.Hint != "" {
			inv.out.info("  Hint: %s", c.Hint)
		}
		if c.Type == game.PersonClue && len(c.AssignedTo) > 0 {
			inv.out.info("  Assigned to: %s", strings.Join(c.AssignedTo, ", "))
		}
	}
}

func (inv *invocation) clueUsage(_ context.Context, args []string) {
	if len(args) > 0 {
		inv.out.errorf("Unknown clue command. Use: add, edit, delete, or reset")
		return
	}

	inv.out.errorf("Usage: clue <command> [args]")
	inv.out.info("Commands: add, edit, delete, reset")
	inv.out.info(`  clue add <order> global "riddle" "answer" "hint"`)
	inv.out.info(`  clue add <order> person "riddle" "answer" "hint" Zoe,JT,Alana`)
	inv.out.info(`  clue edit <id> <field> "<value>"`)
	inv.out.info("  clue delete <id>")
	inv.out.info("  clue reset <userId>")
}

func (inv *invocation) clueAdd(ctx context.Context, args []string) {
	if len(args) < 5 {
		inv.out.errorf(`Usage: clue add <order> <type> "riddle" "answer" "hint" [assignedTo]`)
		inv.out.info("Types: global, person")
		inv.out.info(`Example: clue add 1 global "What has keys?" "piano" "musical instrument"`)
		inv.out.info(`Example: clue add 2 person "Zoe's clue" "answer" "hint" Zoe`)
		return
	}

	order, err := strconv.Atoi(args[0])
	if err != nil {
		inv.out.errorf("Error adding clue: order must be a number")
		return
	}

	typ, err := game.ParseClueType(args[1])
	if err != nil {
		inv.out.errorf(`Type must be "global" or "person"`)
		return
	}

	var assignees []string
	if len(args) > 5 {
		assignees = game.SplitAssignees(strings.Join(args[5:], ","))
	}

	id, err := inv.game.Content.AddClue(ctx, order, typ, game.Puzzle{Riddle: args[2], Answer: args[3], Hint: args[4]}, assignees)
	if err != nil {
		inv.out.errorf("Error adding clue: %v", err)
		return
	}

	inv.out.success("Clue added successfully with ID: %s", id)
	inv.listClues(ctx)
}

func (inv *invocation) clueEdit(ctx context.Context, args []string) {
	if len(args) < 3 {
		inv.out.errorf(`Usage: clue edit <id> <field> "<value>"`)
		inv.out.info("Fields: riddle, answer, hint, order, type, assignedTo")
		inv.out.info(`Example: clue edit abc123 riddle "New riddle text"`)
		return
	}

	if err := inv.game.Content.EditClue(ctx, args[0], args[1], rest(args[2:])); err != nil {
		inv.out.errorf("Error updating clue: %v", err)
		return
	}

	inv.out.success("Clue %s updated successfully.", args[0])
	inv.listClues(ctx)
}

func (inv *invocation) clueDelete(ctx context.Context, args []string) {
	if len(args) < 1 {
		inv.out.errorf("Usage: clue delete <id>")
		return
	}

	ok, err := inv.game.Content.DeleteClue(ctx, args[0])
	switch {
	case err != nil:
		inv.out.errorf("Error deleting clue: %v", err)
		return
	case !ok:
		inv.out.errorf("Error deleting clue: no clue %s", args[0])
		return
	}

	inv.out.success("Clue %s deleted successfully.", args[0])
	inv.listClues(ctx)
}

func (inv *invocation) clueReset(ctx context.Context, args []string) {
	if len(args) < 1 {
		inv.out.errorf("Usage: clue reset <userId>")
		inv.out.info("Example: clue reset Zoe")
		return
	}

	if err := inv.game.Progression.Reset(ctx, args[0]); err != nil {
		inv.out.errorf("Error resetting clue progress: %v", err)
		return
	}

	inv.out.success("Clue progress reset for %s", args[0])
	inv.listProgress(ctx)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}

	return s
}
