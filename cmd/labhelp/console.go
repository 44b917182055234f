package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/template"

	"github.com/Raytar/labhelp"
	"github.com/Raytar/labhelp/database"
	"github.com/Raytar/labhelp/models"
)

const (
	roleGroup = "group"
	roleTA    = "ta"
)

var errQuit = errors.New("quit")

type command func(ctx context.Context, c *console, args string) error

type commandMap map[string]command

var (
	groupCommands = commandMap{
		"?":      usageCommand,
		"help":   requestHelpCommand,
		"done":   doneCommand,
		"status": groupStatusCommand,
		"quit":   quitCommand,
	}
	assistantCommands = commandMap{
		"?":       usageCommand,
		"task":    stageTaskCommand,
		"submit":  submitCommand,
		"claim":   claimCommand,
		"resolve": resolveCommand,
		"queue":   queueCommand,
		"groups":  groupsCommand,
		"history": historyCommand,
		"quit":    quitCommand,
	}
)

// console reads commands line by line and runs them against the joined actor.
type console struct {
	out      *printer
	commands commandMap
	group    *labhelp.Group
	ta       *labhelp.Assistant
	db       *database.Database
	staged   []models.Task
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// readLines sends every line read from r on the returned channel, and closes
// it at end of input.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			log.Errorln("Failed to read input:", err)
		}
	}()
	return lines
}

func (c *console) run(ctx context.Context, lines <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			if err := c.exec(ctx, line); errors.Is(err, errQuit) {
				return err
			}
		}
	}
}

func (c *console) exec(ctx context.Context, line string) error {
	name, args, _ := strings.Cut(strings.TrimSpace(line), " ")
	if name == "" {
		return nil
	}
	cmd, ok := c.commands[name]
	if !ok {
		c.out.warn(fmt.Sprintf("Unknown command %q. Type ? for a list of commands.", name))
		return nil
	}
	err := cmd(ctx, c, strings.TrimSpace(args))
	if err != nil && !errors.Is(err, errQuit) {
		c.out.warn(err.Error())
	}
	return err
}

func (c *console) usage() *template.Template {
	if c.ta != nil {
		return assistantUsage
	}
	return groupUsage
}

func usageCommand(_ context.Context, c *console, _ string) error {
	buf := new(strings.Builder)
	if err := c.usage().Execute(buf, c.commands); err != nil {
		return fmt.Errorf("usageCommand: failed to execute template: %w", err)
	}
	c.out.print(buf.String())
	return nil
}

func quitCommand(context.Context, *console, string) error {
	return errQuit
}

func requestHelpCommand(ctx context.Context, c *console, args string) error {
	return c.group.RequestHelp(ctx, args)
}

func doneCommand(ctx context.Context, c *console, _ string) error {
	return c.group.MarkCurrentTaskDone(ctx)
}

func groupStatusCommand(ctx context.Context, c *console, _ string) error {
	view, err := c.group.View(ctx)
	if err != nil {
		return err
	}
	c.out.groupView(view)
	return nil
}

// parseTask parses "<minutes> <description>".
func parseTask(args string) (models.Task, error) {
	minutes, description, _ := strings.Cut(args, " ")
	n, err := strconv.Atoi(minutes)
	if err != nil || n <= 0 {
		return models.Task{}, fmt.Errorf("invalid duration %q, expected minutes", minutes)
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return models.Task{}, fmt.Errorf("missing task description")
	}
	return models.Task{Description: description, Duration: models.Number(n)}, nil
}

func stageTaskCommand(_ context.Context, c *console, args string) error {
	task, err := parseTask(args)
	if err != nil {
		return err
	}
	c.staged = append(c.staged, task)
	c.out.info(fmt.Sprintf("Staged task %d: %s (%d min)", len(c.staged), task.Description, task.Duration))
	return nil
}

func submitCommand(ctx context.Context, c *console, _ string) error {
	if err := c.ta.SubmitTasks(ctx, c.staged); err != nil {
		return err
	}
	c.out.info(fmt.Sprintf("Submitted %d tasks", len(c.staged)))
	c.staged = nil
	return nil
}

func claimCommand(ctx context.Context, c *console, args string) error {
	return c.ta.AssignGettingHelp(ctx, args)
}

func resolveCommand(ctx context.Context, c *console, args string) error {
	return c.ta.AssignGotHelp(ctx, args)
}

func queueCommand(ctx context.Context, c *console, _ string) error {
	view, err := c.ta.View(ctx)
	if err != nil {
		return err
	}
	c.out.queue(view.Tables.Queue)
	c.out.assignments(view.Tables.Assignments)
	return nil
}

func groupsCommand(ctx context.Context, c *console, _ string) error {
	view, err := c.ta.View(ctx)
	if err != nil {
		return err
	}
	c.out.groups(view.Tables.Groups)
	return nil
}

func historyCommand(_ context.Context, c *console, _ string) error {
	if c.db == nil {
		return fmt.Errorf("no journal")
	}
	records, err := c.db.History()
	if err != nil {
		return err
	}
	count, mean, err := c.db.WaitingStats()
	if err != nil {
		return err
	}
	c.out.history(records, count, mean)
	return nil
}
