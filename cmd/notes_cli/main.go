package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/2beens/kvnotes/internal/logging"
	"github.com/2beens/kvnotes/internal/notesclient"

	log "github.com/sirupsen/logrus"
)

const usage = `usage: notes_cli [flags] <command>

commands:
  list               list notes, newest first
  add <text>         add a new note
  edit <id> <text>   replace the text of a note
  rm <id>            delete a note (asks for confirmation, -y skips it)

flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run returns the process exit code so deferred cleanup happens before main exits.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("notes_cli", flag.ContinueOnError)
	flags.SetOutput(stderr)
	serviceURL := flags.String("url", "http://localhost:8080", "notes service base url")
	logLevel := flags.String("log-level", "error", "log level")
	yes := flags.Bool("y", false, "do not ask for delete confirmation")
	timeout := flags.Duration("timeout", 10*time.Second, "timeout for the whole command")
	flags.Usage = func() {
		fmt.Fprint(flags.Output(), usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 2
	}

	logging.Setup(logging.LoggerSetupParams{
		LogToStdout: true,
		LogLevel:    *logLevel,
	})

	client, err := notesclient.NewClient(*serviceURL)
	if err != nil {
		log.Errorf("notes client: %s", err)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cmd := &command{
		view:    notesclient.NewView(client),
		out:     stdout,
		in:      bufio.NewReader(stdin),
		confirm: !*yes,
	}
	if err := cmd.run(ctx, flags.Args()); err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return 1
	}
	return 0
}

type command struct {
	view    *notesclient.View
	out     io.Writer
	in      *bufio.Reader
	confirm bool
}

func (c *command) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		flag.Usage()
		return fmt.Errorf("command missing")
	}

	if err := c.view.Load(ctx); err != nil {
		return err
	}

	switch args[0] {
	case "list", "ls":
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("add: text missing")
		}
		c.view.Input = strings.Join(args[1:], " ")
		if err := c.view.Submit(ctx); err != nil {
			return err
		}
	case "edit":
		if len(args) < 3 {
			return fmt.Errorf("edit: usage edit <id> <text>")
		}
		found := false
		for _, n := range c.view.Notes {
			if n.ID == args[1] {
				c.view.Edit(n)
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("edit: note [%s] not found", args[1])
		}
		c.view.Input = strings.Join(args[2:], " ")
		if err := c.view.Submit(ctx); err != nil {
			return err
		}
	case "rm", "delete":
		if len(args) != 2 {
			return fmt.Errorf("rm: usage rm <id>")
		}
		if c.confirm && !c.askConfirm(fmt.Sprintf("delete note [%s]? [y/N] ", args[1])) {
			fmt.Fprintln(c.out, "aborted")
			return nil
		}
		if err := c.view.Delete(ctx, args[1]); err != nil {
			return err
		}
	default:
		flag.Usage()
		return fmt.Errorf("unknown command [%s]", args[0])
	}

	c.printNotes()
	return nil
}

func (c *command) askConfirm(prompt string) bool {
	fmt.Fprint(c.out, prompt)
	answer, err := c.in.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func (c *command) printNotes() {
	if len(c.view.Notes) == 0 {
		fmt.Fprintln(c.out, "no notes yet")
		return
	}
	for _, n := range c.view.Notes {
		edited := ""
		if n.UpdatedAt != nil {
			edited = " (edited " + n.UpdatedAt.Local().Format(time.DateTime) + ")"
		}
		fmt.Fprintf(c.out, "%s  %s  %s%s\n", n.ID, n.CreatedAt.Local().Format(time.DateTime), n.Text, edited)
	}
}
