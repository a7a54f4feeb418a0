// main.go - Admin control tool for clickpulse
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"clickpulse/internal"
	"clickpulse/internal/events"
)

// Command defines the interface for all command implementations
type Command interface {
	// Name returns the command name
	Name() string
	// Description returns the command description
	Description() string
	// Execute runs the command with the given app and args
	Execute(ctx context.Context, app *internal.Application, args []string) error
}

var commands = []Command{
	&MigrateCommand{},
	&StatusCommand{},
	&PurgeEventsCommand{},
	&HelpCommand{},
}

func main() {
	flag.Parse()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v, initiating cleanup...", sig)
		cancel()
	}()

	cmdName, args := parseArgs()

	cmd := findCommand(cmdName)
	if cmd == nil {
		showUsageAndExit()
	}

	app, err := internal.NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}
	defer app.Shutdown()

	if err := cmd.Execute(ctx, app, args); err != nil {
		log.Fatalf("Command failed: %v", err)
	}

	log.Printf("Command %s completed successfully", cmd.Name())
}

func parseArgs() (string, []string) {
	args := flag.Args()
	if len(args) == 0 {
		return "help", nil
	}
	return args[0], args[1:]
}

func findCommand(name string) Command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

func showUsageAndExit() {
	fmt.Println("Usage: cpctl <command> [args]")
	fmt.Println("Commands:")
	for _, cmd := range commands {
		fmt.Printf("  %-15s %s\n", cmd.Name(), cmd.Description())
	}
	os.Exit(1)
}

// MigrateCommand runs the database migrations
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string        { return "migrate" }
func (c *MigrateCommand) Description() string { return "Runs database migrations" }

func (c *MigrateCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	return app.DBManager.MigrateDatabase()
}

// StatusCommand prints database and event store statistics
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Description() string { return "Shows database and event store status" }

func (c *StatusCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	count, err := app.Store.Count()
	if err != nil {
		return fmt.Errorf("failed to count events: %w", err)
	}

	fmt.Printf("Environment:  %s\n", app.Config.Environment)
	fmt.Printf("Database:     %s\n", app.Config.GetDatabasePath())
	fmt.Printf("Events:       %d\n", count)
	fmt.Printf("Fetch limit:  %d\n", app.Config.FetchLimit)
	return nil
}

// PurgeEventsCommand deletes all stored events after a typed confirmation
type PurgeEventsCommand struct{}

func (c *PurgeEventsCommand) Name() string        { return "purge-events" }
func (c *PurgeEventsCommand) Description() string { return "Deletes ALL stored events (no undo)" }

func (c *PurgeEventsCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	count, err := app.Store.Count()
	if err != nil {
		return fmt.Errorf("failed to count events: %w", err)
	}
	if count == 0 {
		fmt.Println("No events to delete.")
		return nil
	}

	if !term.IsTerminal(int(syscall.Stdin)) {
		return fmt.Errorf("purge-events requires an interactive terminal for confirmation")
	}

	fmt.Printf("This will permanently delete %d events. There is no undo.\n", count)
	fmt.Printf("Type %q to confirm: ", events.BulkDeleteConfirmation)

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}

	deleted, err := app.Store.BulkDelete(strings.TrimSpace(line))
	if err != nil {
		return err
	}

	fmt.Printf("Deleted %d events.\n", deleted)
	return nil
}

// HelpCommand prints the usage listing
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Shows this help" }

func (c *HelpCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	fmt.Println("Usage: cpctl <command> [args]")
	fmt.Println("Commands:")
	for _, cmd := range commands {
		fmt.Printf("  %-15s %s\n", cmd.Name(), cmd.Description())
	}
	return nil
}
