// main.go - Command-line analyzer for metriclens
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
)

// Command defines the interface for all command implementations
type Command interface {
	// Name returns the command name
	Name() string
	// Description returns the command description
	Description() string
	// Execute runs the command with the given args
	Execute(ctx context.Context, args []string) error
}

// The set of available commands
var commands = []Command{
	&AnalyzeCommand{},
	&HelpCommand{},
}

func main() {
	flag.Parse()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v, stopping...", sig)
		cancel()
	}()

	cmdName, args := parseArgs()

	cmd := findCommand(cmdName)
	if cmd == nil {
		showUsageAndExit()
	}

	if err := cmd.Execute(ctx, args); err != nil {
		log.Fatalf("Command failed: %v", err)
	}
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
	fmt.Println("Usage: mlctl <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	for _, cmd := range commands {
		fmt.Printf("  %-10s %s\n", cmd.Name(), cmd.Description())
	}
	os.Exit(1)
}

// HelpCommand prints usage information
type HelpCommand struct{}

// Name returns the command name
func (c *HelpCommand) Name() string {
	return "help"
}

// Description returns the command description
func (c *HelpCommand) Description() string {
	return "Shows this help"
}

// Execute implements the help command
func (c *HelpCommand) Execute(ctx context.Context, args []string) error {
	fmt.Println("mlctl - analyze Google Analytics CSV exports")
	fmt.Println()
	fmt.Println("Commands:")
	for _, cmd := range commands {
		fmt.Printf("  %-10s %s\n", cmd.Name(), cmd.Description())
	}
	fmt.Println()
	fmt.Println("analyze usage:")
	fmt.Println("  mlctl analyze <file.csv> [-output-dir dir] [-format json|html|markdown|all]")
	return nil
}
