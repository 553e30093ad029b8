// cmd/minivcs/main.go
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"

	"minivcs/internal/config"
	"minivcs/internal/logging"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	configPath string
	dirFlag    string
	logLevel   string
	noColor    bool

	cli = &app{}
)

var rootCmd = &cobra.Command{
	Use:           "minivcs",
	Short:         "minivcs is a minimal local version control system",
	Long:          `minivcs stages files, records them as numbered commits on branches, and diffs, merges and clones that history. Everything lives in a metadata directory next to your files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			configPath = config.Path()
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("dir") {
			cfg.Repository.Dir = dirFlag
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if noColor || !cfg.Diff.Color {
			color.NoColor = true
		}

		logger, err := logging.NewLogger(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}

		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}

		cli.cfg = cfg
		cli.logger = logger
		cli.dir = cfg.Repository.Dir
		cli.workDir = wd
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default config/config.<MINIVCS_ENV>.ini)")
	rootCmd.PersistentFlags().StringVar(&dirFlag, "dir", config.DefaultDir, "metadata directory name or path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	for _, name := range slices.Sorted(maps.Keys(commands)) {
		rootCmd.AddCommand(newCommand(name))
	}

	var shellCmd = &cobra.Command{
		Use:   "shell",
		Short: "Run commands interactively",
		Long:  `Reads one command per line from standard input until 'exit' or end of input. A failing command prints its error and the shell keeps going.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd.Context(), cli, os.Stdin, os.Stdout)
		},
	}
	rootCmd.AddCommand(shellCmd)
}

// newCommand exposes one table entry as a cobra subcommand.
func newCommand(name string) *cobra.Command {
	entry := commands[name]
	return &cobra.Command{
		Use:   entry.usage,
		Short: entry.short,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cli.dispatch(cmd.Context(), name, args)
			printOutput(os.Stdout, out)
			return err
		},
	}
}

func runShell(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	prompt := color.New(color.FgCyan)
	scanner := bufio.NewScanner(in)

	for {
		prompt.Fprint(out, "minivcs> ")
		if !scanner.Scan() {
			break
		}

		name, args := shellArgs(scanner.Text())
		if name == "" {
			continue
		}
		if name == "exit" || name == "quit" {
			fmt.Fprintln(out, "Exiting...")
			return nil
		}
		if name == "shell" {
			printError(out, fmt.Errorf("already in a shell"))
			continue
		}

		result, err := a.dispatch(ctx, name, args)
		printOutput(out, result)
		if err != nil {
			printError(out, err)
		}
	}

	fmt.Fprintln(out)
	return scanner.Err()
}

// shellArgs splits a shell line into a command name and its arguments.
// Commands taking free text get the rest of the line verbatim.
func shellArgs(line string) (string, []string) {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	if name == "" {
		return "", nil
	}

	rest = strings.TrimSpace(rest)
	if cmd, ok := commands[name]; ok && cmd.raw {
		if rest == "" {
			return name, nil
		}
		return name, []string{rest}
	}
	return name, strings.Fields(rest)
}

func printOutput(w io.Writer, out string) {
	if out != "" {
		fmt.Fprintln(w, out)
	}
}

func printError(w io.Writer, err error) {
	color.New(color.FgRed).Fprintln(w, "Error:", err)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
