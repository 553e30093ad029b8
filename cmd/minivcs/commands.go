// cmd/minivcs/commands.go
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"minivcs/internal/config"
	"minivcs/internal/diff"
	"minivcs/internal/errors"
	"minivcs/internal/logging"
	"minivcs/internal/middleware"
	"minivcs/internal/repository"

	"github.com/fatih/color"
	"go.uber.org/zap"
)

// command is one entry of the command table shared by the CLI and the shell.
type command struct {
	usage   string
	short   string
	minArgs int
	maxArgs int  // -1 for no limit
	noRepo  bool // runs without an open repository
	raw     bool // the shell passes the rest of the line as one argument
	run     func(ctx context.Context, a *app, repo *repository.Repository, args []string) (string, error)
}

// app carries the resolved configuration of one process.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	dir     string // metadata directory name or path
	workDir string
}

var commands = map[string]command{
	"init": {
		usage:  "init",
		short:  "Create an empty repository",
		noRepo: true,
		run: func(ctx context.Context, a *app, _ *repository.Repository, _ []string) (string, error) {
			repo, err := repository.Init(a.initRoot(), a.options(), a.log(ctx))
			if err != nil {
				return "", err
			}
			defer repo.Close()
			return fmt.Sprintf("Initialized empty repository in %s", repo.Root()), nil
		},
	},
	"add": {
		usage:   "add <path>",
		short:   "Stage a file for the next commit",
		minArgs: 1,
		maxArgs: -1,
		raw:     true,
		run: func(ctx context.Context, a *app, repo *repository.Repository, args []string) (string, error) {
			var lines []string
			for _, path := range args {
				if _, err := repo.Add(a.abs(path)); err != nil {
					return strings.Join(lines, "\n"), err
				}
				lines = append(lines, fmt.Sprintf("File '%s' added to staging area.", path))
			}
			return strings.Join(lines, "\n"), nil
		},
	},
	"commit": {
		usage:   "commit <message>",
		short:   "Record the staged files on the current branch",
		minArgs: 1,
		maxArgs: -1,
		raw:     true,
		run: func(ctx context.Context, a *app, repo *repository.Repository, args []string) (string, error) {
			message := strings.Join(args, " ")
			id, err := repo.Commit(message)
			if err != nil {
				return "", err
			}
			current, err := repo.CurrentBranch()
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Commit %s created on branch '%s' with message: %s", id, current, message), nil
		},
	},
	"log": {
		usage: "log",
		short: "Show the current branch's history",
		run: func(ctx context.Context, a *app, repo *repository.Repository, _ []string) (string, error) {
			entries, err := repo.Log()
			if err != nil {
				return "", err
			}
			if len(entries) == 0 {
				return "No commits yet.", nil
			}
			lines := make([]string, 0, len(entries))
			for _, e := range entries {
				lines = append(lines, fmt.Sprintf("Commit %s: %s", e.ID, e.Message))
			}
			return strings.Join(lines, "\n"), nil
		},
	},
	"diff": {
		usage:   "diff <id1> <id2>",
		short:   "Show line changes between two commits",
		minArgs: 2,
		maxArgs: 2,
		run: func(ctx context.Context, a *app, repo *repository.Repository, args []string) (string, error) {
			report, err := repo.Diff(args[0], args[1])
			if err != nil {
				return "", err
			}
			if report.Empty() {
				return "No differences.", nil
			}
			return renderReport(report), nil
		},
	},
	"status": {
		usage: "status",
		short: "Show the current branch and the staged files",
		run: func(ctx context.Context, a *app, repo *repository.Repository, _ []string) (string, error) {
			current, err := repo.CurrentBranch()
			if err != nil {
				return "", err
			}
			staged, err := repo.Staged()
			if err != nil {
				return "", err
			}

			lines := []string{fmt.Sprintf("On branch '%s'.", current)}
			if len(staged) == 0 {
				return strings.Join(append(lines, "Nothing staged."), "\n"), nil
			}
			lines = append(lines, "Staged for commit:")
			for _, name := range staged {
				lines = append(lines, "  "+name)
			}
			return strings.Join(lines, "\n"), nil
		},
	},
	"branch": {
		usage:   "branch [name]",
		short:   "Create a branch, or list branches",
		maxArgs: 1,
		run: func(ctx context.Context, a *app, repo *repository.Repository, args []string) (string, error) {
			if len(args) == 0 {
				return listBranches(repo)
			}
			if err := repo.CreateBranch(args[0]); err != nil {
				return "", err
			}
			return fmt.Sprintf("Branch '%s' created.", args[0]), nil
		},
	},
	"checkout": {
		usage:   "checkout <name>",
		short:   "Switch the current branch",
		minArgs: 1,
		maxArgs: 1,
		run: func(ctx context.Context, a *app, repo *repository.Repository, args []string) (string, error) {
			if err := repo.Checkout(args[0]); err != nil {
				return "", err
			}
			return fmt.Sprintf("Switched to branch '%s'.", args[0]), nil
		},
	},
	"merge": {
		usage:   "merge <branch>",
		short:   "Bring another branch's missing commits into the current branch",
		minArgs: 1,
		maxArgs: 1,
		run: func(ctx context.Context, a *app, repo *repository.Repository, args []string) (string, error) {
			merged, err := repo.Merge(args[0])
			if err != nil {
				return "", err
			}
			current, err := repo.CurrentBranch()
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Branch '%s' merged into '%s' (%d commits).", args[0], current, len(merged)), nil
		},
	},
	"ignore": {
		usage:   "ignore <pattern>",
		short:   "Exclude paths ending with pattern from staging",
		minArgs: 1,
		maxArgs: 1,
		raw:     true,
		run: func(ctx context.Context, a *app, repo *repository.Repository, args []string) (string, error) {
			if err := repo.Ignore(args[0]); err != nil {
				return "", err
			}
			return fmt.Sprintf("Pattern '%s' added to ignore file.", args[0]), nil
		},
	},
	"clone": {
		usage:   "clone <destination>",
		short:   "Copy the repository to a new location",
		minArgs: 1,
		maxArgs: 1,
		raw:     true,
		run: func(ctx context.Context, a *app, repo *repository.Repository, args []string) (string, error) {
			if err := repo.Clone(a.abs(args[0])); err != nil {
				return "", err
			}
			return fmt.Sprintf("Repository cloned to '%s'.", args[0]), nil
		},
	},
	"bundle": {
		usage:   "bundle <file>",
		short:   "Write the repository to a compressed archive",
		minArgs: 1,
		maxArgs: 1,
		run: func(ctx context.Context, a *app, repo *repository.Repository, args []string) (string, error) {
			path := a.abs(args[0])
			if _, err := os.Stat(path); err == nil {
				return "", errors.DestinationExists(args[0])
			}

			f, err := os.Create(path)
			if err != nil {
				return "", fmt.Errorf("creating bundle: %w", err)
			}
			if err := repo.Bundle(f); err != nil {
				f.Close()
				os.Remove(path)
				return "", err
			}
			if err := f.Close(); err != nil {
				return "", fmt.Errorf("closing bundle: %w", err)
			}
			return fmt.Sprintf("Repository bundled to '%s'.", args[0]), nil
		},
	},
	"unbundle": {
		usage:   "unbundle <file> <destination>",
		short:   "Restore a repository from an archive",
		minArgs: 2,
		maxArgs: 2,
		noRepo:  true,
		run: func(ctx context.Context, a *app, _ *repository.Repository, args []string) (string, error) {
			f, err := os.Open(a.abs(args[0]))
			if err != nil {
				if os.IsNotExist(err) {
					return "", errors.NotFound(args[0])
				}
				return "", fmt.Errorf("opening bundle: %w", err)
			}
			defer f.Close()

			if err := repository.Unbundle(f, a.abs(args[1]), a.options(), a.log(ctx)); err != nil {
				return "", err
			}
			return fmt.Sprintf("Repository restored to '%s'.", args[1]), nil
		},
	},
	"watch": {
		usage:   "watch <path...>",
		short:   "Restage files whenever they change, until interrupted",
		minArgs: 1,
		maxArgs: -1,
		run: func(ctx context.Context, a *app, repo *repository.Repository, args []string) (string, error) {
			paths := make([]string, len(args))
			for i, p := range args {
				paths[i] = a.abs(p)
			}
			err := repo.Watch(ctx, func(path, name string) {
				fmt.Printf("File '%s' added to staging area.\n", path)
			}, paths...)
			if err != nil {
				return "", err
			}
			return "Stopped watching.", nil
		},
	},
	"info": {
		usage: "info",
		short: "Show the repository identity",
		run: func(ctx context.Context, a *app, repo *repository.Repository, _ []string) (string, error) {
			rec, err := repo.Info()
			if err != nil {
				return "", err
			}
			current, err := repo.CurrentBranch()
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Repository %s (format %s) at %s, on branch '%s'.",
				rec.ID, rec.Version, repo.Root(), current), nil
		},
	},
}

func listBranches(repo *repository.Repository) (string, error) {
	names, err := repo.Branches()
	if err != nil {
		return "", err
	}
	current, err := repo.CurrentBranch()
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(names))
	for _, name := range names {
		marker := "  "
		if name == current {
			marker = "* "
		}
		lines = append(lines, marker+name)
	}
	return strings.Join(lines, "\n"), nil
}

// renderReport writes a diff report as unified text, colored by line kind.
func renderReport(report *diff.Report) string {
	file := color.New(color.Bold)
	header := color.New(color.FgCyan)
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)

	var lines []string
	for _, f := range report.Files {
		lines = append(lines, file.Sprint("--- "+f.From), file.Sprint("+++ "+f.To))
		for _, hunk := range f.Result.Hunks {
			lines = append(lines, header.Sprint(hunk.Header()))
			for _, line := range hunk.Lines {
				switch line.Type {
				case diff.Addition:
					lines = append(lines, added.Sprint("+"+line.Content))
				case diff.Deletion:
					lines = append(lines, removed.Sprint("-"+line.Content))
				default:
					lines = append(lines, " "+line.Content)
				}
			}
		}
	}
	return strings.Join(lines, "\n")
}

// handler builds the middleware-wrapped handler for a table entry.
func (a *app) handler(name string) (middleware.Handler, error) {
	cmd, ok := commands[name]
	if !ok {
		return nil, errors.ValidationError(fmt.Sprintf("unknown command '%s'", name), name)
	}

	h := func(ctx context.Context, args []string) (string, error) {
		if len(args) < cmd.minArgs || (cmd.maxArgs >= 0 && len(args) > cmd.maxArgs) {
			return "", errors.ValidationError("usage: "+cmd.usage, args)
		}
		if cmd.noRepo {
			return cmd.run(ctx, a, nil, args)
		}

		repo, err := a.open(ctx)
		if err != nil {
			return "", err
		}
		defer repo.Close()
		return cmd.run(ctx, a, repo, args)
	}

	return middleware.Chain(name, h,
		middleware.Recover(a.logger),
		middleware.Logger(a.logger),
		middleware.OperationID,
	), nil
}

// dispatch runs one command through the table.
func (a *app) dispatch(ctx context.Context, name string, args []string) (string, error) {
	h, err := a.handler(name)
	if err != nil {
		return "", err
	}
	return h(ctx, args)
}

func (a *app) options() repository.Options {
	return repository.OptionsFromConfig(a.cfg)
}

func (a *app) log(ctx context.Context) *zap.Logger {
	return a.logger.WithOperation(ctx)
}

func (a *app) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(a.workDir, path)
}

// initRoot is where init creates the metadata directory.
func (a *app) initRoot() string {
	return a.abs(a.dir)
}

// open finds the metadata directory by walking up from the working
// directory, unless an explicit path was configured.
func (a *app) open(ctx context.Context) (*repository.Repository, error) {
	root := a.abs(a.dir)
	if filepath.Base(a.dir) == a.dir {
		found, err := repository.FindRoot(a.workDir, a.dir)
		if err != nil {
			return nil, err
		}
		root = found
	}
	return repository.Open(root, a.options(), a.log(ctx))
}
