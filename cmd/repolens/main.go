// Command repolens is a read-only inspector for local git repositories,
// exposing the library's structured view from the command line.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/repolens/repolens"
)

var version = "dev"

func usage() {
	fmt.Fprintln(os.Stderr, `usage: repolens [--repo <path>] <command> [args]

Commands:
  status     Show staged, unstaged and untracked files
  log        Show commit history
  cat-file   Show object type or content
  branch     List branches
  tag        List tags
  stash      List stashes
  worktree   List worktrees`)
}

func main() {
	flags := pflag.NewFlagSet("repolens", pflag.ExitOnError)
	repoPath := flags.StringP("repo", "C", ".", "path to the repository")
	showVersion := flags.Bool("version", false, "print version and exit")
	flags.SetInterspersed(false)

	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	if *showVersion {
		fmt.Println("repolens", version)
		return
	}

	args := flags.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	repo, err := repolens.PlainOpen(*repoPath)
	if err != nil {
		fatal(err)
	}
	defer repo.Close()

	ctx := context.Background()

	var code int
	switch args[0] {
	case "status":
		code = runStatus(ctx, repo, args[1:])
	case "log":
		code = runLog(ctx, repo, args[1:])
	case "cat-file":
		code = runCatFile(ctx, repo, args[1:])
	case "branch":
		code = runBranch(repo, args[1:])
	case "tag":
		code = runTag(repo, args[1:])
	case "stash":
		code = runStash(repo, args[1:])
	case "worktree":
		code = runWorktree(repo, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "repolens: unknown command %q\n", args[0])
		usage()
		code = 2
	}

	os.Exit(code)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
	os.Exit(128)
}
