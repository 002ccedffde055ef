package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/repolens/repolens"
	"github.com/repolens/repolens/plumbing"
)

func runBranch(repo *repolens.Repository, args []string) int {
	branches, err := repo.Branches()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	var current plumbing.ReferenceName
	if head, err := repo.Reference(plumbing.HEAD, false); err == nil &&
		head.Type() == plumbing.SymbolicReference {
		current = head.Target()
	}

	green := color.New(color.FgGreen)
	for _, b := range branches {
		if b.Name() == current {
			green.Printf("* %s\n", b.Name().Short())
		} else {
			fmt.Printf("  %s\n", b.Name().Short())
		}
	}

	return 0
}

func runTag(repo *repolens.Repository, args []string) int {
	tags, err := repo.Tags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	for _, t := range tags {
		fmt.Println(t.Name().Short())
	}

	return 0
}

func runStash(repo *repolens.Repository, args []string) int {
	stashes, err := repo.Stashes()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	for _, s := range stashes {
		fmt.Printf("stash@{%d}: %s\n", s.Index, s.Message)
	}

	return 0
}

func runWorktree(repo *repolens.Repository, args []string) int {
	worktrees, err := repo.Worktrees()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	for _, wt := range worktrees {
		line := fmt.Sprintf("%-40s", wt.Path)
		if wt.Branch != "" {
			line += " [" + wt.Branch + "]"
		}
		if wt.State != repolens.WorktreeNormal {
			line += " " + wt.State.String()
		}
		fmt.Println(line)
	}

	return 0
}
