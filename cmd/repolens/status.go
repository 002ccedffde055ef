package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/repolens/repolens"
)

func runStatus(ctx context.Context, repo *repolens.Repository, args []string) int {
	st, err := repo.Status(ctx, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	if st.IsClean() {
		fmt.Println("nothing to commit, working tree clean")
		return 0
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	if len(st.Staged) > 0 {
		fmt.Println("Changes to be committed:")
		for _, e := range st.Staged {
			green.Printf("\t%s:   %s\n", e.Code, e.Path)
		}
		fmt.Println()
	}

	if len(st.Unstaged) > 0 {
		fmt.Println("Changes not staged for commit:")
		for _, e := range st.Unstaged {
			red.Printf("\t%s:   %s\n", e.Code, e.Path)
		}
		fmt.Println()
	}

	if len(st.Untracked) > 0 {
		fmt.Println("Untracked files:")
		for _, e := range st.Untracked {
			red.Printf("\t%s\n", e.Path)
		}
	}

	return 0
}
