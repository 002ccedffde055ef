package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/repolens/repolens"
	"github.com/repolens/repolens/plumbing"
)

func runLog(ctx context.Context, repo *repolens.Repository, args []string) int {
	flags := pflag.NewFlagSet("log", pflag.ExitOnError)
	oneline := flags.Bool("oneline", false, "one commit per line")
	limit := flags.IntP("max-count", "n", 0, "limit the number of commits")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	iter, err := repo.Log(ctx, plumbing.ZeroHash)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	yellow := color.New(color.FgYellow)

	count := 0
	for {
		c, err := iter.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			return 128
		}

		if *oneline {
			yellow.Printf("%s", c.Hash.String()[:7])
			fmt.Printf(" %s\n", c.Summary())
		} else {
			yellow.Printf("commit %s\n", c.Hash)
			fmt.Printf("Author: %s\n", c.Author)
			fmt.Printf("Date:   %s\n\n", c.Author.When.Format("Mon Jan 2 15:04:05 2006 -0700"))
			for _, line := range strings.Split(strings.TrimRight(c.Message, "\n"), "\n") {
				fmt.Printf("    %s\n", line)
			}
			fmt.Println()
		}

		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}

	return 0
}
