package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/repolens/repolens"
	"github.com/repolens/repolens/plumbing"
)

func runCatFile(ctx context.Context, repo *repolens.Repository, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: repolens cat-file (-t|-p) <hash>")
		return 2
	}

	mode, rev := args[0], args[1]

	hash, err := plumbing.FromHex(rev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: not a valid object name %q\n", rev)
		return 128
	}

	body, typ, err := repo.OpenRawObject(ctx, hash)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}
	defer body.Close()

	switch mode {
	case "-t":
		fmt.Println(typ)
	case "-p":
		if _, err := io.Copy(os.Stdout, body); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			return 128
		}
	default:
		fmt.Fprintf(os.Stderr, "error: unknown flag %q\n", mode)
		return 2
	}

	return 0
}
