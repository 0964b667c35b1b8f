package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"routemap/internal/errors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// printError shows the message and, for coded errors, the suggested fixes.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	var coded *errors.Error
	if !stderrors.As(err, &coded) || len(coded.SuggestedFixes) == 0 {
		return
	}
	fmt.Fprintln(os.Stderr, "\nSuggested fixes:")
	for _, fix := range coded.SuggestedFixes {
		switch {
		case fix.Command != "":
			fmt.Fprintf(os.Stderr, "  %s  # %s\n", fix.Command, fix.Description)
		case fix.URL != "":
			fmt.Fprintf(os.Stderr, "  %s  (%s)\n", fix.Description, fix.URL)
		default:
			fmt.Fprintf(os.Stderr, "  %s\n", fix.Description)
		}
	}
}
