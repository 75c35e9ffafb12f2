package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const Version = "0.1.0"

// newRootCmd builds the command tree with its own viper instance.
func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "syncperf",
		Short: "read-mostly map benchmarks",
		Long: fmt.Sprintf(`syncperf (v%s)

Measures throughput of the concurrent maps in this module against
sync.Map and xsync.MapOf under a configurable read/write mix.`, Version),
		SilenceUsage: true,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of syncperf",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("syncperf v%s\n", Version)
		},
	}

	root.AddCommand(newRunCmd(v))
	root.AddCommand(versionCmd)

	return root
}

// wrapString wraps flag help text at wrapWidth characters.
func wrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		if lineWidth > 0 && lineWidth+1+len(word) > wrapWidth {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += len(word)
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

const wrapWidth = 50
