package main

import (
	"aiblame/internal/version"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ai-blame",
	Short: "AI-aware git blame for tracking AI-generated code",
	Long: `ai-blame attributes individual source lines to the AI tool, session, and
prompt that produced them. Edits are captured by agent hooks, staged per
repository, and attached to commits as git notes under refs/notes/ai-blame
so attribution follows normal push and fetch flows.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("ai-blame version {{.Version}}\n")
}
