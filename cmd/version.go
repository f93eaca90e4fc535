package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVersion()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion() error {
	fmt.Printf("Verity %s\n", AppVersion)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Println()

	printKeyStatus("GEMINI_API_KEY")
	printKeyStatus("TAVILY_API_KEY")
	return nil
}

// printKeyStatus reports whether a credential is configured without
// printing it.
func printKeyStatus(name string) {
	key := os.Getenv(name)
	if len(key) >= 8 {
		fmt.Printf("%s: %s...%s (configured)\n", name, key[:4], key[len(key)-4:])
		return
	}
	if key != "" {
		fmt.Printf("%s: (configured)\n", name)
		return
	}
	fmt.Printf("%s: not set\n", name)
}
