package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/verity0/verity/internal/agent"
	"github.com/verity0/verity/internal/app"
	"github.com/verity0/verity/internal/config"
)

var askPlain bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single research question in the terminal",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(strings.Join(args, " "))
	},
}

func init() {
	askCmd.Flags().BoolVar(&askPlain, "plain", false, "print the raw answer without markdown rendering")
	rootCmd.AddCommand(askCmd)
}

// runAsk answers one question and renders the result as markdown.
func runAsk(question string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		_ = a.Close(closeCtx)
	}()

	system := agent.SystemPrompt(time.Now())
	answer, err := a.Orchestrator.Answer(ctx, system, nil, question, agent.Events{
		OnTool: func(name string) {
			fmt.Fprintf(os.Stderr, "• %s\n", name)
		},
	})
	if err != nil {
		// The answer still carries a user-facing explanation.
		fmt.Println(answer)
		return err
	}

	if askPlain {
		fmt.Println(answer)
		return nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Println(answer)
		return nil
	}

	rendered, err := renderer.Render(answer)
	if err != nil {
		fmt.Println(answer)
		return nil
	}
	fmt.Print(rendered)
	return nil
}
