package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Rrens/neuralizard/internal/domain"
	"github.com/Rrens/neuralizard/internal/service"
)

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newChatCmd() *cobra.Command {
	var (
		provider string
		model    string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive streaming chat",
		Long:  "Streams replies token by token. Type /clear to reset context, exit or quit to leave. Every turn is saved.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.provider(provider)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			out := cmd.OutOrStdout()
			interactive := isTerminal(in)

			modelName := model
			if modelName == "" {
				modelName = p.DefaultModel()
			}
			fmt.Fprintf(out, "Chat started with %s (%s)\n", p.Name(), modelName)
			fmt.Fprintln(out, "Type 'exit' to quit. Use '/clear' to reset context.")

			window := service.NewWindow(a.cfg.Session.ContextWindow)
			conversationID := uuid.Nil
			scanner := bufio.NewScanner(in)

			for {
				if interactive {
					fmt.Fprint(out, "You: ")
				}
				if !scanner.Scan() {
					break
				}

				line := strings.TrimSpace(scanner.Text())
				switch {
				case line == "":
					continue
				case strings.EqualFold(line, "exit"), strings.EqualFold(line, "quit"):
					fmt.Fprintln(out, "Goodbye!")
					return nil
				case line == "/clear":
					window.Reset()
					conversationID = uuid.Nil
					fmt.Fprintln(out, "Context cleared.")
					continue
				}

				prompt := window.Transcript(line)
				window.Append(domain.RoleUser, line)

				fmt.Fprintf(out, "%s: ", p.Name())
				res, err := a.completions.Stream(cmd.Context(), p, service.CompletionRequest{
					Prompt: prompt,
					Model:  model,
				}, out)
				fmt.Fprint(out, "\n\n")
				if err != nil {
					return err
				}

				reply := strings.TrimSpace(res.Text)
				errText := ""
				if res.Err != nil {
					errText = res.Err.Error()
				} else if reply != "" {
					window.Append(domain.RoleAssistant, reply)
				}

				convID, id, err := a.completions.Record(cmd.Context(), service.Exchange{
					ConversationID: conversationID,
					Provider:       res.Provider,
					Model:          res.Model,
					Prompt:         line,
					Reply:          reply,
					ResponseTokens: res.Tokens,
					Latency:        res.Latency,
					FirstToken:     res.FirstToken,
					Error:          errText,
				})
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
					continue
				}
				conversationID = convID
				fmt.Fprintf(out, "Saved as message #%d\n", id)
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "provider name (default from config)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "model name (default per provider)")
	return cmd
}
