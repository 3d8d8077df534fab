package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"
)

const logPreview = 80

func newLogCmd() *cobra.Command {
	var last int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			msgs, err := a.completions.Recent(cmd.Context(), last)
			if err != nil {
				return err
			}
			if len(msgs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No messages yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tROLE\tPROVIDER/MODEL\tCREATED\tCONTENT")
			for _, m := range msgs {
				content := clip(m.Content, logPreview)
				if m.Error != "" {
					content += " [error: " + m.Error + "]"
				}
				fmt.Fprintf(w, "#%d\t%s\t%s/%s\t%s\t%s\n",
					m.ID, m.Role, orDash(m.Provider), orDash(m.Model),
					m.CreatedAt.Local().Format("2006-01-02 15:04"), content)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&last, "last", "n", 10, "number of messages to show")
	return cmd
}

func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
