package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Rrens/neuralizard/internal/llm"
	"github.com/Rrens/neuralizard/internal/service"
)

func newAskCmd() *cobra.Command {
	var (
		provider    string
		model       string
		temperature float64
		category    string
	)

	cmd := &cobra.Command{
		Use:   "ask PROMPT",
		Short: "Send one prompt and log the exchange",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			req := service.CompletionRequest{
				Prompt:   strings.Join(args, " "),
				Provider: provider,
				Model:    model,
				Category: category,
			}
			if cmd.Flags().Changed("temperature") {
				req.Temperature = llm.Temperature(temperature)
			}
			if err := req.Validate(); err != nil {
				return err
			}

			res, id, err := a.completions.Ask(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "#%d %s/%s [%d ms]\n\n", id, res.Provider, res.Model, res.LatencyMs)
			fmt.Fprintln(out, res.Text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "provider name (default from config)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "model name (default per provider)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "tag stored with the logged exchange")
	cmd.Flags().Float64VarP(&temperature, "temperature", "t", llm.DefaultTemperature, "sampling temperature 0..2")
	return cmd
}
