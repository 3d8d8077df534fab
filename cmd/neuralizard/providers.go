package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List providers and whether they are configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			router := newRouter(cfg.LLM)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tCONFIGURED\tDEFAULT MODEL\tMODELS")
			for _, info := range router.Info() {
				name := info.Name
				if info.Default {
					name += " *"
				}
				configured := "no"
				if info.Configured {
					configured = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, configured, info.DefaultModel, strings.Join(info.Models, ", "))
			}
			return w.Flush()
		},
	}
}
