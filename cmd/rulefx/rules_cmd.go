package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oxhq/rulefx/rules"
)

func newRulesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the available rules with their resolved options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := rules.Registry()
			cfg, err := a.loadConfig(reg)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for i, rule := range reg.Rules() {
				if i > 0 {
					fmt.Fprintln(w)
				}
				rc := cfg.Rule(rule.Name())
				state := "enabled"
				if !rc.Enabled {
					state = "disabled"
				}
				fmt.Fprintf(w, "%s (%s)\n", rule.Name(), state)
				fmt.Fprintf(w, "  %s\n", rule.Description())

				values := rc.Options.Map()
				for _, spec := range rule.Options() {
					fmt.Fprintf(w, "  %s: %v (%s, default %v)\n", spec.Name, values[spec.Name], spec.Type, spec.Default)
					if spec.Description != "" {
						fmt.Fprintf(w, "      %s\n", spec.Description)
					}
				}
				if len(rc.Exclude) > 0 {
					fmt.Fprintf(w, "  Exclude: %v\n", rc.Exclude)
				}
			}
			return nil
		},
	}
}
