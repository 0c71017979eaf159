package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/ternarybob/saucedemo/internal/saucedemo"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the declared cases and whether they would run",
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := saucedemo.Plan(config)
		if err != nil {
			return err
		}

		color.Cyan("\n%s (%d cases)\n", saucedemo.Name, len(plan))
		for _, sel := range plan {
			line := saucedemo.Describe(sel.Info)
			if sel.Run {
				fmt.Printf("  %s %s\n", color.GreenString("%-8s", "run"), line)
			} else {
				fmt.Printf("  %s %s %s\n", color.YellowString("%-8s", sel.Status), line, color.WhiteString("(%s)", sel.Reason))
			}
		}
		return nil
	},
}

func init() {
	listCmd.Flags().String("grep", "", "Only list cases whose name matches this regexp as selected")
	listCmd.Flags().Bool("honor-exclusive", false, "When a case is marked only, select just that case")
}
