package cmd

import (
	"github.com/huangsam/querylens/core"
	"github.com/huangsam/querylens/internal/contract"
	"github.com/spf13/cobra"
)

// rulesCmd displays the detection policy.
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List every detection rule with its severity and recommended action",
	Long: `Show the policy table used to classify findings.

No query history is read - this is purely informational.

Examples:
  # Show the policy
  querylens rules

  # Export the policy for documentation
  querylens rules --output csv --output-file rules.csv`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteRules(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot display rules", err)
		}
	},
}
