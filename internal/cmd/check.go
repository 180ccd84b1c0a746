package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var checkCmd = cobra.Command{
	Use:   "check",
	Short: "Validate that the rule set covers the full day",
	RunE:  check,
}

func check(cmd *cobra.Command, _ []string) error {
	resolver, err := loadResolver(newLogger())
	if err != nil {
		return err
	}
	gaps := resolver.CoverageGaps(time.Now())
	if len(gaps) == 0 {
		cmd.Println("rule set covers the full day")
		return nil
	}
	for _, gap := range gaps {
		cmd.Printf("no rule matches %s\n", gap.Format("15:04"))
	}
	return fmt.Errorf("%d minute(s) of the day not covered", len(gaps))
}
