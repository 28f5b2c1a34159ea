package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chrissicool/lbc/internal/locks"
)

var locksCmd = &cobra.Command{
	Use:   "locks",
	Short: "Print the active lock family catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalogFromFlags()
		if err != nil {
			return err
		}
		for _, f := range cat.Families() {
			fmt.Printf("%-8s acquire=%-16s release=%s\n", f.Name, f.Acquire, f.Release)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(locksCmd)
}

// catalogFromFlags builds the active catalog from --config and --locks.
func catalogFromFlags() (*locks.Catalog, error) {
	cat := locks.DefaultCatalog()
	if flagConfig != "" {
		loaded, err := locks.LoadCatalog(flagConfig)
		if err != nil {
			return nil, err
		}
		cat = loaded
	}
	if len(flagLocks) > 0 {
		filtered, err := cat.Filter(flagLocks)
		if err != nil {
			return nil, err
		}
		cat = filtered
	}
	return cat, nil
}
