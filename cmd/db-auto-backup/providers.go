package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shyim/db-auto-backup/internal/provider"
	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the built-in backup providers",
	Long:  "List the backup providers, the image patterns they match and the file extension they produce. Providers are tried in this order.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tEXTENSION\tPATTERNS")
		for _, p := range provider.Builtin() {
			fmt.Fprintf(w, "%s\t.%s\t%s\n", p.Name, p.FileExtension, strings.Join(p.Patterns, ", "))
		}
		return w.Flush()
	},
}
