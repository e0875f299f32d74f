package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/wherewasi/wherewasi/internal/store"
)

var importsCmd = &cobra.Command{
	Use:   "imports",
	Short: "Inspect stored imports",
	Long:  "Commands for listing and viewing imported location archives.",
}

// -- imports list --

var importsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List imports, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")

		imports, err := st.ListImports(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "imports list")
		}

		if len(imports) == 0 {
			fmt.Fprintln(os.Stderr, "No imports found.")
			return nil
		}

		formatImportsList(os.Stdout, imports)
		return nil
	},
}

// -- imports show --

var importsShowCmd = &cobra.Command{
	Use:   "show <import-id>",
	Short: "Show full details of an import",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		imp, err := st.GetImport(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "imports show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(imp)
	},
}

func init() {
	importsListCmd.Flags().Int("limit", 50, "max number of imports to display")

	importsCmd.AddCommand(importsListCmd)
	importsCmd.AddCommand(importsShowCmd)
	rootCmd.AddCommand(importsCmd)
}

// formatImportsList writes a tabular list of imports to w.
func formatImportsList(out io.Writer, imports []store.Import) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSOURCE\tPOINTS\tSKIPPED\tCREATED\tSTATUS")
	_, _ = fmt.Fprintln(w, "--\t------\t------\t-------\t-------\t------")

	for _, imp := range imports {
		source := imp.Source
		if len(source) > 30 {
			source = source[:27] + "..."
		}

		status := "importing"
		if imp.Finished() {
			status = "done"
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			truncateID(imp.ID),
			source,
			imp.Points,
			imp.Skipped,
			imp.CreatedAt.Format("2006-01-02 15:04"),
			status,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
