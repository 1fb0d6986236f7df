package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/easyfiletransfer/eft/internal/models"
	"github.com/easyfiletransfer/eft/internal/state"
	"github.com/easyfiletransfer/eft/internal/util/filter"
	strutil "github.com/easyfiletransfer/eft/internal/util/strings"
)

// newLoginCmd creates the 'login' command.
func newLoginCmd() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and show the file list",
		Long: `Log in with the saved session (or the --server/--username/--password
overrides) and print the files on the server.

Use --save to store the overrides in the settings file after a
successful login.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loginSession()
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			creds := s.store.Credentials()
			fmt.Fprintf(out, "✓ Logged in to %s as %s\n", creds.ServerURL, creds.Username)
			if !creds.IsSecure() {
				fmt.Fprintln(out, "  Warning: the server URL is not https; the password is sent unencrypted.")
			}

			if save {
				if err := s.store.Save(); err != nil {
					return fmt.Errorf("failed to save settings: %w", err)
				}
				fmt.Fprintf(out, "✓ Session saved to %s\n", s.store.Path())
			}

			fmt.Fprintln(out)
			printCatalog(out, s.engine.Catalog().Items())
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Save the session to the settings file")

	return cmd
}

// newListCmd creates the 'ls' command.
func newListCmd() *cobra.Command {
	var asJSON bool
	var sortBy string
	var descending bool
	var includePatterns, excludePatterns, searchTerms string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List files on the server",
		Long: `List the files stored on the server.

Examples:
  # List in server order
  eft ls

  # Largest first
  eft ls --sort size --desc

  # Only data files, skipping temporaries
  eft ls --include "*.dat" --exclude "tmp*"

  # Names containing "results"
  eft ls --search results

  # Machine-readable
  eft ls --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch sortBy {
			case state.SortNone, state.SortName, state.SortSize, state.SortDate:
			default:
				return fmt.Errorf("invalid --sort %q (use name, size or date)", sortBy)
			}

			s, err := loginSession()
			if err != nil {
				return err
			}
			defer s.Close()

			all := s.engine.Catalog().Sorted(sortBy, !descending)
			files := filter.Apply(all, filter.Config{
				Include: filter.ParsePatternList(includePatterns),
				Exclude: filter.ParsePatternList(excludePatterns),
				Search:  filter.ParsePatternList(searchTerms),
			})

			out := cmd.OutOrStdout()
			if asJSON {
				if files == nil {
					files = []models.FileRecord{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(files)
			}
			if len(files) < len(all) {
				fmt.Fprintf(out, "Filtered: %d of %d files match\n", len(files), len(all))
			}
			printCatalog(out, files)
			return nil
		},
	}

	cmd.Flags().StringVar(&includePatterns, "include", "", "Include only names matching these patterns (comma-separated globs)")
	cmd.Flags().StringVar(&excludePatterns, "exclude", "", "Exclude names matching these patterns (comma-separated globs)")
	cmd.Flags().StringVar(&searchTerms, "search", "", "Include only names containing all these terms (comma-separated, case-insensitive)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the list as JSON")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort by name, size or date")
	cmd.Flags().BoolVar(&descending, "desc", false, "Sort descending")

	return cmd
}

// newDeleteCmd creates the 'rm' command.
func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm <name> [name...]",
		Aliases: []string{"delete"},
		Short:   "Delete files from the server",
		Long: `Delete files by name. Each file is a separate request; a failed delete
does not stop the others. The list is refreshed once afterwards.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loginSession()
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			results, err := s.engine.Delete(GetContext(), args...)
			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					fmt.Fprintf(out, "✗ %s: %v\n", r.FileName, r.Err)
					continue
				}
				fmt.Fprintf(out, "✓ Deleted %s\n", r.FileName)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(out)
			printCatalog(out, s.engine.Catalog().Items())

			if failed > 0 {
				return fmt.Errorf("%d of %d deletes failed", failed, len(args))
			}
			return nil
		},
	}

	return cmd
}

// printCatalog prints the file list as a table.
func printCatalog(w io.Writer, files []models.FileRecord) {
	if len(files) == 0 {
		fmt.Fprintln(w, "No files found")
		return
	}

	fmt.Fprintf(w, "Found %s:\n\n", strutil.CountNoun(int64(len(files)), "file"))
	fmt.Fprintf(w, "%-40s %15s   %s\n", "NAME", "SIZE", "MODIFIED")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, f := range files {
		fmt.Fprintf(w, "%-40s %12.0f KB   %s\n", f.Name, f.SizeKB(), f.LastModified)
	}
}
