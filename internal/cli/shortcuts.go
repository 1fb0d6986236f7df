package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AddShortcuts adds the transfer commands to the root command.
func AddShortcuts(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newUploadShortcut())
	rootCmd.AddCommand(newDownloadShortcut())
}

// newUploadShortcut creates the 'upload' command.
func newUploadShortcut() *cobra.Command {
	var stdinName string

	cmd := &cobra.Command{
		Use:     "upload <file> [file...]",
		Aliases: []string{"up"},
		Short:   "Upload files",
		Long: `Upload files to the server. Every file is sent as its own request and
all of them run at once; one failure does not stop the others. The file
list is refreshed after each successful upload.

Use "-" to upload standard input as an image. It is named after --name,
with ".jpg" appended when the name has no extension.

Examples:
  eft upload report.pdf data.csv
  eft upload "*.log"
  cat photo | eft upload - --name holiday`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := expandGlobPatterns(args)
			if err != nil {
				return err
			}
			sources, err := buildSources(paths, cmd.InOrStdin(), stdinName)
			if err != nil {
				return err
			}

			s, err := loginSession()
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			uploadErr := executeFileUpload(GetContext(), s, sources, out)

			fmt.Fprintln(out)
			printCatalog(out, s.engine.Catalog().Items())
			return uploadErr
		},
	}

	cmd.Flags().StringVar(&stdinName, "name", "", "Name for an upload read from standard input")

	return cmd
}

// newDownloadShortcut creates the 'download' command.
func newDownloadShortcut() *cobra.Command {
	var outputDir string
	var force bool

	cmd := &cobra.Command{
		Use:     "download <name>",
		Aliases: []string{"dl"},
		Short:   "Download a file",
		Long: `Download one file into the staging directory (see 'eft config show').
With --out the finished file is moved to that directory instead.

Examples:
  eft download report.pdf
  eft download report.pdf --out ~/Downloads`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loginSession()
			if err != nil {
				return err
			}
			defer s.Close()

			if _, ok := s.engine.Catalog().Find(args[0]); !ok {
				GetLogger().Warn().Str("file", args[0]).Msg("File is not in the server list; size will be unknown")
			}

			out := cmd.OutOrStdout()
			path, err := executeFileDownload(GetContext(), s, args[0], outputDir, force, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "out", "o", "", "Move the downloaded file to this directory")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file in --out")

	return cmd
}

