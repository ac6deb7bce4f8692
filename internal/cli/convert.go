package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sctools-db/dbconvert/pkg/config"
	"github.com/sctools-db/dbconvert/pkg/errors"
	"github.com/sctools-db/dbconvert/pkg/output"
	"github.com/sctools-db/dbconvert/pkg/pipeline"
)

// convertCommand creates the convert command, the main entry point of the
// tool.
func (c *CLI) convertCommand() *cobra.Command {
	var (
		configPath string
		outputDir  string
		mailto     string
		noCache    bool
		refresh    bool
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Run the full CSV-to-database conversion",
		Long: `Convert loads the wide tool CSV, reshapes it into narrow tables, enriches
every DOI against Crossref, arXiv and OpenCitations, scrapes the Bioconductor,
CRAN, PyPI and Anaconda package indexes, and writes the resulting tables as
tab-delimited files.

Without a config file the default paths are used; see the repository README
for the config format.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if outputDir != "" {
				cfg.Paths.Output = outputDir
			}
			if mailto != "" {
				cfg.Network.Mailto = mailto
			}

			runner, err := c.newRunner(noCache)
			if err != nil {
				return err
			}

			p := newProgress(c.Logger)
			result, err := runner.Execute(cmd.Context(), pipeline.Options{
				Config:  cfg,
				Refresh: refresh,
			})
			if err != nil {
				// The log already carries the full chain; show the user the
				// short message once instead of cobra's raw error line.
				cmd.SilenceErrors = true
				printError("Conversion failed: %s", errors.UserMessage(err))
				return err
			}
			p.done(fmt.Sprintf("Converted %d tools", result.Stats.Tools))

			printSuccess("Database written to %s", result.OutputDir)
			printDetail("%d tools, %d category links, %d references, %d registry packages",
				result.Stats.Tools, result.Stats.Categories,
				result.Stats.References, result.Stats.Packages)
			for _, name := range []string{
				output.FileTools, output.FileCategoryIdx, output.FileDOIIdx,
				output.FileReferences, output.FilePackages,
				output.FileRepositories, output.FileIgnored, output.FileCategories,
			} {
				printFile(filepath.Join(result.OutputDir, name))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (overrides config)")
	cmd.Flags().StringVar(&mailto, "mailto", "", "contact address sent to the metadata services")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the HTTP response cache")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass cached HTTP responses")

	return cmd
}
