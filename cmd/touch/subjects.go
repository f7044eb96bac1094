package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/stereo-express/touch"
	"github.com/stereo-express/touch/internal/feat/subjects"
	"github.com/stereo-express/touch/pkg/cl/database"
)

var subjectsCmd = &cobra.Command{
	Use:   "subjects",
	Short: "Manage contact subjects",
}

var subjectsSeedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Create or update subjects from a YAML file",
	Long: `Seed reads a subjects YAML file and creates or updates every subject it
lists, keyed by id. The file defaults to subjects.seed_path from the config.

Example:
  touch subjects seed subjects.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Subjects.SeedPath
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return fmt.Errorf("no subjects file given")
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("cannot open subjects file: %w", err)
		}

		db := database.New(touch.MigrationsFS, cfg, log)
		if err := db.Start(cmd.Context()); err != nil {
			return err
		}
		defer db.Stop(cmd.Context())

		return subjects.NewSeeder(subjects.NewRepository(db), path, log).Start(cmd.Context())
	},
}

var subjectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the subjects offered on the form, in display order",
	RunE: func(cmd *cobra.Command, args []string) error {
		db := database.New(touch.MigrationsFS, cfg, log)
		if err := db.Start(cmd.Context()); err != nil {
			return err
		}
		defer db.Stop(cmd.Context())

		provider := subjects.NewProvider(subjects.NewRepository(db), cfg.I18n.Languages, log)
		set := provider.SubjectsInformation(provider.SubjectEntities(cmd.Context(), cfg.I18n.DefaultLanguage))

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tWEIGHT\tMAIL")
		for _, info := range set.Items {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", info.ID, info.Name, info.Weight, recipientColumn(info.Mail))
		}
		return w.Flush()
	},
}

func init() {
	subjectsCmd.AddCommand(subjectsSeedCmd)
	subjectsCmd.AddCommand(subjectsListCmd)
}

// recipientColumn shows where mail for a subject is delivered.
func recipientColumn(mail string) string {
	if mail == "" {
		return "(site)"
	}
	return mail
}
