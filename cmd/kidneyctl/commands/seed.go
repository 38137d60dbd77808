package commands

import (
	"fmt"
	"os"

	"kidney-story/internal/database"
	"kidney-story/internal/seed"
	"kidney-story/migrations"

	"github.com/spf13/cobra"
)

var (
	adminEmail    string
	adminPassword string
	skipMigrate   bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load reference data",
	Long: `Create the admin account, tags, shop categories and products, forum categories,
dialysis centers and the welcome article. Rows that already exist are left alone,
so seed can be run on every deploy.

Examples:
  kidneyctl seed --admin-password 's3cret-pass'
  SEED_ADMIN_PASSWORD=s3cret-pass kidneyctl seed --env-file .env.production`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password := adminPassword
		if password == "" {
			password = os.Getenv("SEED_ADMIN_PASSWORD")
		}

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		if !skipMigrate {
			if err := database.RunMigrations(db.DB(), migrations.FS, ".", log); err != nil {
				return err
			}
		}

		report, err := seed.New(db.DB(), log).Run(cmd.Context(), seed.Admin{Email: adminEmail, Password: password})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "admin created:     %t\n", report.AdminCreated)
		fmt.Fprintf(out, "tags:              %d\n", report.Tags)
		fmt.Fprintf(out, "categories:        %d\n", report.Categories)
		fmt.Fprintf(out, "products:          %d\n", report.Products)
		fmt.Fprintf(out, "forum categories:  %d\n", report.ForumCategories)
		fmt.Fprintf(out, "centers:           %d\n", report.Centers)
		fmt.Fprintf(out, "welcome article:   %t\n", report.WelcomeArticle)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVar(&adminEmail, "admin-email", "admin@ourkidneystory.com", "Email of the admin account")
	seedCmd.Flags().StringVar(&adminPassword, "admin-password", "", "Password for a newly created admin (default $SEED_ADMIN_PASSWORD)")
	seedCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not apply pending migrations first")
}
