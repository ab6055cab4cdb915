package cli

import (
	"fmt"

	"exam-progress-service/internal/config"
	"exam-progress-service/internal/infra/file"
	"exam-progress-service/internal/infra/postgres"
	"exam-progress-service/internal/logger"
	"github.com/spf13/cobra"
)

// NewSeedCmd imports a bank file into the questions table.
func NewSeedCmd(configPath *string) *cobra.Command {
	var bankPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import a question bank file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			if bankPath == "" {
				bankPath = cfg.Bank.Path
			}
			if bankPath == "" {
				return fmt.Errorf("no bank file given; use --bank or bank.path")
			}
			log, err := logger.New(cfg.Log.Mode)
			if err != nil {
				return err
			}
			defer log.Sync()

			bank, err := file.NewBankLoader(bankPath).LoadBank(cmd.Context())
			if err != nil {
				return err
			}

			db := postgres.OpenBun(cfg.Postgres.URL)
			defer db.Close()
			if _, err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			n, err := postgres.SeedBank(cmd.Context(), db, bank)
			if err != nil {
				return err
			}
			log.Info("bank seeded", "questions", n, "source", bankPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&bankPath, "bank", "", "path to a JSON or YAML bank file")
	return cmd
}
