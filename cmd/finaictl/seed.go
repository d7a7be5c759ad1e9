package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fmmarmello/finAI/internal/database"
	"github.com/fmmarmello/finAI/internal/repository"
)

func seedCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Заполнить аккаунт демонстрационными данными",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email = strings.ToLower(strings.TrimSpace(email))
			if email == "" {
				return errors.New("--email is required")
			}

			ctx := cmd.Context()
			db, err := database.Open(ctx, cfg.Database, slog.Default())
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()

			user, err := repository.NewUserRepository(db).GetByEmail(ctx, email)
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("user %s not found", email)
			}
			if err != nil {
				return err
			}

			result, err := repository.SeedSampleData(ctx, db, user.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d transaction(s) and %d budget(s) for %s\n", result.Transactions, result.Budgets, email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")

	return cmd
}
