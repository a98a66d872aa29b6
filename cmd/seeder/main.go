package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/foxxcyber/household/internal/config"
	"github.com/foxxcyber/household/internal/database"
	"github.com/foxxcyber/household/internal/logging"
	"github.com/foxxcyber/household/internal/middleware"
	"github.com/foxxcyber/household/internal/models"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		name     string
		email    string
		password string
		lists    bool
	)

	cmd := &cobra.Command{
		Use:   "seeder",
		Short: "Create a demo user with grocery lists and print a token for it",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg := config.Load()
			return seed(cmd.Context(), cfg, name, email, password, lists)
		},
	}

	cmd.Flags().StringVar(&name, "name", "Demo User", "Name of the demo user")
	cmd.Flags().StringVar(&email, "email", "demo@example.com", "Email of the demo user")
	cmd.Flags().StringVar(&password, "password", "password", "Password of the demo user")
	cmd.Flags().BoolVar(&lists, "lists", true, "Create demo grocery lists for a new user")

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg := config.Load()
			return database.RunMigrations(cfg.DatabaseURL, logging.New(cfg.LogLevel))
		},
	})

	return cmd
}

var demoLists = []models.CreateListRequest{
	{
		Name: "Weekly groceries",
		Items: []models.CreateListItemData{
			{Name: "Milk", Quantity: floatPtr(2), Unit: strPtr("l")},
			{Name: "Eggs", Quantity: floatPtr(12)},
			{Name: "Bread"},
			{Name: "Apples", Quantity: floatPtr(1.5), Unit: strPtr("kg"), Notes: strPtr("Green if possible")},
		},
	},
	{
		Name: "Hardware store",
		Items: []models.CreateListItemData{
			{Name: "Light bulbs", Quantity: floatPtr(4)},
			{Name: "Duct tape"},
		},
	},
}

func seed(ctx context.Context, cfg *config.Config, name, email, password string, withLists bool) error {
	log := logging.New(cfg.LogLevel)

	if err := database.RunMigrations(cfg.DatabaseURL, log); err != nil {
		return err
	}

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := db.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		log.WithField("email", email).Info("Demo user already exists")
	case errors.Is(err, database.ErrUserNotFound):
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user, err = db.CreateUser(ctx, name, email, string(hash))
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		log.WithField("email", email).Info("Demo user created")

		if withLists {
			for i := range demoLists {
				list, err := db.CreateGroceryList(ctx, user.ID, &demoLists[i])
				if err != nil {
					return fmt.Errorf("failed to create list %q: %w", demoLists[i].Name, err)
				}
				log.WithFields(logrus.Fields{"list_id": list.ID, "items": len(list.Items)}).Info("Demo list created")
			}
		}
	default:
		return fmt.Errorf("failed to look up user: %w", err)
	}

	token, err := middleware.GenerateToken(cfg, user.ID, user.Email)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	fmt.Println(token)
	return nil
}

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }
