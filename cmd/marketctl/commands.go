package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/whomimohshukla/freelancehub/internal/config"
	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/internal/services/gateway"
	"gopkg.in/yaml.v3"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := openDB(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert default skills, prompt templates, settings and the admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		if err := models.SeedDB(db); err != nil {
			return fmt.Errorf("seed defaults: %w", err)
		}
		if err := services.NewAuthService(db, &cfg.JWT, &cfg.LDAP).CreateAdminIfNotExists(); err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "seed complete")
		return nil
	},
}

var escrowCmd = &cobra.Command{
	Use:   "escrow",
	Short: "Escrow maintenance",
}

var escrowSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Release every payment whose holding period is over",
	Long: `Runs one escrow sweep now, the same job the server schedules.

The sweep takes the daily lock, so it reports "locked" when a server
instance is sweeping the same day.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		services.InitSystemLogger(db)
		services.RegisterEmailTaskHandler(&cfg.SMTP)
		services.RegisterAlertTaskHandler(db)
		queue := services.InitTaskQueue(cfg)
		defer queue.Close()

		alerts := services.NewAlertService(db)
		notifier := services.NewNotificationService(db, services.NewEmailService(&cfg.SMTP))
		payments := services.NewPaymentService(db, gateway.New(cfg), cfg, notifier, alerts)
		escrow := services.NewEscrowService(db, payments, alerts, &cfg.Escrow)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := escrow.Sweep(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "User administration",
}

var usersPromoteCmd = &cobra.Command{
	Use:   "promote <email>",
	Short: "Give an existing account the admin role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		user, err := services.NewUserService(db).PromoteByEmail(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %d (%s) is now %s\n", user.ID, user.Email, user.Role)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the effective configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := yaml.Marshal(maskedConfig(cfg))
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

const secretMask = "******"

func mask(s string) string {
	if s == "" {
		return ""
	}
	return secretMask
}

// maskedConfig returns a copy of c safe to print
func maskedConfig(c *config.Config) config.Config {
	m := *c
	m.JWT.Secret = mask(m.JWT.Secret)
	m.LDAP.BindPassword = mask(m.LDAP.BindPassword)
	m.OpenAI.APIKey = mask(m.OpenAI.APIKey)
	m.Redis.Password = mask(m.Redis.Password)
	m.Payment.KeySecret = mask(m.Payment.KeySecret)
	m.Payment.WebhookSecret = mask(m.Payment.WebhookSecret)
	m.SMTP.Password = mask(m.SMTP.Password)
	if m.Database.Driver != "sqlite" {
		m.Database.DSN = mask(m.Database.DSN)
	}
	m.AMQP.URL = mask(m.AMQP.URL)
	return m
}
