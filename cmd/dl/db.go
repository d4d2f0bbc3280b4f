package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/desklinehq/deskline/internal/config"
	"github.com/desklinehq/deskline/internal/db"
	"github.com/desklinehq/deskline/internal/sla"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Deskline database",
		Long:  "Creates the MySQL database and migrates all tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "deskline.yaml", "path to Deskline config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fmt.Fprintf(out, "Loaded config for team %q from %s\n", cfg.Team, configPath)

	adminDB, err := db.ConnectAdmin(connOpts(cfg))
	if err != nil {
		return fmt.Errorf("connect to MySQL at %s:%d: %w", cfg.MySQL.Host, cfg.MySQL.Port, err)
	}
	fmt.Fprintf(out, "Connected to MySQL at %s:%d\n", cfg.MySQL.Host, cfg.MySQL.Port)

	if err := db.CreateDatabase(adminDB, cfg.MySQL.Database); err != nil {
		return err
	}
	fmt.Fprintf(out, "Database %s ready\n", cfg.MySQL.Database)

	gormDB, err := db.Connect(connOpts(cfg))
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.MySQL.Database, err)
	}

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	fmt.Fprintln(out, "\nDeskline database initialized successfully.")
	return nil
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and re-initialize the Deskline database",
		Long:  "Drops the Deskline database, then re-creates and migrates it. All assignment history is lost.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "deskline.yaml", "path to Deskline config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, skipConfirm bool) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fmt.Fprintf(out, "Loaded config for team %q from %s\n", cfg.Team, configPath)

	if !skipConfirm && !confirmReset(cmd, cfg.MySQL.Database) {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	adminDB, err := db.ConnectAdmin(connOpts(cfg))
	if err != nil {
		return fmt.Errorf("connect to MySQL at %s:%d: %w", cfg.MySQL.Host, cfg.MySQL.Port, err)
	}

	if err := db.DropDatabase(adminDB, cfg.MySQL.Database); err != nil {
		return err
	}
	fmt.Fprintf(out, "Dropped database %s\n", cfg.MySQL.Database)

	if err := db.CreateDatabase(adminDB, cfg.MySQL.Database); err != nil {
		return err
	}
	fmt.Fprintf(out, "Database %s re-created\n", cfg.MySQL.Database)

	gormDB, err := db.Connect(connOpts(cfg))
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.MySQL.Database, err)
	}

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	fmt.Fprintln(out, "\nDeskline database reset successfully.")
	return nil
}

func confirmReset(cmd *cobra.Command, dbName string) bool {
	out := cmd.OutOrStdout()
	in := cmd.InOrStdin()

	fmt.Fprintf(out, "WARNING: This will permanently delete all data in database %q.\n", dbName)
	fmt.Fprintln(out, "This action cannot be undone.")
	fmt.Fprintln(out)
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes"
	}
	return false
}

// connOpts maps config to db connection options.
func connOpts(cfg *config.Config) db.ConnOpts {
	return db.ConnOpts{
		Host:     cfg.MySQL.Host,
		Port:     cfg.MySQL.Port,
		User:     cfg.MySQL.User,
		Password: cfg.MySQL.Password,
		Database: cfg.MySQL.Database,
	}
}

// connectFromConfig loads config and opens the Deskline database.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(connOpts(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", cfg.MySQL.Database, err)
	}

	return cfg, gormDB, nil
}

// policyFromConfig builds the SLA policy with any configured overrides.
func policyFromConfig(cfg *config.Config) sla.Policy {
	return sla.Default().Merge(cfg.SLAOverrides())
}
