// Command kodactl is the operator tool: schema migrations, admin promotion and purchase checks.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kodamarket/koda/internal/config"
	"github.com/kodamarket/koda/internal/migrate"
	"github.com/kodamarket/koda/internal/model"
	"github.com/kodamarket/koda/internal/repository/postgres"
	"github.com/kodamarket/koda/internal/service"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "kodactl",
		Short:         "Koda marketplace operator tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "optional YAML config file (KODA_* env vars override it)")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		if cfg.Database.DSN == "" {
			return nil, fmt.Errorf("database dsn is required (KODA_DATABASE_DSN)")
		}
		return cfg, nil
	}

	root.AddCommand(migrateCmd(load), makeAdminCmd(load), checkPurchasesCmd(load))
	return root
}

type loader func() (*config.Config, error)

func migrateCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := migrate.Up(ctx, cfg.Database.DSN); err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			v, err := migrate.Version(ctx, cfg.Database.DSN)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", v)
			return nil
		},
	}
}

// accounts opens the database and returns the account service with a close func.
func accounts(ctx context.Context, cfg *config.Config) (service.AccountService, func(), error) {
	db, err := postgres.New(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	svc := service.NewAccountService(postgres.NewUserRepo(db), postgres.NewPurchaseRepo(db), nil, "", zap.NewNop())
	return svc, db.Close, nil
}

func makeAdminCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "make-admin <user-id-or-email>",
		Short: "Grant the admin role to a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			svc, closeDB, err := accounts(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			u, err := svc.MakeAdmin(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("make-admin %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now %s\n", u.ID, u.Email, u.Role)
			return nil
		},
	}
}

func checkPurchasesCmd(load loader) *cobra.Command {
	var (
		buyer  string
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "check-purchases",
		Short: "List the most recent purchases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			svc, closeDB, err := accounts(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			list, err := svc.RecentPurchases(cmd.Context(), buyer, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), list)
			}
			return printPurchases(cmd.OutOrStdout(), list)
		},
	}
	cmd.Flags().StringVar(&buyer, "buyer", "", "only purchases of this buyer id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum rows")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printPurchases(w io.Writer, list []model.PurchaseView) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "no purchases")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tBUYER\tSELLER\tPRODUCT\tAMOUNT")
	for _, p := range list {
		title := p.ProductTitle
		if p.ProductDeleted {
			title = "(deleted) " + p.ProductID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			p.CreatedAt.UTC().Format("2006-01-02 15:04"), p.BuyerID, p.SellerID, title, p.Amount.StringFixed(2))
	}
	return tw.Flush()
}
