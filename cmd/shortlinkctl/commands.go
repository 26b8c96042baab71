package main

import (
	"fmt"
	"time"

	"shortlink/internal/config"
	"shortlink/internal/service"

	"github.com/spf13/cobra"
)

func newCreateCmd(c *cli) *cobra.Command {
	var (
		longURL string
		alias   string
		expires string
		owner   string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a short link for a long URL.",
		Example: `  shortlinkctl create --url="https://go.dev/doc/"
  shortlinkctl create --url="https://go.dev/blog/" --alias=goblog --expires=2030-01-01T00:00:00Z`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := service.ValidateTargetURL(longURL); err != nil {
				return err
			}
			if err := service.ValidateAlias(alias); err != nil {
				return err
			}

			req := service.AllocateRequest{TargetURL: longURL, CustomAlias: alias}
			if expires != "" {
				at, err := time.Parse(time.RFC3339, expires)
				if err != nil {
					return fmt.Errorf("invalid --expires: %w", err)
				}
				req.ExpiresAt = &at
			}
			if owner != "" {
				req.OwnerID = &owner
			}

			code, err := c.shortener().Allocate(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Short code: %s\n", code)
			fmt.Fprintf(out, "Short URL: %s\n", service.ShortURL(c.cfg.BaseURL, code))
			fmt.Fprintf(out, "Long URL: %s\n", longURL)
			return nil
		},
	}

	cmd.Flags().StringVarP(&longURL, "url", "u", "", "long URL to shorten")
	cmd.Flags().StringVarP(&alias, "alias", "a", "", "custom short code")
	cmd.Flags().StringVar(&expires, "expires", "", "expiry time (RFC3339)")
	cmd.Flags().StringVar(&owner, "owner", "", "owner id stored with the link")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newStatsCmd(c *cli) *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the stored record and click count of a short code.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			link, err := c.shortener().GetRecord(cmd.Context(), code)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Short code: %s\n", link.Code)
			fmt.Fprintf(out, "Long URL: %s\n", link.TargetURL)
			fmt.Fprintf(out, "Created: %s\n", link.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(out, "Clicks: %d\n", link.ClickCount)
			if link.LastAccessedAt != nil {
				fmt.Fprintf(out, "Last access: %s\n", link.LastAccessedAt.Format(time.RFC3339))
			} else {
				fmt.Fprintln(out, "Last access: never")
			}
			if link.ExpiresAt != nil {
				fmt.Fprintf(out, "Expires: %s\n", link.ExpiresAt.Format(time.RFC3339))
			}
			if link.OwnerID != nil {
				fmt.Fprintf(out, "Owner: %s\n", *link.OwnerID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&code, "code", "c", "", "short code to inspect")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func newResolveCmd(c *cli) *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a short code, counting it as a click.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := c.shortener().Resolve(cmd.Context(), code)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&code, "code", "c", "", "short code to resolve")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema for SQL stores.",
		Long:  "Opening a postgres, sqlite or mysql store applies pending schema changes; this command does only that.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), migrateMessage(c.cfg.StoreDriver))
			return nil
		},
	}
}

func migrateMessage(driver string) string {
	switch driver {
	case config.DriverPostgres, config.DriverSQLite, config.DriverMySQL:
		return fmt.Sprintf("Schema for %s store is up to date", driver)
	default:
		return fmt.Sprintf("The %s store has no schema, nothing to migrate", driver)
	}
}
