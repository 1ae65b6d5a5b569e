package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/antigravity/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/antigravity/internal/application"
	"github.com/ericfisherdev/antigravity/internal/config"
	"github.com/ericfisherdev/antigravity/internal/domain/model"
)

// session is an opened database plus the services built on it.
type session struct {
	db     *sqliteadapter.DB
	schema uint
	keys   *application.KeyRegistry
	jobs   *sqliteadapter.JobRepo
	policy model.ActivationPolicy
}

// options holds the persistent flags shared by every subcommand.
type options struct {
	dbPath string
	policy string
	logger *slog.Logger
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	opts := &options{logger: logger}

	root := &cobra.Command{
		Use:          "keyctl",
		Short:        "Manage antigravity API keys",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("db") {
				opts.dbPath = cfg.DBPath
			}
			if !cmd.Flags().Changed("policy") {
				opts.policy = string(cfg.ActivationPolicy)
			}
			if !model.ActivationPolicy(opts.policy).Valid() {
				return fmt.Errorf("invalid --policy %q", opts.policy)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (default $ANTIGRAVITY_DB_PATH or antigravity.db)")
	root.PersistentFlags().StringVar(&opts.policy, "policy", "", "activation policy when removing the active key: none or promote-first")

	root.AddCommand(
		newListCmd(opts),
		newAddCmd(opts),
		newRemoveCmd(opts),
		newActivateCmd(opts),
		newStatusCmd(opts),
	)
	return root
}

// withSession opens the database, runs migrations, loads the registry and
// calls fn. The database is closed when fn returns.
func withSession(ctx context.Context, opts *options, fn func(*session) error) error {
	db, err := sqliteadapter.NewDB(ctx, opts.dbPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			opts.logger.Error("error closing database", "error", closeErr)
		}
	}()

	schema, err := sqliteadapter.RunMigrations(db.Writer)
	if err != nil {
		return err
	}

	policy := model.ActivationPolicy(opts.policy)
	keys := application.NewKeyRegistry(sqliteadapter.NewKVRepo(db), policy, opts.logger)
	if _, err := keys.Load(ctx); err != nil {
		return err
	}

	return fn(&session{db: db, schema: schema, keys: keys, jobs: sqliteadapter.NewJobRepo(db), policy: policy})
}

func newListCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored keys with masked secrets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), opts, func(s *session) error {
				creds, err := s.keys.List(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeCredentialsJSON(cmd.OutOrStdout(), creds)
				}
				return writeCredentialsTable(cmd.OutOrStdout(), creds)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newAddCmd(opts *options) *cobra.Command {
	var (
		in       model.CredentialInput
		keyStdin bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a key; the first key added becomes active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if keyStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read key from stdin: %w", err)
				}
				in.Secret = strings.TrimRight(line, "\r\n")
			}

			return withSession(cmd.Context(), opts, func(s *session) error {
				creds, err := s.keys.Add(cmd.Context(), in)
				if err != nil {
					return err
				}
				added := creds[len(creds)-1]
				fmt.Fprintf(cmd.OutOrStdout(), "Key added: %s (%s)\n", added.ID, added.MaskedSecret())
				if added.IsActive {
					fmt.Fprintln(cmd.OutOrStdout(), "It is now the active key.")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Provider, "provider", "", "provider label (default "+model.DefaultProvider+")")
	cmd.Flags().StringVar(&in.Name, "name", "", "display label")
	cmd.Flags().StringVar(&in.Secret, "key", "", "secret value")
	cmd.Flags().BoolVar(&keyStdin, "key-stdin", false, "read the secret from the first line of stdin")
	cmd.MarkFlagsMutuallyExclusive("key", "key-stdin")
	return cmd
}

func newRemoveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a key; unknown IDs are ignored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(s *session) error {
				before, err := s.keys.List(cmd.Context())
				if err != nil {
					return err
				}
				after, err := s.keys.Remove(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(after) == len(before) {
					fmt.Fprintf(cmd.OutOrStdout(), "No key with ID %s.\n", args[0])
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Key removed.")
				reportActive(cmd.OutOrStdout(), after)
				return nil
			})
		},
	}
}

func newActivateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <id>",
		Short: "Make a key the only active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(s *session) error {
				creds, err := s.keys.Activate(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				reportActive(cmd.OutOrStdout(), creds)
				return nil
			})
		},
	}
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show registry and job queue status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), opts, func(s *session) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()

				creds, err := s.keys.List(ctx)
				if err != nil {
					return err
				}
				pending, err := s.jobs.ListByStatus(ctx, model.JobStatusQueued, model.JobStatusRunning)
				if err != nil {
					return err
				}
				failed, err := s.jobs.ListByStatus(ctx, model.JobStatusFailed)
				if err != nil {
					return err
				}

				fmt.Fprintf(out, "Database:          %s\n", s.db.Path())
				fmt.Fprintf(out, "Schema version:    %d\n", s.schema)
				fmt.Fprintf(out, "Activation policy: %s\n", s.policy)
				fmt.Fprintf(out, "Keys:              %d\n", len(creds))
				reportActive(out, creds)
				fmt.Fprintf(out, "Pending jobs:      %d\n", len(pending))
				fmt.Fprintf(out, "Failed jobs:       %d\n", len(failed))
				return nil
			})
		},
	}
}

func reportActive(w io.Writer, creds []model.Credential) {
	active, ok := lo.Find(creds, func(c model.Credential) bool { return c.IsActive })
	if !ok {
		fmt.Fprintln(w, "Active key:        none")
		return
	}
	fmt.Fprintf(w, "Active key:        %s %s (%s)\n", active.ID, active.Name, active.MaskedSecret())
}

func writeCredentialsTable(w io.Writer, creds []model.Credential) error {
	if len(creds) == 0 {
		_, err := fmt.Fprintln(w, "No keys stored.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROVIDER\tNAME\tKEY\tACTIVE\tCREATED")
	for _, c := range creds {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID,
			c.Provider,
			c.Name,
			c.MaskedSecret(),
			lo.Ternary(c.IsActive, "*", ""),
			c.CreatedAt.Time().Local().Format(time.DateTime),
		)
	}
	return tw.Flush()
}

// credentialJSON mirrors the stored record with the secret masked.
type credentialJSON struct {
	ID        string `json:"id"`
	Provider  string `json:"provider"`
	Name      string `json:"name"`
	Key       string `json:"key"`
	IsActive  bool   `json:"isActive"`
	CreatedAt int64  `json:"createdAt"`
}

func writeCredentialsJSON(w io.Writer, creds []model.Credential) error {
	out := lo.Map(creds, func(c model.Credential, _ int) credentialJSON {
		return credentialJSON{
			ID:        c.ID,
			Provider:  c.Provider,
			Name:      c.Name,
			Key:       c.MaskedSecret(),
			IsActive:  c.IsActive,
			CreatedAt: c.CreatedAt.Time().UnixMilli(),
		}
	})

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
