package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"housingadmin/console/config"
	"housingadmin/console/internal/client"
	"housingadmin/console/internal/console"
	"housingadmin/console/internal/database"
	"housingadmin/console/internal/models"
	"housingadmin/console/internal/resource"
	"housingadmin/console/internal/session"
)

// app is the state shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	token  string
}

func rootCmd() *cobra.Command {
	a := &app{}
	var verbose bool

	root := &cobra.Command{
		Use:           "adminctl",
		Short:         "Command line access to the housing admin console",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			a.cfg = cfg
			a.logger = logrus.New()
			a.logger.SetOutput(cmd.ErrOrStderr())
			a.logger.SetLevel(logrus.WarnLevel)
			if verbose {
				a.logger.SetLevel(logrus.DebugLevel)
			}
			if a.token == "" {
				a.token = os.Getenv("ADMIN_TOKEN")
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.token, "token", "", "admin bearer token (defaults to $ADMIN_TOKEN)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log backend calls")

	root.AddCommand(
		a.loginCmd(),
		a.usersCmd(),
		a.propertiesCmd(),
		a.transitionsCmd(),
		a.uploadsCmd(),
		a.tokensCmd(),
	)
	return root
}

func (a *app) paths() client.Paths {
	return client.Paths{
		Admins:     a.cfg.Backend.AdminsPath,
		Users:      a.cfg.Backend.UsersPath,
		Properties: a.cfg.Backend.PropertiesPath,
		Listings:   a.cfg.Backend.ListingsPath,
		Reports:    a.cfg.Backend.ReportsPath,
	}
}

// workspace builds the same managers the web console uses, authenticated
// with the static token.
func (a *app) workspace() (*console.Workspace, error) {
	if a.token == "" {
		return nil, errors.New("no token: run adminctl login or pass --token")
	}
	transitions, err := config.LoadTransitions(a.cfg.Status.TransitionsFile)
	if err != nil {
		return nil, err
	}
	if err := transitions.Validate(statusNames()); err != nil {
		return nil, fmt.Errorf("invalid status transitions: %w", err)
	}
	clients := client.NewSet(a.cfg.Backend.URL, a.paths(), session.Static(a.token), client.WithLogger(a.logger))
	return console.NewWorkspace(clients, resource.Transitions(transitions), a.logger), nil
}

func (a *app) openDB() (*database.Database, error) {
	return database.NewDatabase(a.cfg.Server.DatabasePath, a.logger)
}

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print the bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			auth := client.NewAuth(strings.TrimRight(a.cfg.Backend.URL, "/")+a.cfg.Backend.AdminsPath, client.WithLogger(a.logger))
			token, admin, err := auth.Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Signed in as %s\n", admin.FullName())
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password (defaults to $ADMIN_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) usersCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "Inspect user accounts"}

	var search string
	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.workspace()
			if err != nil {
				return err
			}
			defer ws.Dispose()
			if err := ws.Users.Load(cmd.Context()); err != nil {
				return err
			}

			w := table(cmd.OutOrStdout(), "ID", "NAME", "EMAIL", "CONTACT")
			for _, r := range ws.Users.FilteredBy(search, "") {
				u := r.Item
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.FullName(), u.Email, u.ContactNumber)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&search, "search", "", "case-insensitive search term")

	cmd.AddCommand(list)
	return cmd
}

func (a *app) propertiesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "properties", Short: "Review property registrations"}

	var search, status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List registrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.workspace()
			if err != nil {
				return err
			}
			defer ws.Dispose()
			if err := ws.Properties.Load(cmd.Context()); err != nil {
				return err
			}

			w := table(cmd.OutOrStdout(), "ID", "STATUS", "TYPE", "ADDRESS")
			for _, r := range ws.Properties.FilteredBy(search, status) {
				p := r.Item
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Status, p.PropertyType, p.Address)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&search, "search", "", "case-insensitive search term")
	list.Flags().StringVar(&status, "status", "", "only this status")

	setStatus := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change the status of a registration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, next := args[0], args[1]
			if !models.RegistrationStatus(next).Valid() {
				return fmt.Errorf("unknown status %q, expected one of %s", next, strings.Join(statusNames(), ", "))
			}
			ws, err := a.workspace()
			if err != nil {
				return err
			}
			defer ws.Dispose()
			if err := ws.Properties.Load(cmd.Context()); err != nil {
				return err
			}

			updated, err := ws.Properties.SetStatus(cmd.Context(), id, next)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", updated.ID, updated.Status)
			return nil
		},
	}

	cmd.AddCommand(list, setStatus)
	return cmd
}

func (a *app) transitionsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "transitions", Short: "Manage the status transition table"}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the allowed transitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := config.LoadTransitions(a.cfg.Status.TransitionsFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(t) == 0 {
				fmt.Fprintln(out, "No restrictions: any status may follow any other")
				return nil
			}
			from := make([]string, 0, len(t))
			for k := range t {
				from = append(from, k)
			}
			sort.Strings(from)
			for _, k := range from {
				fmt.Fprintf(out, "%s -> %s\n", k, strings.Join(t[k], ", "))
			}
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <from> [to...]",
		Short: "Replace the statuses allowed after <from>",
		Long:  "Replace the statuses allowed after <from>. With no targets the entry is removed and <from> becomes unrestricted.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Status.TransitionsFile
			t, err := config.LoadTransitions(path)
			if err != nil {
				return err
			}
			if t == nil {
				t = config.Transitions{}
			}
			if len(args) == 1 {
				delete(t, args[0])
			} else {
				t[args[0]] = args[1:]
			}
			if err := t.Validate(statusNames()); err != nil {
				return err
			}
			if err := config.SaveTransitions(path, t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
			return nil
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}

func (a *app) uploadsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "uploads", Short: "Inspect the upload failure log"}

	var section string
	var limit int
	failures := &cobra.Command{
		Use:   "failures",
		Short: "List files skipped by recent uploads",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			items, err := db.UploadFailures(cmd.Context(), section, limit)
			if err != nil {
				return err
			}
			w := table(cmd.OutOrStdout(), "WHEN", "SECTION", "FILE", "REASON")
			for _, f := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.CreatedAt.Format(time.RFC3339), f.Resource, f.File, f.Reason)
			}
			return w.Flush()
		},
	}
	failures.Flags().StringVar(&section, "section", "", "properties, listings or reports")
	failures.Flags().IntVar(&limit, "limit", 50, "maximum rows, 0 for all")

	cmd.AddCommand(failures)
	return cmd
}

func (a *app) tokensCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tokens", Short: "Maintain stored session tokens"}

	var olderThan time.Duration
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete session tokens not refreshed recently",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.PurgeTokens(time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d tokens\n", n)
			return nil
		},
	}
	purge.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "age of the tokens to drop")

	cmd.AddCommand(purge)
	return cmd
}

func table(out io.Writer, headers ...string) *tabwriter.Writer {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	return w
}

func statusNames() []string {
	out := make([]string, len(models.RegistrationStatuses))
	for i, s := range models.RegistrationStatuses {
		out[i] = string(s)
	}
	return out
}
