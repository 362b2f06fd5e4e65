package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/gramasevaka/gs-portal-api/api/handlers"
	"github.com/gramasevaka/gs-portal-api/config"
	"github.com/gramasevaka/gs-portal-api/databases"
	"github.com/gramasevaka/gs-portal-api/models"
	"github.com/gramasevaka/gs-portal-api/notifications"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

const commandTimeout = 30 * time.Second

// admin holds what the commands operate on. connect fills it from the
// environment unless a test already has.
type admin struct {
	users         databases.UserDatabase
	notifier      notifications.Notifier
	ensureIndexes func(ctx context.Context) error
	now           func() time.Time
	disconnect    func(ctx context.Context) error
}

func (a *admin) connect(ctx context.Context) error {
	if a.users != nil {
		return nil
	}
	conf := config.New()
	client, err := databases.NewClient(conf)
	if err != nil {
		return fmt.Errorf("failed to create database client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	db := databases.NewDatabase(conf, client)

	a.users = databases.NewUserDatabase(db)
	a.notifier = notifications.NewSendGrid(conf.SendGridAPIKey, conf.MailFrom)
	a.ensureIndexes = func(ctx context.Context) error { return databases.EnsureIndexes(ctx, db) }
	a.disconnect = client.Disconnect
	return nil
}

func (a *admin) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now().UTC()
}

func newRootCmd(a *admin) *cobra.Command {
	root := &cobra.Command{
		Use:           "gsadmin",
		Short:         "Operator tool for the Grama Sevaka portal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			return a.connect(ctx)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.disconnect == nil {
				return nil
			}
			return a.disconnect(cmd.Context())
		},
	}
	root.AddCommand(officersCmd(a), usersCmd(a), dbCmd(a))
	return root
}

func statusColor(s models.AccountStatus) string {
	switch s {
	case models.AccountActive:
		return color.New(color.FgGreen).Sprint(s)
	case models.AccountPending:
		return color.New(color.FgYellow).Sprint(s)
	default:
		return color.New(color.FgRed).Sprint(s)
	}
}

func officersCmd(a *admin) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "officers",
		Short: "Manage Grama Sevaka officer accounts",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List officer accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			filter := bson.M{"role": workflow.RoleOfficer}
			if pending, _ := cmd.Flags().GetBool("pending"); pending {
				filter["accountStatus"] = models.AccountPending
			}
			officers, err := a.users.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
			if err != nil {
				return fmt.Errorf("failed to list officers: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(officers) == 0 {
				fmt.Fprintln(out, "No officers found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "USERNAME\tNAME\tGS ID\tDIVISION\tSTATUS\tREGISTERED")
			for _, o := range officers {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					o.Username,
					o.FullName,
					o.GSID,
					o.Division,
					statusColor(o.AccountStatus),
					o.CreatedAt.Format("2006-01-02"),
				)
			}
			return w.Flush()
		},
	}
	list.Flags().Bool("pending", false, "Only officers waiting for approval")

	approve := &cobra.Command{
		Use:   "approve [username]",
		Short: "Approve a pending officer account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			username := args[0]
			officer, err := a.users.FindOneAndUpdate(ctx,
				bson.M{"username": username, "role": workflow.RoleOfficer, "accountStatus": models.AccountPending},
				bson.M{"$set": bson.M{"accountStatus": models.AccountActive, "updatedAt": a.clock()}},
			)
			if errors.Is(err, databases.ErrNotFound) {
				return fmt.Errorf("no pending officer named %q", username)
			}
			if err != nil {
				return fmt.Errorf("failed to approve %s: %w", username, err)
			}

			to := notifications.Recipient{Name: officer.FullName, Email: officer.Email}
			if err := a.notifier.AccountApproved(ctx, to, officer.Username); err != nil {
				zap.S().Warnw("failed to send approval email", "username", officer.Username, "error", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", color.New(color.FgGreen).Sprint("approved"), officer.Username, officer.GSID)
			return nil
		},
	}

	cmd.AddCommand(list, approve)
	return cmd
}

func usersCmd(a *admin) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Suspend or reactivate user accounts",
	}

	suspend := &cobra.Command{
		Use:   "suspend [username]",
		Short: "Suspend an account and revoke its tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			u, err := a.findUser(ctx, args[0])
			if err != nil {
				return err
			}
			if u.AccountStatus == models.AccountSuspended {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already suspended\n", u.Username)
				return nil
			}
			now := a.clock()
			_, err = a.users.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": bson.M{
				"accountStatus":    models.AccountSuspended,
				"tokensValidAfter": handlers.RevokeAfter(now),
				"updatedAt":        now,
			}})
			if err != nil {
				return fmt.Errorf("failed to suspend %s: %w", u.Username, err)
			}
			zap.S().Infow("account suspended", "username", u.Username, "role", u.Role)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.New(color.FgRed).Sprint("suspended"), u.Username)
			return nil
		},
	}

	activate := &cobra.Command{
		Use:   "activate [username]",
		Short: "Reactivate a suspended account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			u, err := a.findUser(ctx, args[0])
			if err != nil {
				return err
			}
			switch u.AccountStatus {
			case models.AccountActive:
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already active\n", u.Username)
				return nil
			case models.AccountPending:
				return fmt.Errorf("%s is waiting for approval; use officers approve", u.Username)
			}
			_, err = a.users.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": bson.M{
				"accountStatus": models.AccountActive,
				"updatedAt":     a.clock(),
			}})
			if err != nil {
				return fmt.Errorf("failed to activate %s: %w", u.Username, err)
			}
			zap.S().Infow("account reactivated", "username", u.Username, "role", u.Role)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.New(color.FgGreen).Sprint("activated"), u.Username)
			return nil
		},
	}

	cmd.AddCommand(suspend, activate)
	return cmd
}

func (a *admin) findUser(ctx context.Context, username string) (*models.User, error) {
	u, err := a.users.FindOne(ctx, bson.M{"username": username})
	if errors.Is(err, databases.ErrNotFound) {
		return nil, fmt.Errorf("no user named %q", username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", username, err)
	}
	return u, nil
}

func dbCmd(a *admin) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create the indexes the API relies on",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			if err := a.ensureIndexes(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "indexes ensured")
			return nil
		},
	})
	return cmd
}
