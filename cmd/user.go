package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wxcipher/config"
	wxerr "wxcipher/internal/errors"
	"wxcipher/internal/userdb"
	"wxcipher/internal/userdb/boltuserdb"
)

func newUserCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the user database",
	}
	cmd.PersistentFlags().StringVar(&cfg.UserDB, "userdb", cfg.UserDB, "User database file (env WXC_USERDB)")

	var update bool
	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Add a user, or change a password with --update",
		Long: `Add a user to the database.  The password is read from WXC_SECRET or
prompted for.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserDB(cfg, func(db userdb.UserDB) error {
				secret, err := newSecret(args[0])
				if err != nil {
					return err
				}
				if err := db.Add(args[0], secret, update); err != nil {
					return err
				}
				verb := "added"
				if update {
					verb = "updated"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, args[0])
				return nil
			})
		},
	}
	add.Flags().BoolVar(&update, "update", false, "Replace the password of an existing user")

	remove := &cobra.Command{
		Use:     "remove <username>",
		Aliases: []string{"rm"},
		Short:   "Remove a user",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserDB(cfg, func(db userdb.UserDB) error {
				if err := db.Remove(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
				return nil
			})
		},
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List users",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withUserDB(cfg, func(db userdb.UserDB) error {
				users, err := db.Users()
				if err != nil {
					return err
				}
				for _, u := range users {
					fmt.Fprintln(cmd.OutOrStdout(), u)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(add, remove, list)
	return cmd
}

func withUserDB(cfg *config.Config, fn func(userdb.UserDB) error) error {
	if cfg.UserDB == "" {
		return &wxerr.ConfigError{
			Field:   "userdb",
			Message: "is required",
			Hint:    "pass --userdb users.db or set WXC_USERDB",
		}
	}
	db, err := boltuserdb.New(cfg.UserDB)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

// newSecret reads a password for a new account, asking twice when
// prompting.
func newSecret(user string) (string, error) {
	if s, ok := os.LookupEnv("WXC_SECRET"); ok {
		if s == "" {
			return "", errors.New("WXC_SECRET is empty")
		}
		return s, nil
	}
	first, err := readSecret(fmt.Sprintf("New password for %s: ", user))
	if err != nil {
		return "", err
	}
	if first == "" {
		return "", errors.New("empty password")
	}
	second, err := readSecret("Repeat password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}
