package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hematic/servicenow-client/internal/servicenow"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "sys_user table operations",
}

func init() {
	userCmd.AddCommand(userGetCmd)

	f := userGetCmd.Flags()
	f.String("account", "", "directory account name (user_name)")
	f.String("email", "", "email address")
	f.String("first", "", "first name (requires --last)")
	f.String("last", "", "last name (requires --first)")
	f.String("id", "", "sys_id")
}

var userGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Look up users by account name, email, full name, or sys_id",
	RunE: func(cmd *cobra.Command, args []string) error {
		account, _ := cmd.Flags().GetString("account")
		email, _ := cmd.Flags().GetString("email")
		first, _ := cmd.Flags().GetString("first")
		last, _ := cmd.Flags().GetString("last")
		id, _ := cmd.Flags().GetString("id")

		var ref servicenow.UserRef
		switch {
		case account != "" && email == "" && first == "" && last == "" && id == "":
			ref = servicenow.UserByAccountName(account)
		case email != "" && account == "" && first == "" && last == "" && id == "":
			ref = servicenow.UserByEmail(email)
		case first != "" && last != "" && account == "" && email == "" && id == "":
			ref = servicenow.UserByFullName(first, last)
		case id != "" && account == "" && email == "" && first == "" && last == "":
			ref = servicenow.UserByID(id)
		default:
			return fmt.Errorf("exactly one of --account, --email, --first/--last, or --id is required")
		}

		return runCommand(func(ctx context.Context, c *clients) error {
			users, err := c.users.Get(ctx, ref)
			if err != nil {
				return err
			}
			return printJSON(users)
		})
	},
}
