package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand(opts *RootOptions) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved birthdays",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scopeID, err := opts.scope(scope)
			if err != nil {
				return err
			}

			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			birthdays, err := store.ListAll(cmd.Context(), scopeID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(birthdays) == 0 {
				fmt.Fprintln(out, "The list is empty.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tMEMBER\tNAME")
			for _, b := range birthdays {
				fmt.Fprintf(w, "%s\t%s\t%s\n", b.BirthDate, b.MemberID, b.DisplayName)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "guild ID (defaults to GUILD_ID)")
	return cmd
}

// NewAddCommand creates the add command.
func NewAddCommand(opts *RootOptions) *cobra.Command {
	var scope, name string

	cmd := &cobra.Command{
		Use:   "add <member-id> <DD.MM>",
		Short: "Save or replace a member's birthday",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scopeID, err := opts.scope(scope)
			if err != nil {
				return err
			}

			memberID, date := args[0], args[1]
			if name == "" {
				name = memberID
			}

			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Upsert(cmd.Context(), memberID, name, date, scopeID); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s's birthday as %s.\n", memberID, date)
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "guild ID (defaults to GUILD_ID)")
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the member ID)")
	return cmd
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(opts *RootOptions) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "remove <member-id>",
		Short: "Remove a member's birthday",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scopeID, err := opts.scope(scope)
			if err != nil {
				return err
			}

			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Remove(cmd.Context(), args[0], scopeID)
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is not on the birthday list.\n", args[0])
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from the birthday list.\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "guild ID (defaults to GUILD_ID)")
	return cmd
}
