package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"personalfinance/internal/repair"
)

func newFixDatesCmd() *cobra.Command {
	var (
		username  string
		account   string
		daysAhead int
		apply     bool
	)

	cmd := &cobra.Command{
		Use:   "fix-dates",
		Short: "Shift future-dated transactions back one year",
		Long: `Scans committed transactions for dates in the future, the telltale of a
statement whose short dates were inferred into the wrong year, and shifts
each one back a year. Dry-run by default; pass --apply to write changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			user, err := db.GetUserByName(username)
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("unknown user %q", username)
			}

			var accountID int64
			if account != "" {
				acc, err := db.GetAccountByName(user.ID, account)
				if err != nil {
					return err
				}
				if acc == nil {
					// The flag also accepts a numeric account id.
					if id, perr := strconv.ParseInt(account, 10, 64); perr == nil {
						if byID, gerr := db.GetAccount(user.ID, id); gerr == nil {
							acc = byID
						}
					}
				}
				if acc == nil {
					return fmt.Errorf("unknown account %q for user %s", account, username)
				}
				accountID = acc.ID
			}

			if daysAhead == 0 {
				daysAhead = cfg.Import.RepairDaysAhead
			}

			res, err := repair.Run(db, repair.Options{
				UserID:    user.ID,
				AccountID: accountID,
				DaysAhead: daysAhead,
				Apply:     apply,
			})
			if err != nil {
				return err
			}

			if len(res.Changes) == 0 && len(res.Failures) == 0 {
				fmt.Println("Nothing to fix.")
				return nil
			}

			verb := "would change"
			if apply {
				verb = "changed"
			}
			for _, c := range res.Changes {
				fmt.Printf("  #%-6d %s -> %s  %s\n",
					c.TransactionID,
					c.OldDate.Format("2006-01-02"),
					c.NewDate.Format("2006-01-02"),
					c.Description)
			}
			fmt.Printf("%s %d transaction(s)\n", verb, len(res.Changes))

			for _, f := range res.Failures {
				fmt.Println("  FAILED:", f)
			}
			if len(res.Failures) > 0 {
				return fmt.Errorf("%d update(s) failed", len(res.Failures))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "owning user (required)")
	cmd.Flags().StringVar(&account, "account", "", "account name (default: all accounts)")
	cmd.Flags().IntVar(&daysAhead, "days-ahead", 0, "grace window before a date counts as future (default from config)")
	cmd.Flags().BoolVar(&apply, "apply", false, "write the changes (default is dry-run)")
	cmd.MarkFlagRequired("username")
	return cmd
}
