package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/worklog/internal/domain/ledger"
	"github.com/spf13/cobra"
)

func (a *App) bookmarkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookmark",
		Short: "Manage bookmarks",
	}

	var salience int
	var sessionID string
	add := &cobra.Command{
		Use:   "add <message>",
		Short: "Bookmark a salient moment",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLedger(func(svc *ledger.Service) error {
				b, err := svc.AddBookmark(cmd.Context(), ledger.BookmarkInput{
					Message:   strings.Join(args, " "),
					Salience:  salience,
					SessionID: sessionID,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Bookmarked %s\n", b.ID)
				return nil
			})
		},
	}
	add.Flags().IntVarP(&salience, "salience", "s", 2, "Importance from 1 to 3")
	add.Flags().StringVar(&sessionID, "session", "", "Session the bookmark came from")

	list := &cobra.Command{
		Use:   "list",
		Short: "List bookmarks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(func(svc *ledger.Service) error {
				bookmarks, err := svc.ListBookmarks(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(bookmarks) == 0 {
					fmt.Fprintln(out, "No bookmarks.")
					return nil
				}
				for _, b := range bookmarks {
					fmt.Fprintf(out, "%s  [%d]  %s  %s\n", b.ID, b.Salience, b.CreatedAt.Format(time.DateOnly), b.Message)
				}
				return nil
			})
		},
	}

	clearAll := &cobra.Command{
		Use:   "clear",
		Short: "Remove all bookmarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(func(svc *ledger.Service) error {
				n, err := svc.ClearBookmarks(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d bookmark(s)\n", n)
				return nil
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove one bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLedger(func(svc *ledger.Service) error {
				if err := svc.RemoveBookmark(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(add, list, clearAll, remove)
	return cmd
}
