package commentcmd

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonjohansson/taskboard/internal/client"
	"github.com/simonjohansson/taskboard/internal/taskboard/commands/common"
)

func New(runtime common.Runtime, stdout io.Writer, handle common.HandleResponseFunc, wrapErr common.WrapErrorFunc) *cobra.Command {
	commentCmd := &cobra.Command{
		Use:     "comment",
		Aliases: []string{"comments", "note"},
		Short:   "Manage card comments.",
		Long:    "Add, edit, and remove comments on a card. All comment commands need a token.",
	}

	addCmd := &cobra.Command{
		Use:     "add",
		Aliases: []string{"new"},
		Short:   "Comment on a card.",
		Example: strings.TrimSpace(`taskboard comment add --card 1 --message "Needs review"
taskboard note new -c 1 -m "LGTM"`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			cardID, _ := cmd.Flags().GetInt64("card")
			resp, reqErr := c.CreateComment(context.Background(), cardID, commentRequestFromFlags(cmd))
			return handle(runtime.Output(), stdout, resp, reqErr)
		},
	}
	addCmd.Flags().Int64P("card", "c", 0, "Card id")
	addCmd.Flags().StringP("message", "m", "", "Comment text")
	_ = addCmd.MarkFlagRequired("card")
	_ = addCmd.MarkFlagRequired("message")

	editCmd := &cobra.Command{
		Use:     "edit",
		Aliases: []string{"update"},
		Short:   "Replace a comment's message.",
		Example: strings.TrimSpace(`taskboard comment edit --card 1 --id 2 --message "Reviewed"`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			cardID, _ := cmd.Flags().GetInt64("card")
			id, _ := cmd.Flags().GetInt64("id")
			resp, reqErr := c.UpdateComment(context.Background(), cardID, id, commentRequestFromFlags(cmd))
			return handle(runtime.Output(), stdout, resp, reqErr)
		},
	}
	editCmd.Flags().Int64P("card", "c", 0, "Card id")
	editCmd.Flags().Int64P("id", "i", 0, "Comment id")
	editCmd.Flags().StringP("message", "m", "", "New comment text")
	_ = editCmd.MarkFlagRequired("card")
	_ = editCmd.MarkFlagRequired("id")
	_ = editCmd.MarkFlagRequired("message")

	deleteCmd := &cobra.Command{
		Use:     "delete",
		Aliases: []string{"rm", "remove"},
		Short:   "Delete a comment.",
		Example: strings.TrimSpace(`taskboard comment rm --card 1 --id 2`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			cardID, _ := cmd.Flags().GetInt64("card")
			id, _ := cmd.Flags().GetInt64("id")
			resp, reqErr := c.DeleteComment(context.Background(), cardID, id)
			return handle(runtime.Output(), stdout, resp, reqErr)
		},
	}
	deleteCmd.Flags().Int64P("card", "c", 0, "Card id")
	deleteCmd.Flags().Int64P("id", "i", 0, "Comment id")
	_ = deleteCmd.MarkFlagRequired("card")
	_ = deleteCmd.MarkFlagRequired("id")

	commentCmd.AddCommand(addCmd, editCmd, deleteCmd)
	return commentCmd
}

func commentRequestFromFlags(cmd *cobra.Command) client.CommentRequest {
	message, _ := cmd.Flags().GetString("message")
	return client.CommentRequest{Message: common.OptionalString(cmd.Flags().Changed("message"), message)}
}
