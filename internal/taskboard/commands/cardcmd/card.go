package cardcmd

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
	cardCmd := &cobra.Command{
		Use:     "card",
		Aliases: []string{"cards"},
		Short:   "Manage cards.",
		Long:    "List, get, create, update, and delete cards. Mutating commands need a token.",
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List cards.",
		Long:    "List all cards, newest first, with their comments.",
		Example: strings.TrimSpace(`taskboard card list
taskboard cards ls --output json`),
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			resp, reqErr := c.ListCards(context.Background())
			return handle(runtime.Output(), stdout, resp, reqErr)
		},
	}

	getCmd := &cobra.Command{
		Use:     "get",
		Aliases: []string{"show"},
		Short:   "Get one card.",
		Long:    "Fetch one card by id.",
		Example: strings.TrimSpace(`taskboard card get --id 1
taskboard cards show -i 1 --output json`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			id, _ := cmd.Flags().GetInt64("id")
			resp, reqErr := c.GetCard(context.Background(), id)
			return handle(runtime.Output(), stdout, resp, reqErr)
		},
	}
	getCmd.Flags().Int64P("id", "i", 0, "Card id")
	_ = getCmd.MarkFlagRequired("id")

	createCmd := &cobra.Command{
		Use:     "create",
		Aliases: []string{"new"},
		Short:   "Create a card.",
		Long:    "Create a card owned by the token's user. Only one card may be Ongoing at a time.",
		Example: strings.TrimSpace(`taskboard card create --title "Write docs"
taskboard cards new -t "Fix login" -s "To Do" --priority High -d "Users see a 500"`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			resp, reqErr := c.CreateCard(context.Background(), cardRequestFromFlags(cmd))
			return handle(runtime.Output(), stdout, resp, reqErr)
		},
	}
	addCardFieldFlags(createCmd)
	_ = createCmd.MarkFlagRequired("title")

	updateCmd := &cobra.Command{
		Use:     "update",
		Aliases: []string{"edit", "move"},
		Short:   "Update a card.",
		Long:    "Change only the fields given as flags. Owners and admins may update a card.",
		Example: strings.TrimSpace(`taskboard card update --id 1 --status Ongoing
taskboard cards edit -i 1 --priority Low --description ""`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			id, _ := cmd.Flags().GetInt64("id")
			resp, reqErr := c.UpdateCard(context.Background(), id, cardRequestFromFlags(cmd))
			return handle(runtime.Output(), stdout, resp, reqErr)
		},
	}
	updateCmd.Flags().Int64P("id", "i", 0, "Card id")
	addCardFieldFlags(updateCmd)
	_ = updateCmd.MarkFlagRequired("id")

	deleteCmd := &cobra.Command{
		Use:     "delete",
		Aliases: []string{"rm", "remove"},
		Short:   "Delete a card.",
		Long:    "Delete a card and its comments. Owners and admins may delete a card.",
		Example: strings.TrimSpace(`taskboard card delete --id 1
taskboard cards rm -i 1`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := common.NewClient(runtime)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			id, _ := cmd.Flags().GetInt64("id")
			resp, reqErr := c.DeleteCard(context.Background(), id)
			return handle(runtime.Output(), stdout, resp, reqErr)
		},
	}
	deleteCmd.Flags().Int64P("id", "i", 0, "Card id")
	_ = deleteCmd.MarkFlagRequired("id")

	cardCmd.AddCommand(listCmd, getCmd, createCmd, updateCmd, deleteCmd)
	return cardCmd
}

func addCardFieldFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("title", "t", "", "Card title")
	cmd.Flags().StringP("description", "d", "", "Card description")
	cmd.Flags().StringP("status", "s", "", "Card status (To Do|Ongoing|Done|Testing|Deployed)")
	cmd.Flags().String("priority", "", "Card priority (Low|Medium|High|Urgent)")
}

func cardRequestFromFlags(cmd *cobra.Command) client.CardRequest {
	flags := cmd.Flags()
	title, _ := flags.GetString("title")
	description, _ := flags.GetString("description")
	status, _ := flags.GetString("status")
	priority, _ := flags.GetString("priority")

	return client.CardRequest{
		Title:       common.OptionalString(flags.Changed("title"), title),
		Description: common.OptionalString(flags.Changed("description"), description),
		Status:      common.OptionalString(flags.Changed("status"), status),
		Priority:    common.OptionalString(flags.Changed("priority"), priority),
	}
}
