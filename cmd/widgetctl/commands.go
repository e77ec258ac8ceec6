package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/go-while/go-widgets/internal/apiclient"
	"github.com/go-while/go-widgets/internal/models"
)

func newListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all widgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			widgets, err := client.FetchAllWidgets(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list widgets: %w", err)
			}
			return writeWidgets(cmd.OutOrStdout(), c.output, widgets)
		},
	}
}

func newGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Show one widget",
		Long: `Show one widget. Names compare case-insensitively on the backend.

Example:
  widgetctl get "Gear Box" -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			name := args[0]
			widget, err := client.FetchWidgetByName(cmd.Context(), name)
			if errors.Is(err, apiclient.ErrWidgetNotFound) {
				return notFoundError(cmd, client, name)
			}
			if err != nil {
				return fmt.Errorf("failed to get widget: %w", err)
			}
			return writeWidget(cmd.OutOrStdout(), c.output, *widget)
		},
	}
}

// notFoundError names close matches when the collection can be loaded
func notFoundError(cmd *cobra.Command, client *apiclient.Client, name string) error {
	widgets, err := client.FetchAllWidgets(cmd.Context())
	if err == nil {
		if names := suggestNames(widgets, name); len(names) > 0 {
			return fmt.Errorf("widget %q not found, did you mean %s?", name, quoteJoin(names))
		}
	}
	return fmt.Errorf("widget %q not found", name)
}

func quoteJoin(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, " or ")
}

func newCreateCmd(c *cli) *cobra.Command {
	var form models.WidgetForm
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a widget",
		Long: `Create a widget. Missing fields are prompted for on a terminal.

Example:
  widgetctl create --name "Gear Box" --description "A sturdy gear box" --price 12.50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.promptMissing(&form); err != nil {
				return err
			}
			client, err := c.client()
			if err != nil {
				return err
			}
			widget, err := form.Validate(models.ModeCreate, func() ([]models.Widget, error) {
				return client.FetchAllWidgets(cmd.Context())
			})
			if err != nil {
				return err
			}
			created, err := client.CreateWidget(cmd.Context(), widget)
			if err != nil {
				return fmt.Errorf("failed to create widget: %w", err)
			}
			return writeWidget(cmd.OutOrStdout(), c.output, *created)
		},
	}
	cmd.Flags().StringVar(&form.Name, "name", "", "widget name (3-100 characters, unique)")
	cmd.Flags().StringVar(&form.Description, "description", "", "description (5-1000 characters)")
	cmd.Flags().StringVar(&form.Price, "price", "", "price between 1 and 20000, up to two decimals")
	return cmd
}

// promptMissing asks for empty form fields when running on a terminal
func (c *cli) promptMissing(form *models.WidgetForm) error {
	if !c.interactive() {
		return nil
	}
	fields := []struct {
		message string
		value   *string
	}{
		{"Name:", &form.Name},
		{"Description:", &form.Description},
		{"Price:", &form.Price},
	}
	for _, f := range fields {
		if strings.TrimSpace(*f.value) != "" {
			continue
		}
		if err := survey.AskOne(&survey.Input{Message: f.message}, f.value, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}
	return nil
}

func newUpdateCmd(c *cli) *cobra.Command {
	var (
		description string
		price       string
	)
	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Change the description and/or price of a widget",
		Long: `Change the description and/or price of a widget. The name never changes.

Example:
  widgetctl update "Gear Box" --price 14`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd models.WidgetUpdate
			if cmd.Flags().Changed("description") {
				upd.Description = &description
			}
			if cmd.Flags().Changed("price") {
				p, ok := models.ParsePrice(price)
				if !ok {
					return errors.New(models.MsgPriceInvalid)
				}
				upd.Price = &p
			}
			if upd.IsEmpty() {
				return errors.New("nothing to update, set --description and/or --price")
			}
			if err := models.ValidateUpdate(upd); err != nil {
				return err
			}

			client, err := c.client()
			if err != nil {
				return err
			}
			name := args[0]
			updated, err := client.UpdateWidget(cmd.Context(), name, upd)
			if errors.Is(err, apiclient.ErrWidgetNotFound) {
				return notFoundError(cmd, client, name)
			}
			if err != nil {
				return fmt.Errorf("failed to update widget: %w", err)
			}
			return writeWidget(cmd.OutOrStdout(), c.output, *updated)
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&price, "price", "", "new price")
	return cmd
}

func newDeleteCmd(c *cli) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a widget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !yes && c.interactive() {
				confirmed := false
				prompt := &survey.Confirm{Message: fmt.Sprintf("Delete widget %q?", name)}
				if err := survey.AskOne(prompt, &confirmed); err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			client, err := c.client()
			if err != nil {
				return err
			}
			status := client.DeleteWidget(cmd.Context(), name)
			if !apiclient.DeleteSucceeded(status) {
				return fmt.Errorf("failed to delete widget %q (status %d)", name, status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Widget %q deleted\n", name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
