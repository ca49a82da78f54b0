// Package main is the operator console CLI. It talks to the API server
// and renders conversations, the live feed, labels, and service orders.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zapdesk/support-console/internal/client"
	"github.com/zapdesk/support-console/internal/console"
	"github.com/zapdesk/support-console/internal/model"
	"github.com/zapdesk/support-console/pkg/logger"
)

var (
	flagServer string
	flagToken  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "console",
		Short:         "Operator console for the support desk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flagServer, "server", "s", envOr("CONSOLE_SERVER", "http://localhost:3001"), "API server base URL")
	rootCmd.PersistentFlags().StringVarP(&flagToken, "token", "t", os.Getenv("CONSOLE_TOKEN"), "bearer token")

	rootCmd.AddCommand(
		listCmd(),
		openCmd(),
		sendCmd(),
		startCmd(),
		watchCmd(),
		labelsCmd(),
		ordersCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newClient() (*client.Client, error) {
	return client.New(client.Config{
		BaseURL: flagServer,
		Token:   flagToken,
		Logger:  logger.NewNop(),
	})
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List conversations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newClient()
			if err != nil {
				return err
			}

			vm := console.NewConversationViewModel(api, logger.NewNop())
			if err := vm.Bootstrap(cmd.Context()); err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "USER\tNAME\tUNREAD\tLAST MESSAGE\tWHEN")
			for _, conv := range vm.Conversations() {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					conv.UserID, conv.UserName, conv.Unread,
					truncate(conv.LastMessage, 40),
					conv.LastTimestamp.Format("02/01 15:04"))
			}
			return w.Flush()
		},
	}
}

func openCmd() *cobra.Command {
	var pages int

	cmd := &cobra.Command{
		Use:   "open <userId>",
		Short: "Show a conversation's recent messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newClient()
			if err != nil {
				return err
			}

			vm := console.NewConversationViewModel(api, logger.NewNop())
			if err := vm.Select(cmd.Context(), args[0]); err != nil {
				return err
			}
			for i := 1; i < pages; i++ {
				if err := vm.LoadMore(cmd.Context()); err != nil {
					return err
				}
			}

			page, ok := vm.Selected()
			if !ok {
				return fmt.Errorf("conversation %s not loaded", args[0])
			}

			fmt.Printf("%s (%s), showing %d of %d messages\n\n",
				page.UserName, page.UserID, len(page.Messages), page.TotalMessages)
			for _, msg := range page.Messages {
				printMessage(msg)
			}
			if page.HasMore {
				fmt.Println("\n(older messages available, rerun with --pages)")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	return cmd
}

func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <userId> <message...>",
		Short: "Send a text message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newClient()
			if err != nil {
				return err
			}

			vm := console.NewConversationViewModel(api, logger.NewNop())
			if err := vm.Select(cmd.Context(), args[0]); err != nil {
				return err
			}
			return vm.Send(cmd.Context(), model.SendRequest{
				Message: strings.Join(args[1:], " "),
				Type:    model.MessageTypeText,
			})
		},
	}
}

func startCmd() *cobra.Command {
	var name, message, template, language string

	cmd := &cobra.Command{
		Use:   "start <userId>",
		Short: "Start a conversation with a new contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newClient()
			if err != nil {
				return err
			}

			req := model.CreateConversationRequest{
				UserID:         args[0],
				UserName:       name,
				InitialMessage: message,
			}
			if template != "" {
				req.Template = &model.TemplateRef{Name: template, Language: language}
			}

			conv, err := api.CreateConversation(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Printf("conversation ready: %s (%s)\n", conv.UserName, conv.UserID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "contact display name")
	cmd.Flags().StringVar(&message, "message", "", "initial free-text message")
	cmd.Flags().StringVar(&template, "template", "", "approved template name")
	cmd.Flags().StringVar(&language, "language", "en_US", "template language code")
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Tail the live conversation feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newClient()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			vm := console.NewConversationViewModel(api, logger.NewNop())
			events, err := api.Stream(ctx)
			if err != nil {
				return err
			}

			fmt.Println("watching for updates, ctrl-c to stop")
			for event := range events {
				switch event.Type {
				case client.EventInit:
					vm.ApplySnapshot(event.Snapshot)
					fmt.Printf("· synced %d conversations\n", len(event.Snapshot))
				case client.EventMessage:
					vm.ApplyUpdate(event.Update)
					conv := event.Update.Conversation
					fmt.Printf("%s %s: %s\n",
						time.Now().Format("15:04:05"), conv.UserName,
						truncate(conv.LastMessage, 60))
				}
			}
			return ctx.Err()
		},
	}
}

func labelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Manage the label catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List labels",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newClient()
			if err != nil {
				return err
			}
			labels, err := api.ListLabels(cmd.Context())
			if err != nil {
				return err
			}
			for _, label := range labels {
				fmt.Printf("%s\t%s\t%s\n", label.ID, label.Name, label.Color)
			}
			return nil
		},
	})

	var color string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newClient()
			if err != nil {
				return err
			}
			label, err := api.CreateLabel(cmd.Context(), args[0], color)
			if err != nil {
				return err
			}
			fmt.Printf("created %s (%s)\n", label.Name, label.ID)
			return nil
		},
	}
	add.Flags().StringVar(&color, "color", "", "hex color, defaults to the first palette entry")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a label and detach it everywhere",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newClient()
			if err != nil {
				return err
			}
			return api.DeleteLabel(cmd.Context(), args[0])
		},
	})

	return cmd
}

func ordersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Manage service orders",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List service orders, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newClient()
			if err != nil {
				return err
			}
			orders, err := api.ListOrders(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NUMERO\tCLIENTE\tSTATUS\tTOTAL")
			for _, order := range orders {
				fmt.Fprintf(w, "%s\t%s\t%s\tR$ %.2f\n",
					order.NumeroOS, order.ClienteNome, order.Status, order.ValorTotal)
			}
			return w.Flush()
		},
	})

	var (
		cliente  string
		desc     string
		servico  string
		pecas    string
		desconto string
		items    []string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a service order",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newClient()
			if err != nil {
				return err
			}

			form := console.NewOrderForm()
			form.ClienteNome = cliente
			form.Descricao = desc
			form.ValorServico = servico
			form.ValorPecas = pecas
			form.Desconto = desconto

			// Items arrive as "descricao:quantidade:valorUnitario".
			for _, raw := range items {
				parts := strings.SplitN(raw, ":", 3)
				if len(parts) != 3 {
					return fmt.Errorf("invalid item %q, want descricao:quantidade:valor", raw)
				}
				if err := form.AddItem(parts[0], parts[1], parts[2]); err != nil {
					return err
				}
			}

			order, err := form.Submit(cmd.Context(), func(ctx context.Context, o model.ServiceOrder) (model.ServiceOrder, error) {
				return api.CreateOrder(ctx, o)
			})
			if err != nil {
				return err
			}
			fmt.Printf("created %s, total R$ %.2f\n", order.NumeroOS, order.ValorTotal)
			return nil
		},
	}
	create.Flags().StringVar(&cliente, "cliente", "", "client name (required)")
	create.Flags().StringVar(&desc, "descricao", "", "service description (required)")
	create.Flags().StringVar(&servico, "servico", "", "service value")
	create.Flags().StringVar(&pecas, "pecas", "", "parts value")
	create.Flags().StringVar(&desconto, "desconto", "", "discount")
	create.Flags().StringArrayVar(&items, "item", nil, "line item descricao:quantidade:valor, repeatable")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a service order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newClient()
			if err != nil {
				return err
			}
			return api.DeleteOrder(cmd.Context(), args[0])
		},
	})

	return cmd
}

func printMessage(msg model.Message) {
	arrow := "←"
	if msg.Direction == model.DirectionOutbound {
		arrow = "→"
	}
	fmt.Printf("%s %s %s\n", msg.Timestamp.Format("02/01 15:04"), arrow, msg.Preview())
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
