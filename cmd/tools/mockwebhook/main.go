package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := defaultOptions()

	cmd := &cobra.Command{
		Use:   "mockwebhook",
		Short: "Send a signed checkout webhook to a local Together API",
		Long: `Builds a checkout.session.* event, signs it with the mock or Stripe
scheme, prints the signature header and body, and posts it to --url.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.URL, "url", opts.URL, "Webhook URL (defaults to http://localhost:8080/webhooks/<provider>)")
	f.StringVar(&opts.Provider, "provider", opts.Provider, "Signature scheme: mock or stripe")
	f.StringVar(&opts.Secret, "secret", "", "Webhook secret (defaults to MOCK_WEBHOOK_SECRET or STRIPE_WEBHOOK_SECRET)")
	f.StringVar(&opts.EventID, "event-id", opts.EventID, "Event ID")
	f.StringVar(&opts.Type, "type", opts.Type, "Event type (checkout.session.completed, checkout.session.async_payment_succeeded, checkout.session.async_payment_failed)")
	f.StringVar(&opts.SessionID, "session-id", opts.SessionID, "Checkout session ID")
	f.StringVar(&opts.ProjectID, "project-id", "", "Project ID put in the session metadata")
	f.StringVar(&opts.UserID, "user-id", "", "Contributor ID put in the session metadata")
	f.Int64Var(&opts.AmountCents, "amount", opts.AmountCents, "Amount in cents")
	f.StringVar(&opts.Currency, "currency", opts.Currency, "Currency")
	f.StringVar(&opts.PaymentStatus, "payment-status", opts.PaymentStatus, "Session payment_status")
	f.BoolVar(&opts.DryRun, "dry-run", false, "Only print the signature header and body")

	return cmd
}
