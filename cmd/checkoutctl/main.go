// Command checkoutctl prices checkouts and signs, verifies or decodes LiqPay
// payloads offline using the service configuration.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace/noop"

	"checkout-service/config"
	"checkout-service/liqpay"
	"checkout-service/models"
	"checkout-service/payparts"
	"checkout-service/pricing"
	"checkout-service/service"
)

var Version = "dev"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "checkoutctl",
		Short:         "Operator tools for the checkout service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(priceCmd())
	root.AddCommand(signCmd())
	root.AddCommand(verifyCmd())
	root.AddCommand(decodeCmd())
	root.AddCommand(statusCmd())

	return root
}

func newService(cfg *config.Config, online bool) (*service.PaymentService, error) {
	var (
		lp service.LiqPayAPI
		pp service.PayPartsAPI
	)
	if online {
		lp = liqpay.NewClient(cfg.LiqPayAPIURL, cfg.LiqPayPublicKey, cfg.LiqPayPrivateKey, cfg.HTTPTimeout)
		pp = payparts.NewClient(cfg.PayPartsBaseURL, cfg.HTTPTimeout)
	}
	return service.NewPaymentService(noop.NewTracerProvider().Tracer("checkoutctl"), cfg, lp, pp)
}

func priceCmd() *cobra.Command {
	var req models.CheckoutRequest
	var quantity, unitPrice, count string

	cmd := &cobra.Command{
		Use:   "price",
		Short: "Normalize and price a checkout without contacting a provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			svc, err := newService(cfg, false)
			if err != nil {
				return err
			}

			req.Quantity = models.FlexNumber(quantity)
			req.UnitPrice = models.FlexNumber(unitPrice)
			if count != "" {
				c := models.FlexNumber(count)
				req.InstallmentCount = &c
			}

			n, err := svc.Normalize(req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Description:  %s\n", n.Description())
			fmt.Fprintf(out, "Base amount:  %s UAH\n", n.BaseAmount)
			if n.Method.Deferred() {
				fmt.Fprintf(out, "Installments: %d (%s)\n", n.InstallmentCount, n.Method)
				fmt.Fprintf(out, "Surcharge:    %.2f%%\n", pricing.Percent(n.SurchargeBP))
			}
			fmt.Fprintf(out, "Amount:       %s UAH\n", n.Amount)
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.ProductType, "product", "p", "Вікно", "Product type")
	cmd.Flags().StringVarP(&quantity, "quantity", "q", "1", "Quantity in m²")
	cmd.Flags().StringVar(&unitPrice, "price", "", "Unit price in UAH")
	cmd.Flags().StringVarP(&req.PaymentMethod, "method", "m", "full", "Payment method (full, paypart, moment_part)")
	cmd.Flags().StringVarP(&count, "count", "n", "", "Installment count (plan default when empty)")
	_ = cmd.MarkFlagRequired("price")

	return cmd
}

func signCmd() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "sign [payload.json|-]",
		Short: "Encode and sign a LiqPay payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			privateKey, err := privateKey(key)
			if err != nil {
				return err
			}
			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			var payload liqpay.Payload
			if err := json.Unmarshal(raw, &payload); err != nil {
				return fmt.Errorf("parse payload: %w", err)
			}
			signed, err := liqpay.SignPayload(payload, privateKey)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "data=%s\nsignature=%s\n", signed.Data, signed.Signature)
			return nil
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "Private key (defaults to LIQPAY_PRIVATE_KEY)")
	return cmd
}

func verifyCmd() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "verify [data] [signature]",
		Short: "Check a LiqPay callback signature",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			privateKey, err := privateKey(key)
			if err != nil {
				return err
			}

			result := liqpay.Verify(args[0], args[1], privateKey)
			if !result.Valid {
				return fmt.Errorf("invalid signature")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid (%s)\n", result.Algorithm)
			return nil
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "Private key (defaults to LIQPAY_PRIVATE_KEY)")
	return cmd
}

func decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode [data]",
		Short: "Print the JSON inside a LiqPay data field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decoded, err := liqpay.Decode(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), decoded)
		},
	}
}

func statusCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "status [orderId]",
		Short: "Query the provider for the current state of an order",
		Long: `Query LiqPay or PayParts for an order. Installment holds found in
hold_wait are completed exactly as the service does when polled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			svc, err := newService(cfg, true)
			if err != nil {
				return err
			}

			resp, err := svc.GetStatus(context.Background(), models.StatusRequest{OrderID: args[0], Provider: provider})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "liqpay or payparts (inferred from the order id when empty)")
	return cmd
}

func privateKey(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	if cfg.LiqPayPrivateKey == "" {
		return "", fmt.Errorf("LIQPAY_PRIVATE_KEY is not set; pass --key")
	}
	return cfg.LiqPayPrivateKey, nil
}

func readInput(stdin io.Reader, arg string) ([]byte, error) {
	if arg == "-" {
		return io.ReadAll(stdin)
	}
	if strings.HasPrefix(strings.TrimSpace(arg), "{") {
		return []byte(arg), nil
	}
	return os.ReadFile(arg)
}

func writeJSON(w io.Writer, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}
