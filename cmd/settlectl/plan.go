package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	appfinance "github.com/erp/settlement/internal/application/finance"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newPlanCommand(out func(*cobra.Command) printer) *cobra.Command {
	var amount string
	var count int
	var firstDue string
	var locale, currency string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Preview how an amount splits into monthly installments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("parsing --amount: %w", err)
			}
			due := time.Now()
			if firstDue != "" {
				if due, err = time.Parse("2006-01-02", firstDue); err != nil {
					return fmt.Errorf("parsing --first-due: %w", err)
				}
			}
			formatter, err := appfinance.NewAmountFormatter(locale, currency)
			if err != nil {
				return err
			}

			preview, err := appfinance.NewInstallmentService(nil, nil, nil).Preview(appfinance.InstallmentPlanRequest{
				Amount:       total,
				Count:        count,
				FirstDueDate: due,
			})
			if err != nil {
				return err
			}
			return out(cmd).emit(preview, func(w io.Writer) error {
				return writePlan(w, preview, formatter)
			})
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "total amount to split (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().IntVar(&count, "count", 1, "number of installments")
	cmd.Flags().StringVar(&firstDue, "first-due", "", "first due date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&locale, "locale", "pt-BR", "locale used to format amounts")
	cmd.Flags().StringVar(&currency, "currency", "BRL", "ISO 4217 currency code")

	return cmd
}

func writePlan(w io.Writer, preview *appfinance.InstallmentPreview, f *appfinance.AmountFormatter) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDUE\tAMOUNT")
	for _, line := range preview.Installments {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", line.Number, line.DueDate.Format("2006-01-02"), f.Format(line.Amount))
	}
	fmt.Fprintf(tw, "\tTOTAL\t%s\n", f.Format(preview.Total))
	return tw.Flush()
}
