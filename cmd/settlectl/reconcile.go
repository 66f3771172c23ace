package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	appfinance "github.com/erp/settlement/internal/application/finance"
	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// errUnbalanced makes the command exit non-zero when any account drifted
var errUnbalanced = errors.New("one or more accounts are out of balance")

func newReconcileCommand(out func(*cobra.Command) printer, boot bootstrapFunc) *cobra.Command {
	var company string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check every cash account of a company against its payment history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			companyID, err := uuid.Parse(company)
			if err != nil {
				return fmt.Errorf("parsing --company: %w", err)
			}
			cc, err := shared.NewCompanyContext(companyID, "", uuid.Nil, "settlectl")
			if err != nil {
				return err
			}

			a, err := boot(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			reports, err := a.accounts.ReconcileAll(cmd.Context(), cc)
			if err != nil {
				return err
			}
			if err := out(cmd).emit(reports, func(w io.Writer) error {
				return writeReconciliation(w, reports, a.formatter)
			}); err != nil {
				return err
			}
			for _, r := range reports {
				if !r.Balanced {
					return errUnbalanced
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&company, "company", "", "company id (required)")
	_ = cmd.MarkFlagRequired("company")

	return cmd
}

func writeReconciliation(w io.Writer, reports []finance.ReconciliationReport, f *appfinance.AmountFormatter) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCOUNT\tNAME\tCURRENT\tEXPECTED\tDRIFT\tPAYMENTS\tSTATUS")
	for _, r := range reports {
		status := "ok"
		if !r.Balanced {
			status = "DRIFT"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.AccountID, r.AccountName, f.Format(r.CurrentBalance), f.Format(r.ExpectedBalance),
			f.Format(r.Drift), r.PaymentCount, status)
	}
	return tw.Flush()
}
