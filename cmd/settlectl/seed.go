package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/erp/settlement/internal/application/seed"
	"github.com/spf13/cobra"
)

func newSeedCommand(out func(*cobra.Command) printer, boot bootstrapFunc) *cobra.Command {
	var opts seed.Options

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with generated companies, sales and payments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := boot(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := seed.New(seed.Services{
				Auth:       a.auth,
				Accounts:   a.accounts,
				Abatements: a.abatements,
				Sales:      a.sales,
				Quotes:     a.quotes,
			}, a.log).Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return out(cmd).emit(report, func(w io.Writer) error {
				return writeSeedReport(w, report)
			})
		},
	}

	cmd.Flags().IntVar(&opts.Companies, "companies", 1, "number of companies to create")
	cmd.Flags().IntVar(&opts.Sales, "sales", 10, "sales and quotes per company")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed, 0 for a random run")

	return cmd
}

func writeSeedReport(w io.Writer, report *seed.Report) error {
	fmt.Fprintf(w, "admin: %s / %s\n\n", report.AdminEmail, report.AdminPassword)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPANY\tNAME\tSALES\tQUOTES\tPAYMENTS")
	for _, c := range report.Companies {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", c.ID, c.Name, c.Sales, c.Quotes, c.Payments)
	}
	return tw.Flush()
}
