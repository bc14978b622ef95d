package main

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/agentcoach/billing/pkg/billing"
)

func newPlansCmd(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "Print the plan catalog the service would sell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(envFileOption(*envFiles))
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			return printPlans(cmd.OutOrStdout(), catalog)
		},
	}
}

func printPlans(w io.Writer, catalog *billing.Catalog) error {
	code := strings.ToUpper(catalog.Currency())
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Errorf("catalog currency %q: %w", code, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	p := message.NewPrinter(language.English)
	price := func(minor int64) string {
		return p.Sprint(currency.Symbol(unit.Amount(float64(minor) / math.Pow10(scale))))
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "PLAN\tNAME\tMONTHLY\tANNUAL\tCURRENCY\n")
	for _, plan := range catalog.Plans() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			plan.ID, plan.Name,
			price(plan.MonthlyPrice), price(plan.AnnualPrice),
			code,
		)
	}
	return tw.Flush()
}
