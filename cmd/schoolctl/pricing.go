package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/schoolctl/internal/cli"
	"github.com/Veraticus/schoolctl/internal/console"
	"github.com/Veraticus/schoolctl/internal/model"
)

func pricingCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pricing",
		Short: "Manage inventory prices",
	}
	cmd.AddCommand(bulkPriceCmd(e))
	return cmd
}

func bulkPriceCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Set several unit prices in one request",
		Long: `Set the unit price of several pricing rows at once.

Example:
  schoolctl pricing bulk --set 1=1350 --set 4=99.50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pairs, _ := cmd.Flags().GetStringArray("set")
			req, err := parsePrices(pairs)
			if err != nil {
				return err
			}

			return e.withScreens(cmd.Context(), func(_ *backend, reg *console.Registry) error {
				if _, err := reg.BulkUpdatePrices(cmd.Context(), req); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatNotification(reg.Notifier().Current()))
				return nil
			})
		},
	}

	cmd.Flags().StringArray("set", nil, "id=price (repeatable)")
	_ = cmd.MarkFlagRequired("set")

	return cmd
}

// parsePrices reads id=price pairs. Prices must not be negative.
func parsePrices(pairs []string) (model.BulkPriceRequest, error) {
	var req model.BulkPriceRequest
	seen := make(map[int]bool, len(pairs))
	for _, p := range pairs {
		rawID, rawPrice, ok := strings.Cut(p, "=")
		if !ok {
			return req, fmt.Errorf("price %q is not id=price", p)
		}
		id, err := strconv.Atoi(strings.TrimSpace(rawID))
		if err != nil || id <= 0 {
			return req, fmt.Errorf("invalid pricing row ID %q", rawID)
		}
		if seen[id] {
			return req, fmt.Errorf("pricing row %d is set twice", id)
		}
		seen[id] = true

		price, err := decimal.NewFromString(strings.TrimSpace(rawPrice))
		if err != nil || price.IsNegative() {
			return req, fmt.Errorf("%q is not a valid price", rawPrice)
		}
		req.Items = append(req.Items, model.PriceUpdate{ID: id, UnitPrice: price})
	}
	if len(req.Items) == 0 {
		return req, fmt.Errorf("no prices given")
	}
	return req, nil
}
