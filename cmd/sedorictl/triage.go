package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/garyellow/sedori-linebot-go/internal/triage"
)

func newShippingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shipping",
		Short: "Estimate shipping in yen",
		Args:  cobra.NoArgs,
		RunE:  runShippingCmd,
	}
	cmd.Flags().String("size", "", "size code: S, M, L or XL")
	cmd.Flags().String("weight", "", `weight such as "850g" or "1.2kg"`)
	cmd.Flags().String("name", "", "item name used to infer a size")
	return cmd
}

func runShippingCmd(cmd *cobra.Command, _ []string) error {
	size, _ := cmd.Flags().GetString("size")
	weight, _ := cmd.Flags().GetString("weight")
	name, _ := cmd.Flags().GetString("name")

	var kg *float64
	if weight != "" {
		v, ok := triage.NormalizeWeight(triage.FoldWidth(weight))
		if !ok {
			return fmt.Errorf("cannot read weight %q", weight)
		}
		kg = &v
	}

	yen := triage.EstimateShipping(triage.Size(size), kg, name)
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%d\n", yen)
	return err
}

func newProfitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profit <sell> <cost> <shipping>",
		Short: "Compute profit after marketplace fee",
		Args:  cobra.ExactArgs(3),
		RunE:  runProfitCmd,
	}
	cmd.Flags().Float64("fee-rate", triage.DefaultFeeRate, "marketplace fee rate")
	return cmd
}

func runProfitCmd(cmd *cobra.Command, args []string) error {
	amounts := make([]int, len(args))
	for i, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("argument %d: %q is not a yen amount", i+1, arg)
		}
		amounts[i] = n
	}
	feeRate, _ := cmd.Flags().GetFloat64("fee-rate")

	profit := triage.ComputeProfit(amounts[0], amounts[1], amounts[2], feeRate)
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%d\n", profit)
	return err
}

func newWeightCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weight <text>",
		Short: "Normalize a weight to kilograms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kg, ok := triage.NormalizeWeight(triage.FoldWidth(args[0]))
			if !ok {
				return fmt.Errorf("no weight in %q", args[0])
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%.3f\n", kg)
			return err
		},
	}
}
