package main

import (
	"fmt"
	"strings"

	"taskgen/internal/filter"

	"github.com/spf13/cobra"
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Convert extra filter text to and from section/price pairs",
}

var filterDecodeCmd = &cobra.Command{
	Use:   "decode <text>",
	Short: "Split filter text into one SECTION<TAB>PRICE line per pair",
	Args:  cobra.ExactArgs(1),
	RunE:  runFilterDecode,
}

var filterEncodeCmd = &cobra.Command{
	Use:   "encode <section:price>...",
	Short: "Join pairs into filter text; incomplete pairs are dropped",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFilterEncode,
}

func runFilterDecode(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, p := range filter.Decode(args[0]) {
		fmt.Fprintf(out, "%s\t%s\n", p.Section, p.Price)
	}
	return nil
}

func runFilterEncode(cmd *cobra.Command, args []string) error {
	var pairs []filter.Pair
	for _, a := range args {
		pairs = append(pairs, filter.Decode(a)...)
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(filter.Encode(pairs)))
	return nil
}
