package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bizmatters/deviation-service/internal/classify"
	"github.com/bizmatters/deviation-service/internal/coerce"
	"github.com/bizmatters/deviation-service/internal/merge"
	"github.com/bizmatters/deviation-service/internal/parse"
	"github.com/bizmatters/deviation-service/internal/record"
)

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract [file]",
		Short: "Pull the JSON object out of raw model output",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, argOrEmpty(args))
			if err != nil {
				return err
			}
			rec, ok := parse.ExtractJSON(raw)
			if !ok {
				return errors.New("no JSON object found")
			}
			fmt.Fprintln(cmd.OutOrStdout(), rec.Indent())
			return nil
		},
	}
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [file]",
		Short: "Read a JSON or labelled strict-text document as a record",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, argOrEmpty(args))
			if err != nil {
				return err
			}
			rec, err := parse.Input(raw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rec.Indent())
			return nil
		},
	}
}

func newMergeCmd() *cobra.Command {
	var union string
	cmd := &cobra.Command{
		Use:   "merge <base.json> <update.json>",
		Short: "Deep-merge an update into a base record",
		Long: "Prints the merged record. Keys the update adds or omits relative to\n" +
			"the base are reported on stderr.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := readRecord(cmd, args[0])
			if err != nil {
				return err
			}
			update, err := readRecord(cmd, args[1])
			if err != nil {
				return err
			}
			drift := merge.Drift(base, update)
			if !drift.None() {
				fmt.Fprintf(cmd.ErrOrStderr(), "added: %s\nmissing: %s\n",
					strings.Join(drift.Added, ", "), strings.Join(drift.Missing, ", "))
			}
			merged := merge.Merge(base, update, merge.WithListUnion(splitList(union)...))
			fmt.Fprintln(cmd.OutOrStdout(), merged.Indent())
			return nil
		},
	}
	cmd.Flags().StringVar(&union, "union", "", "comma-separated list keys merged as a de-duplicated union")
	return cmd
}

func readRecord(cmd *cobra.Command, name string) (*record.Record, error) {
	raw, err := readInput(cmd, name)
	if err != nil {
		return nil, err
	}
	rec, err := record.ParseString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return rec, nil
}

func newCoerceCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "coerce [file]",
		Short: "Force model output into the strict line format",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, argOrEmpty(args))
			if err != nil {
				return err
			}
			var out string
			switch format {
			case "impact":
				out = coerce.Coerce(raw, coerce.ImpactAssessmentFields)
			case "incident":
				out = coerce.IncidentAnalysisBanner + "\n" + coerce.Coerce(raw, coerce.IncidentAnalysisFields)
			default:
				return fmt.Errorf("unknown format %q; valid values: impact, incident", format)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "impact", "output format: impact or incident")
	return cmd
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <instruction>",
		Short: "Show the modification type and prompt guidance for an instruction",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := classify.Classify(strings.Join(args, " "))
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, kind)
			fmt.Fprintln(out, classify.Guidance(kind))
			return nil
		},
	}
}
