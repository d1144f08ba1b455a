package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tagforge/internal/config"
	"tagforge/internal/report"
	"tagforge/internal/schema"
)

func newSchemaCommand(ctx *commandContext) *cobra.Command {
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Tag schema utilities",
	}

	schemaCmd.AddCommand(newSchemaInitCommand())
	schemaCmd.AddCommand(newSchemaCheckCommand(ctx))
	schemaCmd.AddCommand(newSchemaShowCommand(ctx))

	return schemaCmd
}

func newSchemaInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample tag schema file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				target = config.Default().Schema.Path
			}
			expanded, err := config.ExpandPath(target)
			if err != nil {
				return fmt.Errorf("resolve schema path: %w", err)
			}
			target = expanded

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("schema file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check schema path: %w", err)
				}
			}
			if dir := filepath.Dir(target); dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create schema directory %q: %w", dir, err)
				}
			}

			if err := schema.CreateSample(target); err != nil {
				return fmt.Errorf("create sample schema: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample schema to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the schema file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing schema if present")
	return cmd
}

func newSchemaCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Parse and validate the configured schema file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			s, err := schema.LoadFile(cfg.Schema.Path)
			if err != nil {
				return fmt.Errorf("schema invalid: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Schema path: %s\n", cfg.Schema.Path)
			fmt.Fprintf(out, "Schema valid: %d categories, %d dimensions\n",
				len(s.Categories()), len(s.Dimensions()))
			return nil
		},
	}
}

func newSchemaShowCommand(ctx *commandContext) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display the configured schema vocabulary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			s, err := schema.LoadFile(cfg.Schema.Path)
			if err != nil {
				return fmt.Errorf("load schema: %w", err)
			}

			dims := s.Dimensions()
			if category != "" {
				if !s.HasCategory(category) {
					return fmt.Errorf("unknown category %q (valid: %s)", category, strings.Join(s.Categories(), ", "))
				}
				dims = s.DimensionsFor(category)
			}

			rows := make([][]string, 0, len(dims))
			for _, dim := range dims {
				var values string
				if dim.Enumerated() {
					values = strings.Join(dim.Values, ", ")
				} else {
					values = fmt.Sprintf("%g-%g%s", dim.Range.Min, dim.Range.Max, dim.Range.Unit)
				}
				appliesTo := "all categories"
				if len(dim.AppliesTo) > 0 {
					names := make([]string, 0, len(dim.AppliesTo))
					for _, category := range dim.AppliesTo {
						names = append(names, report.DisplayCategory(category))
					}
					appliesTo = strings.Join(names, ", ")
				}
				rows = append(rows, []string{dim.Name, values, appliesTo})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Dimension", "Values", "Applies To"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only show dimensions applicable to this category")
	return cmd
}
