package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbviews/dbviews/pkg/view"
)

var validateManifest string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the view manifest",
	Long:  `Validate the view manifest without connecting to a database.`,
	Example: `  # Validate a specific manifest file
  dbviews validate --manifest db/views.yaml

  # Validate using config file settings
  dbviews validate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		manifestPath := resolveString(validateManifest, cfg.Manifest)

		reg, err := loadRegistry(manifestPath)
		if err != nil {
			return err
		}

		if !quiet {
			fmt.Printf("Manifest is valid. Found %d views:\n", reg.Len())
			for _, d := range reg.Descriptors() {
				extra := ""
				if d.Kind == view.KindMaterialized && len(d.Indexes) > 0 {
					extra = fmt.Sprintf(" (%d indexes)", len(d.Indexes))
				}
				fmt.Printf("  - %s [%s]%s\n", d.Table, d.Kind, extra)
			}
		}

		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateManifest, "manifest", "", "view manifest file or directory")
}
