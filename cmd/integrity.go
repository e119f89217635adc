package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"mixer-report/core/errors"
	"mixer-report/feature/integrity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	fixFlag  bool
	jsonFlag bool
)

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Check source and sink tables against the site profile",
	Long: `Checks that every table named in the site profile exists with the columns the
pipeline needs. In storage mode it also checks that every stream has an export.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadBootstrap(needs{db: true, profile: true})
		if err != nil {
			return err
		}
		defer rt.close()

		svc := integrity.NewService(rt.store, rt.cfg.Storage.Bucket, rt.logger, rt.db, rt.profile)
		report, err := svc.CheckSchema()
		if err != nil {
			return err
		}

		var missingExports []string
		if rt.store != nil && len(svc.Prefixes()) > 0 {
			missingExports, err = svc.CheckExports(cmd.Context())
			if err != nil {
				return err
			}
			if len(missingExports) > 0 && fixFlag {
				if err := svc.FixExports(cmd.Context(), missingExports); err != nil {
					return err
				}
			}
		}

		if jsonFlag {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(map[string]any{"schema": report, "missing_exports": missingExports}); err != nil {
				return err
			}
		} else {
			for name, tbl := range report.Tables {
				rt.logger.Info("Table checked",
					zap.String("target", name),
					zap.String("table", tbl.Table),
					zap.String("status", tbl.Status),
					zap.Strings("missing_columns", tbl.MissingColumns))
			}
			if len(missingExports) > 0 {
				rt.logger.Warn("Streams without exports", zap.Strings("streams", missingExports), zap.Bool("fixed", fixFlag))
			}
		}

		if !report.Matched {
			return errors.Mark(fmt.Errorf("schema does not match the site profile"), errors.ErrSchemaMismatch)
		}
		return nil
	},
}

func init() {
	integrityCmd.Flags().BoolVar(&fixFlag, "fix", false, "Create missing export folders")
	integrityCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the report as JSON")
	RootCmd.AddCommand(integrityCmd)
}
