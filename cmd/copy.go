package cmd

import (
	"mixer-report/core/database"
	"mixer-report/core/errors"
	"mixer-report/feature/mixer"

	"github.com/spf13/cobra"
)

var (
	copyTable string
	copyKey   string
)

// copyCmd copies new rows of a shared upstream table into the plant database.
var copyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy new rows of an upstream table into the plant database",
	Long: `Reads the whole table from the upstream database, drops the rows whose key
already exists in the plant database and appends the rest.

Example:
  mixer-report copy --table consumption_booking --key ID`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if copyTable == "" || copyKey == "" {
			return errors.New("--table and --key are required")
		}

		rt, err := loadBootstrap(needs{db: true})
		if err != nil {
			return err
		}
		defer rt.close()

		upstream, err := database.Connect(rt.cfg.Upstream)
		if err != nil {
			return errors.Wrap(err, "upstream database")
		}
		defer database.Close(upstream)

		_, err = mixer.NewCopier(upstream, rt.db, rt.logger).Copy(cmd.Context(), copyTable, copyKey)
		return err
	},
}

func init() {
	copyCmd.Flags().StringVar(&copyTable, "table", "", "Table to copy")
	copyCmd.Flags().StringVar(&copyKey, "key", "", "Column identifying a row")
	RootCmd.AddCommand(copyCmd)
}
