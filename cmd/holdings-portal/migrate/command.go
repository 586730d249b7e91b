package migrate

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/holdings-portal/internal/business"
	"github.com/openkcm/holdings-portal/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"migrate",
		"Holdings Portal migrations",
		"Holdings Portal migrations create the browser storage schema in postgres",
		buildInfo,
		cmdutils.RunAsJob,
		business.MigrateMain,
	)
}
