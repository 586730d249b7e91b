package housekeeper

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/holdings-portal/internal/business"
	"github.com/openkcm/holdings-portal/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"housekeeper",
		"Holdings Portal housekeeping job",
		"Holdings Portal housekeeping job purges expired browser storage from postgres",
		buildInfo,
		cmdutils.RunAsService,
		business.HousekeeperMain,
	)
}
