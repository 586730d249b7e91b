package apiserver

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/holdings-portal/internal/business"
	"github.com/openkcm/holdings-portal/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"api-server",
		"Holdings Portal server",
		"Holdings Portal server signs users in at the identity provider and renders their holdings",
		buildInfo,
		cmdutils.RunAsService,
		business.Main,
	)
}
