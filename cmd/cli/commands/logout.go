package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/vacancy-cascade/pkg/utils"
)

// LogoutCmd creates the logout command
func LogoutCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored Google OAuth token for this environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			utils.ClearToken()
			app.sheetsClient = nil

			if err := utils.DeleteTokenFile(app.Env); err != nil {
				return err
			}

			fmt.Println("✓ Logged out. The next sheets command will ask you to authorize again.")
			return nil
		},
	}
}
