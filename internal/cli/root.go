package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/musicmoon/marketplace/internal/session"
)

var errSignedOut = errors.New("not signed in, run `musicmoon signin` first")

// NewRootCommand builds the musicmoon command tree over app. Prompts read
// from in.
func NewRootCommand(app *App, in io.Reader) *cobra.Command {
	reader := bufio.NewReader(in)
	root := &cobra.Command{
		Use:           "musicmoon",
		Short:         "Browse, mint and trade music NFTs from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			state, err := app.Session.Restore(cmd.Context())
			if err != nil {
				return err
			}
			app.Logger.Debug("session restored", "state", state)
			return nil
		},
	}
	root.SetOut(app.out)

	root.AddCommand(
		newSignUpCmd(app, reader),
		newSignInCmd(app, reader),
		newSignOutCmd(app),
		newWhoAmICmd(app),
		newProfileCmd(app),
		newWalletCmd(app),
		newItemsCmd(app),
	)
	return root
}

// require fails unless the session allows action.
func require(app *App, action session.Action) error {
	if !app.Session.Allowed(action) {
		return errSignedOut
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
