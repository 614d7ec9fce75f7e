package cli

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/musicmoon/marketplace/internal/identity"
	"github.com/musicmoon/marketplace/internal/session"
	"github.com/musicmoon/marketplace/internal/wallet"
)

func newSignUpCmd(app *App, reader *bufio.Reader) *cobra.Command {
	var in identity.RegisterInput
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if in.Email == "" {
				if in.Email, err = promptLine(reader, "Email", cmd.ErrOrStderr()); err != nil {
					return err
				}
			}
			if in.Name == "" {
				if in.Name, err = promptLine(reader, "Name", cmd.ErrOrStderr()); err != nil {
					return err
				}
			}
			if in.Password, err = promptPassword(in.Password, cmd.ErrOrStderr()); err != nil {
				return err
			}
			user, err := app.Session.SignUp(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed up as %s (%s)\n", user.Name, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&in.Name, "name", "n", "", "Display name")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVarP(&in.Password, "password", "p", "", "Password (prompted when empty)")
	return cmd
}

func newSignInCmd(app *App, reader *bufio.Reader) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if email == "" {
				if email, err = promptLine(reader, "Email", cmd.ErrOrStderr()); err != nil {
					return err
				}
			}
			if password, err = promptPassword(password, cmd.ErrOrStderr()); err != nil {
				return err
			}
			user, err := app.Session.SignIn(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", user.Name, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when empty)")
	return cmd
}

func newSignOutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the current identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.Session.SignOut(cmd.Context())
			return nil
		},
	}
}

func newWhoAmICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the current identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, ok := app.Session.Current()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), session.Anonymous)
				return nil
			}
			return printJSON(cmd.OutOrStdout(), user)
		},
	}
}

func newProfileCmd(app *App) *cobra.Command {
	profile := &cobra.Command{Use: "profile", Short: "Profile operations"}

	var name, bio, profileImage, coverImage string
	update := &cobra.Command{
		Use:   "update",
		Short: "Edit profile fields of the current identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := require(app, session.ActionEditProfile); err != nil {
				return err
			}
			var patch identity.ProfilePatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("bio") {
				patch.Bio = &bio
			}
			if flags.Changed("profile-image") {
				patch.ProfileImage = &profileImage
			}
			if flags.Changed("cover-image") {
				patch.CoverImage = &coverImage
			}
			user, err := app.Session.UpdateProfile(cmd.Context(), patch)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), user)
		},
	}
	update.Flags().StringVar(&name, "name", "", "Display name")
	update.Flags().StringVar(&bio, "bio", "", "Short biography")
	update.Flags().StringVar(&profileImage, "profile-image", "", "Profile image URL")
	update.Flags().StringVar(&coverImage, "cover-image", "", "Cover image URL")
	profile.AddCommand(update)
	return profile
}

func newWalletCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "wallet", Short: "Wallet operations"}

	cmd.AddCommand(&cobra.Command{
		Use:   "connect ADDRESS",
		Short: "Attach a wallet address to the current identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := require(app, session.ActionConnectWallet); err != nil {
				return err
			}
			user, err := wallet.Mirror(cmd.Context(), wallet.NewStaticConnector(args[0]), app.Session)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wallet %s connected\n", user.WalletAddress)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "disconnect",
		Short: "Detach the wallet from the current identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := require(app, session.ActionConnectWallet); err != nil {
				return err
			}
			current, _ := app.Session.Current()
			if _, err := wallet.Disconnect(cmd.Context(), wallet.NewStaticConnector(current.WalletAddress), app.Session); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wallet disconnected")
			return nil
		},
	})
	return cmd
}
