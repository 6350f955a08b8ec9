package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"trackeco/internal/database"
	"trackeco/internal/models"
)

func loginCmd(configPath func() string) *cobra.Command {
	var (
		email         string
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the TrackEco API",
		Long: `Signs in and stores the session token in the local database.
Signing in needs the network once; after that submissions work offline.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			password, err := readPassword(cmd, passwordStdin)
			if err != nil {
				return err
			}

			a, err := openApp(configPath())
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			session := &models.Session{
				UserID:    resp.User.ID,
				Email:     resp.User.Email,
				Token:     resp.Token,
				CreatedAt: time.Now().Unix(),
			}
			if err := database.SaveSession(a.db, session); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✅ Signed in as %s (%s, %d XP)\n", resp.User.Email, resp.User.EcoRank, resp.User.TotalXP)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

func readPassword(cmd *cobra.Command, fromStdin bool) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && !fromStdin && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.OutOrStdout(), "Password: ")
		password, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(password), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("empty password")
	}
	return password, nil
}

func logoutCmd(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Long:  `Forgets the session token. Local records are kept and sync again after the next login.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(configPath())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := database.DeleteSession(a.db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}
