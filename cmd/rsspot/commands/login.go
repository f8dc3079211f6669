package commands

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/SparkAIUR/rsspot-sdk/internal/config"
	"github.com/SparkAIUR/rsspot-sdk/internal/constants"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spotclient"
)

// NewLoginCommand creates the login command. It validates the refresh
// token against the API before saving it to a profile; it builds a
// throwaway client so bad credentials never enter the shared registry.
func NewLoginCommand() *cobra.Command {
	var (
		refreshToken string
		org          string
		region       string
		clientID     string
		baseURL      string
		oauthURL     string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and save a profile",
		Long: `Exchange a Rackspace Spot refresh token for a bearer token, verify
API access, and save the credentials to the selected profile.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if refreshToken == "" {
				fmt.Fprint(os.Stderr, "Refresh token: ")

				byteToken, err := term.ReadPassword(int(syscall.Stdin))
				if err != nil {
					return fmt.Errorf("reading refresh token: %w", err)
				}

				fmt.Fprintln(os.Stderr)

				refreshToken = string(byteToken)
			}

			profileName := viper.GetString("profile")
			if profileName == "" {
				profileName = "default"
			}

			profile := &config.Profile{
				Org:          org,
				Region:       region,
				ClientID:     clientID,
				RefreshToken: refreshToken,
				BaseURL:      baseURL,
				OAuthURL:     oauthURL,
			}

			return runLoginCommand(cmd.Context(), profileName, profile)
		},
	}

	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Rackspace Spot refresh token (prompted when omitted)")
	cmd.Flags().StringVar(&org, "org", "", "default organization name")
	cmd.Flags().StringVar(&region, "region", "", "default region")
	cmd.Flags().StringVar(&clientID, "client-id", constants.DefaultClientID, "OAuth client id")
	cmd.Flags().StringVar(&baseURL, "base-url", constants.DefaultBaseURL, "Spot API base URL")
	cmd.Flags().StringVar(&oauthURL, "oauth-url", constants.DefaultOAuthURL, "OAuth base URL")

	return cmd
}

func runLoginCommand(ctx context.Context, profileName string, profile *config.Profile) error {
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := spotclient.New(ctx, profile.ClientConfig())
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if _, err := client.Authenticate(ctx, true); err != nil {
		return fmt.Errorf("verifying credentials: %w", err)
	}

	orgs, err := client.Organizations().List(ctx)
	if err != nil {
		return fmt.Errorf("listing organizations: %w", err)
	}

	manager, err := configManager()
	if err != nil {
		return err
	}

	if err := manager.UpsertProfile(profileName, profile, true); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Logged in; saved profile %q to %s\n", profileName, manager.Path())

	if len(orgs.Organizations) > 0 {
		fmt.Fprintln(os.Stdout, "Organizations:")

		for _, organization := range orgs.Organizations {
			fmt.Fprintf(os.Stdout, "  %s (%s)\n", organization.Name, organization.ID)
		}
	}

	return nil
}
