package commands

import (
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SparkAIUR/rsspot-sdk/internal/config"
	"github.com/SparkAIUR/rsspot-sdk/internal/constants"
)

// NewConfigCommand creates the profile configuration command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Aliases: []string{"profiles"},
		Short:   "Manage local account profiles",
		Long:    "List, show, create, activate, and delete profiles in the local config file",
	}

	cmd.AddCommand(newConfigListCommand())
	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUseCommand())
	cmd.AddCommand(newConfigDeleteCommand())

	return cmd
}

func configManager() (*config.Manager, error) {
	return config.NewManager(viper.GetString("config_file"))
}

func newConfigListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := configManager()
			if err != nil {
				return err
			}

			file, err := manager.Load()
			if err != nil {
				return err
			}

			names, err := manager.ListProfiles()
			if err != nil {
				return err
			}

			return renderStructured(names, func() error {
				if len(names) == 0 {
					_, _ = os.Stdout.WriteString("No profiles configured\n")

					return nil
				}

				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Name", "Org", "Region", "Active")

				for _, name := range names {
					profile := file.Profiles[name]

					active := ""
					if name == file.ActiveProfile {
						active = "*"
					}

					org := profile.Org
					if org == "" {
						org = profile.OrgID
					}

					_ = table.Append(name, orNA(org), orNA(profile.Region), active)
				}

				_ = table.Render()

				return nil
			})
		},
	}
}

// redactedProfile is the display form of a profile; credentials are
// masked, never printed.
type redactedProfile struct {
	Org          string `json:"org,omitempty"           yaml:"org,omitempty"`
	OrgID        string `json:"org_id,omitempty"        yaml:"org_id,omitempty"`
	Region       string `json:"region,omitempty"        yaml:"region,omitempty"`
	ClientID     string `json:"client_id,omitempty"     yaml:"client_id,omitempty"`
	BaseURL      string `json:"base_url,omitempty"      yaml:"base_url,omitempty"`
	OAuthURL     string `json:"oauth_url,omitempty"     yaml:"oauth_url,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty" yaml:"refresh_token,omitempty"`
	AccessToken  string `json:"access_token,omitempty"  yaml:"access_token,omitempty"`
}

func redactProfile(profile *config.Profile) redactedProfile {
	masked := func(value string) string {
		if value == "" {
			return ""
		}

		return "***"
	}

	return redactedProfile{
		Org:          profile.Org,
		OrgID:        profile.OrgID,
		Region:       profile.Region,
		ClientID:     profile.ClientID,
		BaseURL:      profile.BaseURL,
		OAuthURL:     profile.OAuthURL,
		RefreshToken: masked(profile.RefreshToken),
		AccessToken:  masked(profile.AccessToken),
	}
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [NAME]",
		Short: "Show a profile (credentials masked)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := configManager()
			if err != nil {
				return err
			}

			name := ""
			if len(args) > 0 {
				name = args[0]
			}

			profile, err := manager.GetProfile(name)
			if err != nil {
				return err
			}

			display := redactProfile(profile)

			return renderStructured(display, func() error {
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Field", "Value")

				_ = table.Append("org", orNA(display.Org))
				_ = table.Append("org_id", orNA(display.OrgID))
				_ = table.Append("region", orNA(display.Region))
				_ = table.Append("client_id", orNA(display.ClientID))
				_ = table.Append("base_url", orNA(display.BaseURL))
				_ = table.Append("oauth_url", orNA(display.OAuthURL))
				_ = table.Append("refresh_token", orNA(display.RefreshToken))
				_ = table.Append("access_token", orNA(display.AccessToken))
				_ = table.Append("request_timeout_seconds",
					strconv.FormatFloat(profile.RequestTimeoutSeconds, 'f', -1, 64))
				_ = table.Render()

				return nil
			})
		},
	}
}

//nolint:funlen // flag wiring dominates the length
func newConfigSetCommand() *cobra.Command {
	var (
		name         string
		org          string
		orgID        string
		region       string
		refreshToken string
		accessToken  string
		clientID     string
		baseURL      string
		oauthURL     string
		activate     bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Create or update a profile",
		Long:  "Write a profile to the local config file, creating the file if needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := configManager()
			if err != nil {
				return err
			}

			profile := &config.Profile{
				Org:          org,
				OrgID:        orgID,
				Region:       region,
				ClientID:     clientID,
				RefreshToken: refreshToken,
				AccessToken:  accessToken,
				BaseURL:      baseURL,
				OAuthURL:     oauthURL,
			}

			if err := manager.UpsertProfile(name, profile, activate); err != nil {
				return err
			}

			_, _ = os.Stdout.WriteString("Saved profile " + strconv.Quote(name) +
				" to " + manager.Path() + "\n")

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "default", "profile name to write")
	cmd.Flags().StringVar(&org, "org", "", "organization name")
	cmd.Flags().StringVar(&orgID, "org-id", "", "organization id (org-...)")
	cmd.Flags().StringVar(&region, "region", "", "default region")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Rackspace Spot refresh token")
	cmd.Flags().StringVar(&accessToken, "access-token", "", "optional id_token seed")
	cmd.Flags().StringVar(&clientID, "client-id", constants.DefaultClientID, "OAuth client id")
	cmd.Flags().StringVar(&baseURL, "base-url", constants.DefaultBaseURL, "Spot API base URL")
	cmd.Flags().StringVar(&oauthURL, "oauth-url", constants.DefaultOAuthURL, "OAuth base URL")
	cmd.Flags().BoolVar(&activate, "activate", true, "make this the active profile")

	return cmd
}

func newConfigUseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use NAME",
		Short: "Activate a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := configManager()
			if err != nil {
				return err
			}

			if err := manager.SetActiveProfile(args[0]); err != nil {
				return err
			}

			_, _ = os.Stdout.WriteString("Active profile is now " + strconv.Quote(args[0]) + "\n")

			return nil
		},
	}
}

func newConfigDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := configManager()
			if err != nil {
				return err
			}

			if err := manager.DeleteProfile(args[0]); err != nil {
				return err
			}

			_, _ = os.Stdout.WriteString("Deleted profile " + strconv.Quote(args[0]) + "\n")

			return nil
		},
	}
}
