package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SparkAIUR/rsspot-sdk/internal/constants"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spot"
	"github.com/SparkAIUR/rsspot-sdk/pkg/spotclient"
)

// NewCloudspacesCommand creates the cloudspaces command group.
func NewCloudspacesCommand(registry *spotclient.Registry) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cloudspaces",
		Aliases: []string{"cloudspace", "cs"},
		Short:   "Manage cloudspaces",
		Long:    "List, create, delete, and fetch kubeconfigs for Kubernetes cloudspaces",
	}

	cmd.AddCommand(newCloudspacesListCommand(registry))
	cmd.AddCommand(newCloudspacesGetCommand(registry))
	cmd.AddCommand(newCloudspacesCreateCommand(registry))
	cmd.AddCommand(newCloudspacesDeleteCommand(registry))
	cmd.AddCommand(newCloudspacesKubeconfigCommand(registry))

	return cmd
}

func newCloudspacesListCommand(registry *spotclient.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cloudspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			spaces, err := client.Cloudspaces().List(cmd.Context(), viper.GetString("org"))
			if err != nil {
				return err
			}

			return renderStructured(spaces.Items, func() error {
				return renderCloudspaceTable(spaces.Items)
			})
		},
	}
}

func renderCloudspaceTable(spaces []spot.CloudspaceItem) error {
	if len(spaces) == 0 {
		_, _ = os.Stdout.WriteString("No cloudspaces found\n")

		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Name", "Region", "Kubernetes", "Phase", "Health")

	for _, space := range spaces {
		phase := NotAvailable
		health := NotAvailable

		if space.Status != nil {
			phase = orNA(space.Status.Phase)
			health = orNA(space.Status.Health)
		}

		_ = table.Append(space.Metadata.Name, orNA(space.Spec.Region),
			orNA(space.Spec.KubernetesVersion), phase, health)
	}

	_ = table.Render()

	return nil
}

func newCloudspacesGetCommand(registry *spotclient.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "get NAME",
		Short: "Get one cloudspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			space, err := client.Cloudspaces().Get(cmd.Context(), args[0], viper.GetString("org"))
			if err != nil {
				return err
			}

			return renderStructured(space, func() error {
				return renderCloudspaceTable([]spot.CloudspaceItem{*space})
			})
		},
	}
}

//nolint:funlen // flag wiring dominates the length
func newCloudspacesCreateCommand(registry *spotclient.Registry) *cobra.Command {
	var (
		name              string
		region            string
		kubernetesVersion string
		deploymentType    string
		cni               string
		cloud             string
		webhookURL        string
		haControlPlane    bool
		gpuEnabled        bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a cloudspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			result, err := client.Cloudspaces().Create(cmd.Context(), &spot.CloudspaceCreateRequest{
				Name:                 name,
				Region:               region,
				KubernetesVersion:    kubernetesVersion,
				DeploymentType:       deploymentType,
				Cloud:                cloud,
				CNI:                  cni,
				PreemptionWebhookURL: webhookURL,
				HAControlPlane:       haControlPlane,
				GPUEnabled:           gpuEnabled,
			}, viper.GetString("org"))
			if err != nil {
				return err
			}

			return renderStructured(result, func() error {
				_, _ = fmt.Fprintf(os.Stdout, "Created cloudspace %q in %s\n", name, region)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "cloudspace name")
	cmd.Flags().StringVar(&region, "region", "", "region")
	cmd.Flags().StringVar(&kubernetesVersion, "kubernetes-version", constants.DefaultKubernetesVersion, "Kubernetes version")
	cmd.Flags().StringVar(&deploymentType, "deployment-type", "gen2", "deployment type")
	cmd.Flags().StringVar(&cni, "cni", "calico", "CNI plugin")
	cmd.Flags().StringVar(&cloud, "cloud", "default", "cloud type")
	cmd.Flags().StringVar(&webhookURL, "webhook", "", "preemption webhook URL")
	cmd.Flags().BoolVar(&haControlPlane, "ha-control-plane", false, "enable HA control plane")
	cmd.Flags().BoolVar(&gpuEnabled, "gpu", false, "enable GPU support")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("region")

	return cmd
}

func newCloudspacesDeleteCommand(registry *spotclient.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a cloudspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			result, err := client.Cloudspaces().Delete(cmd.Context(), args[0], viper.GetString("org"))
			if err != nil {
				return err
			}

			return renderStructured(result, func() error {
				_, _ = fmt.Fprintf(os.Stdout, "Deleted cloudspace %q\n", args[0])

				return nil
			})
		},
	}
}

func newCloudspacesKubeconfigCommand(registry *spotclient.Registry) *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:     "kubeconfig NAME",
		Aliases: []string{"get-config"},
		Short:   "Generate a kubeconfig for a cloudspace",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient(cmd.Context(), registry)
			if err != nil {
				return err
			}

			kubeconfig, err := client.Cloudspaces().GenerateKubeconfig(cmd.Context(), args[0], viper.GetString("org"))
			if err != nil {
				return err
			}

			if outputFile == "" {
				_, _ = os.Stdout.WriteString(kubeconfig)

				return nil
			}

			if err := os.MkdirAll(filepath.Dir(outputFile), constants.ConfigDirPerm); err != nil {
				return fmt.Errorf("creating kubeconfig directory: %w", err)
			}

			if err := os.WriteFile(outputFile, []byte(kubeconfig), constants.ConfigFilePerm); err != nil {
				return fmt.Errorf("writing kubeconfig: %w", err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "Wrote kubeconfig to %s\n", outputFile)

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "file", "f", "", "write kubeconfig to file instead of stdout")

	return cmd
}
