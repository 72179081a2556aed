package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/idr-analysis/idrconnect/internal/content"
	"github.com/idr-analysis/idrconnect/internal/interfaces"
)

func newProfileCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage stored connection profiles",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List profiles",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return listProfiles(root)
			},
		},
		&cobra.Command{
			Use:   "show NAME",
			Short: "Show a profile",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				profile, err := root.app.Deps().ConfigManager.LoadProfile(args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(root.app.Stdout(), root.app.Deps().Renderer.Fields(profileFields(profile)))
				return err
			},
		},
		newProfileSaveCommand(root),
		&cobra.Command{
			Use:   "delete NAME",
			Short: "Delete a profile",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return root.app.Deps().ConfigManager.DeleteProfile(args[0])
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Remove all stored passwords and replace the encryption key",
			Long: `Remove the password of every profile and generate a new encryption key.
Use this when stored passwords can no longer be decrypted, for example after the
host name or user account changed. Hosts, ports and user names are kept.`,
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cleared, err := root.app.Deps().ConfigManager.ResetCredentials()
				if err != nil {
					return err
				}
				if len(cleared) == 0 {
					_, err = fmt.Fprintln(root.app.Stdout(), "No stored passwords; encryption key replaced")
					return err
				}
				_, err = fmt.Fprintf(root.app.Stdout(), "Removed stored passwords from: %s\n", strings.Join(cleared, ", "))
				return err
			},
		},
	)
	return cmd
}

func newProfileSaveCommand(root *rootOptions) *cobra.Command {
	var profile interfaces.Profile
	var verbosity int

	cmd := &cobra.Command{
		Use:   "save NAME",
		Short: "Create or replace a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile.Name = args[0]
			if cmd.Flags().Changed("verbosity") {
				profile.Verbosity = &verbosity
			}
			if err := root.app.Deps().ConfigManager.SaveProfile(&profile); err != nil {
				return err
			}
			_, err := fmt.Fprintf(root.app.Stdout(), "Saved profile %s\n", profile.Name)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&profile.Host, "host", "", "host name, configuration URL or transport URL")
	flags.IntVar(&profile.Port, "port", 0, "server port")
	flags.StringVar(&profile.User, "user", "", "user name")
	flags.StringVar(&profile.Password, "password", "", "password, stored encrypted")
	flags.IntVarP(&verbosity, "verbosity", "v", 1, "verbosity used when connecting with this profile")
	return cmd
}

func listProfiles(root *rootOptions) error {
	cm := root.app.Deps().ConfigManager
	names, err := cm.ListProfiles()
	if err != nil {
		return err
	}

	table := content.Table{Headers: []string{"NAME", "HOST", "PORT", "USER"}}
	for _, name := range names {
		p, err := cm.LoadProfile(name)
		if err != nil {
			return err
		}
		table.Rows = append(table.Rows, []string{p.Name, p.Host, portText(p.Port), p.User})
	}

	_, err = fmt.Fprintln(root.app.Stdout(), root.app.Deps().Renderer.Table(table))
	return err
}

func profileFields(p *interfaces.Profile) []content.Field {
	password := ""
	if p.Password != "" {
		password = "********"
	}
	verbosity := ""
	if p.Verbosity != nil {
		verbosity = strconv.Itoa(*p.Verbosity)
	}
	return []content.Field{
		{Key: "name", Value: p.Name},
		{Key: "host", Value: p.Host},
		{Key: "port", Value: portText(p.Port)},
		{Key: "user", Value: p.User},
		{Key: "password", Value: password},
		{Key: "verbosity", Value: verbosity},
	}
}

func portText(port int) string {
	if port == 0 {
		return ""
	}
	return strconv.Itoa(port)
}
