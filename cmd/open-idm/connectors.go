package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/open-idm/open-idm/internal/connectors/awsidc"
	"github.com/open-idm/open-idm/internal/connectors/okta"
	"github.com/open-idm/open-idm/internal/connectors/registry"
	"github.com/open-idm/open-idm/internal/connectors/vault"
)

func buildConnectorRegistry() (*registry.Registry, error) {
	reg := registry.NewRegistry()
	if err := reg.Register(okta.NewDefinition()); err != nil {
		return nil, err
	}
	if err := reg.Register(awsidc.NewDefinition()); err != nil {
		return nil, err
	}
	if err := reg.Register(vault.NewDefinition()); err != nil {
		return nil, err
	}
	return reg, nil
}

var connectorsCmd = &cobra.Command{
	Use:   "connectors",
	Short: "List the installed connector kinds.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := buildConnectorRegistry()
		if err != nil {
			return err
		}
		for _, def := range reg.All() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", def.Kind(), def.Framework(), def.DisplayName())
		}
		return nil
	},
}
