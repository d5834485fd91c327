package vault

import (
	"github.com/open-idm/open-idm/internal/connectors/configstore"
	"github.com/open-idm/open-idm/internal/connectors/registry"
)

type Definition struct{}

func NewDefinition() *Definition {
	return &Definition{}
}

func (d *Definition) Kind() string {
	return configstore.KindVault
}

func (d *Definition) DisplayName() string {
	return "HashiCorp Vault"
}

func (d *Definition) Framework() string {
	return "vault-api"
}

func (d *Definition) DecodeConfig(raw []byte) (any, error) {
	cfg, err := configstore.DecodeVaultConfig(raw)
	if err != nil {
		return nil, err
	}
	return cfg.Normalized(), nil
}

func (d *Definition) ValidateConfig(cfg any) error {
	return cfg.(configstore.VaultConfig).Validate()
}

func (d *Definition) IsConfigured(cfg any) bool {
	c := cfg.(configstore.VaultConfig)
	if c.Address == "" {
		return false
	}
	switch c.AuthType {
	case configstore.VaultAuthTypeAppRole:
		return c.AppRoleRoleID != "" && c.AppRoleSecretID != ""
	default:
		return c.Token != ""
	}
}

func (d *Definition) SourceName(cfg any) string {
	return cfg.(configstore.VaultConfig).SourceName()
}

func (d *Definition) NewClient(cfg any) (registry.Client, error) {
	c := cfg.(configstore.VaultConfig)
	return New(Options{
		Address:           c.Address,
		Namespace:         c.Namespace,
		AuthType:          c.AuthType,
		Token:             c.Token,
		AppRoleMountPath:  c.AppRoleMountPath,
		AppRoleRoleID:     c.AppRoleRoleID,
		AppRoleSecretID:   c.AppRoleSecretID,
		UserpassMountPath: c.UserpassMountPath,
		TLSSkipVerify:     c.TLSSkipVerify,
		TLSCACertPEM:      c.TLSCACertPEM,
	})
}
