package okta

import (
	"github.com/open-idm/open-idm/internal/connectors/configstore"
	"github.com/open-idm/open-idm/internal/connectors/registry"
)

type Definition struct{}

func NewDefinition() *Definition {
	return &Definition{}
}

func (d *Definition) Kind() string {
	return configstore.KindOkta
}

func (d *Definition) DisplayName() string {
	return "Okta"
}

func (d *Definition) Framework() string {
	return "okta-sdk"
}

func (d *Definition) DecodeConfig(raw []byte) (any, error) {
	cfg, err := configstore.DecodeOktaConfig(raw)
	if err != nil {
		return nil, err
	}
	return cfg.Normalized(), nil
}

func (d *Definition) ValidateConfig(cfg any) error {
	return cfg.(configstore.OktaConfig).Validate()
}

func (d *Definition) IsConfigured(cfg any) bool {
	c := cfg.(configstore.OktaConfig)
	return c.Domain != "" && c.Token != ""
}

func (d *Definition) SourceName(cfg any) string {
	return cfg.(configstore.OktaConfig).Domain
}

func (d *Definition) NewClient(cfg any) (registry.Client, error) {
	c := cfg.(configstore.OktaConfig)
	return New(c.BaseURL(), c.Token)
}
