package awsidc

import (
	"context"

	"github.com/open-idm/open-idm/internal/connectors/configstore"
	"github.com/open-idm/open-idm/internal/connectors/registry"
)

type Definition struct{}

func NewDefinition() *Definition {
	return &Definition{}
}

func (d *Definition) Kind() string {
	return configstore.KindAWSIdentityCenter
}

func (d *Definition) DisplayName() string {
	return "AWS Identity Center"
}

func (d *Definition) Framework() string {
	return "aws-sdk"
}

func (d *Definition) DecodeConfig(raw []byte) (any, error) {
	cfg, err := configstore.DecodeAWSIdentityCenterConfig(raw)
	if err != nil {
		return nil, err
	}
	return cfg.Normalized(), nil
}

func (d *Definition) ValidateConfig(cfg any) error {
	return cfg.(configstore.AWSIdentityCenterConfig).Validate()
}

func (d *Definition) IsConfigured(cfg any) bool {
	c := cfg.(configstore.AWSIdentityCenterConfig)
	if c.Region == "" || c.IdentityStoreID == "" {
		return false
	}
	if c.AuthType == configstore.AWSIdentityCenterAuthTypeAccessKey {
		return c.AccessKeyID != "" && c.SecretAccessKey != ""
	}
	return true
}

func (d *Definition) SourceName(cfg any) string {
	c := cfg.(configstore.AWSIdentityCenterConfig)
	if c.Name != "" {
		return c.Name
	}
	return c.IdentityStoreID
}

func (d *Definition) NewClient(cfg any) (registry.Client, error) {
	c := cfg.(configstore.AWSIdentityCenterConfig)
	return New(context.Background(), Options{
		Region:          c.Region,
		InstanceArn:     c.InstanceARN,
		IdentityStoreID: c.IdentityStoreID,
		AuthType:        c.AuthType,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		SessionToken:    c.SessionToken,
	})
}
