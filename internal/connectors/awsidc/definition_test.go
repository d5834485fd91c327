package awsidc

import (
	"testing"

	"github.com/open-idm/open-idm/internal/connectors/configstore"
)

func TestDefinition_IsConfigured(t *testing.T) {
	t.Parallel()

	d := NewDefinition()

	tests := []struct {
		name string
		cfg  configstore.AWSIdentityCenterConfig
		want bool
	}{
		{
			name: "default chain",
			cfg: configstore.AWSIdentityCenterConfig{
				Region:          "eu-west-1",
				IdentityStoreID: "d-123456",
				AuthType:        configstore.AWSIdentityCenterAuthTypeDefaultChain,
			},
			want: true,
		},
		{
			name: "access key with credentials",
			cfg: configstore.AWSIdentityCenterConfig{
				Region:          "eu-west-1",
				IdentityStoreID: "d-123456",
				AuthType:        configstore.AWSIdentityCenterAuthTypeAccessKey,
				AccessKeyID:     "AKIA123",
				SecretAccessKey: "secret",
			},
			want: true,
		},
		{
			name: "access key without credentials",
			cfg: configstore.AWSIdentityCenterConfig{
				Region:          "eu-west-1",
				IdentityStoreID: "d-123456",
				AuthType:        configstore.AWSIdentityCenterAuthTypeAccessKey,
			},
		},
		{name: "missing region", cfg: configstore.AWSIdentityCenterConfig{IdentityStoreID: "d-123456"}},
		{name: "missing identity store", cfg: configstore.AWSIdentityCenterConfig{Region: "eu-west-1"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := d.IsConfigured(tc.cfg); got != tc.want {
				t.Fatalf("IsConfigured() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDefinition_SourceName(t *testing.T) {
	t.Parallel()

	d := NewDefinition()
	named := configstore.AWSIdentityCenterConfig{Name: "prod", IdentityStoreID: "d-123456"}
	if got := d.SourceName(named); got != "prod" {
		t.Fatalf("SourceName() = %q, want prod", got)
	}
	unnamed := configstore.AWSIdentityCenterConfig{IdentityStoreID: "d-123456"}
	if got := d.SourceName(unnamed); got != "d-123456" {
		t.Fatalf("SourceName() = %q, want d-123456", got)
	}
}
