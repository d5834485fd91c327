package okta

import (
	"testing"

	"github.com/open-idm/open-idm/internal/connectors/configstore"
)

func TestDefinition_Identity(t *testing.T) {
	t.Parallel()

	d := NewDefinition()
	if d.Kind() != configstore.KindOkta {
		t.Fatalf("Kind() = %q", d.Kind())
	}
	if d.Framework() != "okta-sdk" {
		t.Fatalf("Framework() = %q", d.Framework())
	}
}

func TestDefinition_DecodeNormalizes(t *testing.T) {
	t.Parallel()

	cfg, err := NewDefinition().DecodeConfig([]byte(`{"domain":"  acme.okta.com ","token":" 00T "}`))
	if err != nil {
		t.Fatalf("DecodeConfig() error = %v", err)
	}
	okta := cfg.(configstore.OktaConfig)
	if okta.Domain != "acme.okta.com" || okta.Token != "00T" {
		t.Fatalf("DecodeConfig() = %+v", okta)
	}
}

func TestDefinition_IsConfigured(t *testing.T) {
	t.Parallel()

	d := NewDefinition()
	if d.IsConfigured(configstore.OktaConfig{Domain: "acme.okta.com"}) {
		t.Fatal("IsConfigured() without token = true")
	}
	if !d.IsConfigured(configstore.OktaConfig{Domain: "acme.okta.com", Token: "00T"}) {
		t.Fatal("IsConfigured() with both = false")
	}
}
