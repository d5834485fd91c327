// Package configstore holds connector configuration: the typed per-kind
// connection settings and the form-based configuration attached to systems.
package configstore

import (
	"crypto/x509"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/open-idm/open-idm/internal/apperr"
)

const (
	KindOkta              = "okta"
	KindAWSIdentityCenter = "aws-idc"
	KindVault             = "vault"
)

const (
	AWSIdentityCenterAuthTypeDefaultChain = "default_chain"
	AWSIdentityCenterAuthTypeAccessKey    = "access_key"
	VaultAuthTypeToken                    = "token"
	VaultAuthTypeAppRole                  = "approle"
)

type OktaConfig struct {
	Domain string `json:"domain"`
	Token  string `json:"token"`
}

func (c OktaConfig) Normalized() OktaConfig {
	out := c
	out.Domain = strings.TrimSpace(out.Domain)
	out.Token = strings.TrimSpace(out.Token)
	return out
}

func (c OktaConfig) BaseURL() string {
	base := strings.TrimSpace(c.Domain)
	if base == "" {
		return ""
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return strings.TrimRight(base, "/")
}

func (c OktaConfig) Validate() error {
	c = c.Normalized()
	if c.Domain == "" {
		return errors.New("Okta domain is required")
	}
	if c.Token == "" {
		return errors.New("Okta token is required")
	}
	return nil
}

type AWSIdentityCenterConfig struct {
	Region          string `json:"region"`
	Name            string `json:"name"`
	InstanceARN     string `json:"instance_arn"`
	IdentityStoreID string `json:"identity_store_id"`
	AuthType        string `json:"auth_type"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token"`
}

func (c AWSIdentityCenterConfig) Normalized() AWSIdentityCenterConfig {
	out := c
	out.Region = strings.TrimSpace(out.Region)
	out.Name = strings.TrimSpace(out.Name)
	out.InstanceARN = strings.TrimSpace(out.InstanceARN)
	out.IdentityStoreID = strings.TrimSpace(out.IdentityStoreID)
	out.AuthType = strings.ToLower(strings.TrimSpace(out.AuthType))
	if out.AuthType == "" {
		out.AuthType = AWSIdentityCenterAuthTypeDefaultChain
	}
	out.AccessKeyID = strings.TrimSpace(out.AccessKeyID)
	out.SecretAccessKey = strings.TrimSpace(out.SecretAccessKey)
	out.SessionToken = strings.TrimSpace(out.SessionToken)
	return out
}

func (c AWSIdentityCenterConfig) Validate() error {
	c = c.Normalized()
	if c.Region == "" {
		return errors.New("AWS Identity Center region is required")
	}
	if c.IdentityStoreID == "" {
		return errors.New("AWS identity store ID is required")
	}
	switch c.AuthType {
	case AWSIdentityCenterAuthTypeDefaultChain:
		return nil
	case AWSIdentityCenterAuthTypeAccessKey:
		if c.AccessKeyID == "" {
			return errors.New("AWS access key ID is required")
		}
		if c.SecretAccessKey == "" {
			return errors.New("AWS secret access key is required")
		}
		return nil
	default:
		return errors.New("AWS credentials type is invalid")
	}
}

type VaultConfig struct {
	Address          string `json:"address"`
	Namespace        string `json:"namespace"`
	Name             string `json:"name"`
	AuthType         string `json:"auth_type"`
	Token            string `json:"token"`
	AppRoleMountPath string `json:"approle_mount_path"`
	AppRoleRoleID    string `json:"approle_role_id"`
	AppRoleSecretID  string `json:"approle_secret_id"`
	// UserpassMountPath is the auth mount used for account password changes.
	UserpassMountPath string `json:"userpass_mount_path"`
	TLSSkipVerify     bool   `json:"tls_skip_verify"`
	TLSCACertPEM      string `json:"tls_ca_cert_pem"`
}

func (c VaultConfig) Normalized() VaultConfig {
	out := c
	out.Address = normalizeVaultAddress(out.Address)
	out.Namespace = strings.TrimSpace(out.Namespace)
	out.Name = strings.TrimSpace(out.Name)
	out.AuthType = strings.ToLower(strings.TrimSpace(out.AuthType))
	if out.AuthType == "" {
		out.AuthType = VaultAuthTypeToken
	}
	out.Token = strings.TrimSpace(out.Token)
	out.AppRoleMountPath = normalizeVaultMountPath(out.AppRoleMountPath)
	if out.AppRoleMountPath == "" {
		out.AppRoleMountPath = "approle"
	}
	out.AppRoleRoleID = strings.TrimSpace(out.AppRoleRoleID)
	out.AppRoleSecretID = strings.TrimSpace(out.AppRoleSecretID)
	out.UserpassMountPath = normalizeVaultMountPath(out.UserpassMountPath)
	if out.UserpassMountPath == "" {
		out.UserpassMountPath = "userpass"
	}
	out.TLSCACertPEM = strings.TrimSpace(out.TLSCACertPEM)
	return out
}

func (c VaultConfig) SourceName() string {
	c = c.Normalized()
	if c.Name != "" {
		return c.Name
	}
	if c.Address == "" {
		return ""
	}
	u, err := url.Parse(c.Address)
	if err != nil {
		return ""
	}
	if host := strings.TrimSpace(u.Hostname()); host != "" {
		return host
	}
	return strings.TrimSpace(u.Host)
}

func (c VaultConfig) Validate() error {
	c = c.Normalized()
	if c.Address == "" {
		return errors.New("Vault address is required")
	}
	parsed, err := url.Parse(c.Address)
	if err != nil {
		return errors.New("Vault address is invalid")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("Vault address must use http or https")
	}
	if strings.TrimSpace(parsed.Hostname()) == "" {
		return errors.New("Vault address host is required")
	}
	switch c.AuthType {
	case VaultAuthTypeToken:
		if c.Token == "" {
			return errors.New("Vault token is required")
		}
	case VaultAuthTypeAppRole:
		if c.AppRoleMountPath == "" {
			return errors.New("Vault AppRole mount path is required")
		}
		if c.AppRoleRoleID == "" {
			return errors.New("Vault AppRole role ID is required")
		}
		if c.AppRoleSecretID == "" {
			return errors.New("Vault AppRole secret ID is required")
		}
	default:
		return errors.New("Vault auth type is invalid")
	}
	if c.TLSCACertPEM != "" {
		pool := x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM([]byte(c.TLSCACertPEM)); !ok {
			return errors.New("Vault CA certificate PEM is invalid")
		}
	}
	return nil
}

func DecodeOktaConfig(raw []byte) (OktaConfig, error) {
	var cfg OktaConfig
	return cfg, decodeJSON(raw, &cfg)
}

func DecodeAWSIdentityCenterConfig(raw []byte) (AWSIdentityCenterConfig, error) {
	var cfg AWSIdentityCenterConfig
	return cfg, decodeJSON(raw, &cfg)
}

func DecodeVaultConfig(raw []byte) (VaultConfig, error) {
	cfg := VaultConfig{AuthType: VaultAuthTypeToken}
	return cfg, decodeJSON(raw, &cfg)
}

func EncodeConfig(v any) ([]byte, error) {
	return json.Marshal(v)
}

// MergeOktaConfig applies an update while keeping the stored token when the
// update leaves the secret blank.
func MergeOktaConfig(existing OktaConfig, update OktaConfig) OktaConfig {
	merged := existing
	merged.Domain = strings.TrimSpace(update.Domain)
	if token := strings.TrimSpace(update.Token); token != "" {
		merged.Token = token
	}
	return merged
}

func MergeAWSIdentityCenterConfig(existing AWSIdentityCenterConfig, update AWSIdentityCenterConfig) AWSIdentityCenterConfig {
	merged := existing
	merged.Region = strings.TrimSpace(update.Region)
	merged.Name = strings.TrimSpace(update.Name)
	merged.InstanceARN = strings.TrimSpace(update.InstanceARN)
	merged.IdentityStoreID = strings.TrimSpace(update.IdentityStoreID)
	merged.AuthType = strings.ToLower(strings.TrimSpace(update.AuthType))
	if merged.AuthType == "" {
		merged.AuthType = AWSIdentityCenterAuthTypeDefaultChain
	}

	switch merged.AuthType {
	case AWSIdentityCenterAuthTypeDefaultChain:
		merged.AccessKeyID = ""
		merged.SecretAccessKey = ""
		merged.SessionToken = ""
	case AWSIdentityCenterAuthTypeAccessKey:
		if accessKeyID := strings.TrimSpace(update.AccessKeyID); accessKeyID != "" {
			merged.AccessKeyID = accessKeyID
		}
		if secret := strings.TrimSpace(update.SecretAccessKey); secret != "" {
			merged.SecretAccessKey = secret
		}
		if token := strings.TrimSpace(update.SessionToken); token != "" {
			merged.SessionToken = token
		}
	}
	return merged
}

func MergeVaultConfig(existing VaultConfig, update VaultConfig) VaultConfig {
	merged := existing
	merged.Address = strings.TrimSpace(update.Address)
	merged.Namespace = strings.TrimSpace(update.Namespace)
	merged.Name = strings.TrimSpace(update.Name)
	merged.AuthType = strings.ToLower(strings.TrimSpace(update.AuthType))
	if merged.AuthType == "" {
		merged.AuthType = VaultAuthTypeToken
	}
	merged.TLSSkipVerify = update.TLSSkipVerify
	if mountPath := normalizeVaultMountPath(update.AppRoleMountPath); mountPath != "" {
		merged.AppRoleMountPath = mountPath
	}
	if mountPath := normalizeVaultMountPath(update.UserpassMountPath); mountPath != "" {
		merged.UserpassMountPath = mountPath
	}
	if caCert := strings.TrimSpace(update.TLSCACertPEM); caCert != "" {
		merged.TLSCACertPEM = caCert
	}
	switch merged.AuthType {
	case VaultAuthTypeToken:
		merged.AppRoleRoleID = ""
		merged.AppRoleSecretID = ""
		if token := strings.TrimSpace(update.Token); token != "" {
			merged.Token = token
		}
	case VaultAuthTypeAppRole:
		merged.Token = ""
		if merged.AppRoleMountPath == "" {
			merged.AppRoleMountPath = "approle"
		}
		if roleID := strings.TrimSpace(update.AppRoleRoleID); roleID != "" {
			merged.AppRoleRoleID = roleID
		}
		if secretID := strings.TrimSpace(update.AppRoleSecretID); secretID != "" {
			merged.AppRoleSecretID = secretID
		}
	}
	return merged
}

// BuildConnectorConfig folds submitted form values into the stored connector
// configuration for the kind. Blank secrets keep their stored value and the
// merged result is validated before it is returned, so a bad update never
// produces a persistable document.
func BuildConnectorConfig(connectorKind string, existing []byte, values []FormValue) ([]byte, error) {
	m := make(map[string]string, len(values))
	for _, v := range values {
		m[strings.ToLower(strings.TrimSpace(v.Name))] = v.Value
	}

	switch strings.ToLower(strings.TrimSpace(connectorKind)) {
	case KindOkta:
		current, err := DecodeOktaConfig(existing)
		if err != nil {
			return nil, err
		}
		merged := MergeOktaConfig(current, OktaConfig{
			Domain: m["domain"],
			Token:  m["token"],
		}).Normalized()
		if err := merged.Validate(); err != nil {
			return nil, apperr.Invalid("values", err.Error())
		}
		return EncodeConfig(merged)
	case KindAWSIdentityCenter:
		current, err := DecodeAWSIdentityCenterConfig(existing)
		if err != nil {
			return nil, err
		}
		merged := MergeAWSIdentityCenterConfig(current, AWSIdentityCenterConfig{
			Region:          m["region"],
			Name:            m["name"],
			InstanceARN:     m["instance_arn"],
			IdentityStoreID: m["identity_store_id"],
			AuthType:        m["auth_type"],
			AccessKeyID:     m["access_key_id"],
			SecretAccessKey: m["secret_access_key"],
			SessionToken:    m["session_token"],
		}).Normalized()
		if err := merged.Validate(); err != nil {
			return nil, apperr.Invalid("values", err.Error())
		}
		return EncodeConfig(merged)
	case KindVault:
		current, err := DecodeVaultConfig(existing)
		if err != nil {
			return nil, err
		}
		skipVerify, _ := strconv.ParseBool(strings.TrimSpace(m["tls_skip_verify"]))
		merged := MergeVaultConfig(current, VaultConfig{
			Address:           m["address"],
			Namespace:         m["namespace"],
			Name:              m["name"],
			AuthType:          m["auth_type"],
			Token:             m["token"],
			AppRoleMountPath:  m["approle_mount_path"],
			AppRoleRoleID:     m["approle_role_id"],
			AppRoleSecretID:   m["approle_secret_id"],
			UserpassMountPath: m["userpass_mount_path"],
			TLSSkipVerify:     skipVerify,
			TLSCACertPEM:      m["tls_ca_cert_pem"],
		}).Normalized()
		if err := merged.Validate(); err != nil {
			return nil, apperr.Invalid("values", err.Error())
		}
		return EncodeConfig(merged)
	default:
		return nil, apperr.Invalid("connectorKind", "no connector configuration mapping for kind "+connectorKind)
	}
}

func MaskSecret(secret string) string {
	s := strings.TrimSpace(secret)
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	tail := s[len(s)-4:]
	prefix := ""
	if idx := strings.Index(s, "_"); idx > 0 && idx <= 6 {
		prefix = s[:idx+1]
	}
	return prefix + "****" + tail
}

func decodeJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func normalizeVaultAddress(raw string) string {
	addr := strings.TrimSpace(raw)
	if addr == "" {
		return ""
	}
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "https://" + addr
	}
	parsed, err := url.Parse(addr)
	if err != nil {
		return strings.TrimRight(addr, "/")
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return strings.TrimSpace(parsed.String())
}

func normalizeVaultMountPath(raw string) string {
	return strings.Trim(strings.TrimSpace(raw), "/")
}
