// Package vault implements the HashiCorp Vault connector: identity schema
// reads and password changes through the userpass auth backend.
package vault

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	neturl "net/url"
	"slices"
	"strings"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/open-idm/open-idm/internal/connectors/registry"
)

const (
	vaultAuthTypeToken   = "token"
	vaultAuthTypeAppRole = "approle"
)

type Options struct {
	Address           string
	Namespace         string
	AuthType          string
	Token             string
	AppRoleMountPath  string
	AppRoleRoleID     string
	AppRoleSecretID   string
	UserpassMountPath string
	TLSSkipVerify     bool
	TLSCACertPEM      string
}

type Client struct {
	client       *vaultapi.Client
	namespace    string
	addressHost  string
	userpassPath string
}

func New(opts Options) (*Client, error) {
	address := strings.TrimSpace(opts.Address)
	if address == "" {
		return nil, errors.New("vault address is required")
	}
	authType := strings.ToLower(strings.TrimSpace(opts.AuthType))
	if authType == "" {
		authType = vaultAuthTypeToken
	}

	cfg := vaultapi.DefaultConfig()
	cfg.Address = address
	cfg.HttpClient = &http.Client{
		Timeout:   120 * time.Second,
		Transport: buildHTTPTransport(opts.TLSSkipVerify, strings.TrimSpace(opts.TLSCACertPEM)),
	}
	addressHost := ""
	if parsed, err := neturl.Parse(address); err == nil {
		addressHost = strings.ToLower(strings.TrimSpace(parsed.Hostname()))
	}

	client, err := vaultapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client setup: %w", err)
	}
	namespace := strings.TrimSpace(opts.Namespace)
	if namespace != "" {
		client.SetNamespace(namespace)
	}

	switch authType {
	case vaultAuthTypeToken:
		token := strings.TrimSpace(opts.Token)
		if token == "" {
			return nil, errors.New("vault token is required")
		}
		client.SetToken(token)
	case vaultAuthTypeAppRole:
		roleID := strings.TrimSpace(opts.AppRoleRoleID)
		secretID := strings.TrimSpace(opts.AppRoleSecretID)
		mountPath := normalizeMountPath(opts.AppRoleMountPath)
		if mountPath == "" {
			mountPath = "approle"
		}
		if roleID == "" {
			return nil, errors.New("vault AppRole role ID is required")
		}
		if secretID == "" {
			return nil, errors.New("vault AppRole secret ID is required")
		}
		loginPath := "auth/" + mountPath + "/login"
		secret, err := client.Logical().Write(loginPath, map[string]any{
			"role_id":   roleID,
			"secret_id": secretID,
		})
		if err != nil {
			return nil, fmt.Errorf("vault approle login at %s: %w", loginPath, err)
		}
		if secret == nil || secret.Auth == nil || strings.TrimSpace(secret.Auth.ClientToken) == "" {
			return nil, errors.New("vault approle login succeeded without client token")
		}
		client.SetToken(secret.Auth.ClientToken)
	default:
		return nil, errors.New("vault auth type is invalid")
	}

	userpassPath := normalizeMountPath(opts.UserpassMountPath)
	if userpassPath == "" {
		userpassPath = "userpass"
	}

	return &Client{
		client:       client,
		namespace:    namespace,
		addressHost:  addressHost,
		userpassPath: userpassPath,
	}, nil
}

// ReadSchema maps the identity secrets engine to entity and group classes,
// plus one auxiliary class per auth mount.
func (c *Client) ReadSchema(ctx context.Context) ([]registry.ObjectClassSpec, error) {
	specs := []registry.ObjectClassSpec{
		{Name: "entity"},
		{Name: "group", Container: true},
	}

	mounts, err := c.client.Sys().ListAuthWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("vault list auth mounts: %w", c.withNamespaceHint(err))
	}
	paths := make([]string, 0, len(mounts))
	for path, mount := range mounts {
		if mount == nil {
			continue
		}
		if normalized := normalizeMountPath(path); normalized != "" {
			paths = append(paths, normalized)
		}
	}
	slices.Sort(paths)
	for _, path := range paths {
		specs = append(specs, registry.ObjectClassSpec{
			Name:      "auth:" + path,
			Auxiliary: true,
		})
	}
	return specs, nil
}

// ChangePassword sets a new password for a userpass user.
func (c *Client) ChangePassword(ctx context.Context, uid, newPassword string) error {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return errors.New("vault username is required")
	}
	path := "auth/" + c.userpassPath + "/users/" + pathEscape(uid) + "/password"
	if _, err := c.client.Logical().WriteWithContext(ctx, path, map[string]any{
		"password": newPassword,
	}); err != nil {
		return fmt.Errorf("vault change password at %s: %w", path, c.withNamespaceHint(err))
	}
	return nil
}

// Ping checks the server health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.Sys().HealthWithContext(ctx); err != nil {
		return fmt.Errorf("vault health: %w", c.withNamespaceHint(err))
	}
	return nil
}

func pathEscape(value string) string {
	return neturl.PathEscape(strings.TrimSpace(value))
}

func normalizeMountPath(path string) string {
	return strings.Trim(strings.TrimSpace(path), "/")
}

func (c *Client) withNamespaceHint(err error) error {
	if err == nil {
		return nil
	}
	if strings.TrimSpace(c.namespace) != "" {
		return err
	}
	if !strings.HasSuffix(strings.ToLower(strings.TrimSpace(c.addressHost)), ".hashicorp.cloud") {
		return err
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "permission denied") && !strings.Contains(msg, "403") {
		return err
	}
	return fmt.Errorf("%w (tip: set namespace to \"admin\" for HCP Vault Dedicated)", err)
}

func buildHTTPTransport(skipVerify bool, caCertPEM string) http.RoundTripper {
	base, _ := http.DefaultTransport.(*http.Transport)
	if base == nil {
		return http.DefaultTransport
	}
	transport := base.Clone()
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{}
	}
	transport.TLSClientConfig.InsecureSkipVerify = skipVerify
	if caCertPEM != "" {
		pool := x509.NewCertPool()
		if pool.AppendCertsFromPEM([]byte(caCertPEM)) {
			transport.TLSClientConfig.RootCAs = pool
		}
	}
	return transport
}
