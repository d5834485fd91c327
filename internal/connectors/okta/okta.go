// Package okta implements the Okta connector: schema reads from the org's
// user types and password changes through the user credentials API.
package okta

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/okta/okta-sdk-golang/v6/okta"

	"github.com/open-idm/open-idm/internal/connectors/registry"
)

type Client struct {
	BaseURL string
	Token   string
	api     *sdk.APIClient
}

// New creates a new Okta client. It validates that both baseURL and token are
// provided and returns an error if the SDK configuration fails.
func New(baseURL, token string) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	token = strings.TrimSpace(token)

	if base == "" {
		return nil, errors.New("okta base URL is required")
	}
	if token == "" {
		return nil, errors.New("okta token is required")
	}

	cfg, err := sdk.NewConfiguration(
		sdk.WithOrgUrl(base),
		sdk.WithToken(token),
		sdk.WithCache(false),
		sdk.WithRequestTimeout(120),
		sdk.WithRateLimitMaxBackOff(30),
		sdk.WithRateLimitMaxRetries(4),
	)
	if err != nil {
		return nil, fmt.Errorf("okta sdk config: %w", err)
	}
	api := sdk.NewAPIClient(cfg)
	return &Client{BaseURL: base, Token: token, api: api}, nil
}

func (c *Client) ensureClient() error {
	if c.api == nil {
		return errors.New("okta client is not initialized")
	}
	return nil
}

// ReadSchema maps the org's user types to account object classes and adds the
// group class.
func (c *Client) ReadSchema(ctx context.Context) ([]registry.ObjectClassSpec, error) {
	if err := c.ensureClient(); err != nil {
		return nil, err
	}

	types, resp, err := c.api.UserTypeAPI.ListUserTypes(ctx).Execute()
	if err != nil {
		return nil, formatOktaError(err, resp)
	}
	return userTypeSpecs(types), nil
}

// userTypeSpecs maps user types to object classes: the default "user" type is
// the primary account class, custom types become auxiliary classes, and the
// group class is always present.
func userTypeSpecs(types []sdk.UserType) []registry.ObjectClassSpec {
	specs := make([]registry.ObjectClassSpec, 0, len(types)+1)
	for _, t := range types {
		name := userTypeName(t)
		if name == "" {
			continue
		}
		spec := registry.ObjectClassSpec{Name: "account"}
		if !strings.EqualFold(name, "user") {
			spec.Name = "account:" + name
			spec.Auxiliary = true
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		specs = append(specs, registry.ObjectClassSpec{Name: "account"})
	}
	specs = append(specs, registry.ObjectClassSpec{Name: "group", Container: true})
	return specs
}

// The UserType model only declares the id field; the type name arrives as an
// additional property of the response document.
func userTypeName(t sdk.UserType) string {
	if v, ok := t.AdditionalProperties["name"].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// ChangePassword sets a new password on the Okta user identified by uid.
func (c *Client) ChangePassword(ctx context.Context, uid, newPassword string) error {
	if err := c.ensureClient(); err != nil {
		return err
	}
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return errors.New("okta user id is required")
	}

	update := sdk.UpdateUserRequest{
		Credentials: &sdk.UserCredentials{
			Password: &sdk.PasswordCredential{Value: &newPassword},
		},
	}
	_, resp, err := c.api.UserAPI.UpdateUser(ctx, uid).User(update).Execute()
	if err != nil {
		return formatOktaError(err, resp)
	}
	return nil
}

// Ping verifies the credentials with a minimal user listing.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.ensureClient(); err != nil {
		return err
	}
	_, resp, err := c.api.UserAPI.ListUsers(ctx).Limit(1).Execute()
	if err != nil {
		return formatOktaError(err, resp)
	}
	return nil
}

func formatOktaError(err error, resp *sdk.APIResponse) error {
	if err == nil {
		return nil
	}
	status := ""
	statusCode := 0
	if resp != nil && resp.Response != nil {
		status = resp.Response.Status
		statusCode = resp.Response.StatusCode
	}
	var apiErr *sdk.GenericOpenAPIError
	if errors.As(err, &apiErr) {
		if statusCode >= 200 && statusCode < 300 {
			msg := strings.TrimSpace(apiErr.Error())
			if msg != "" {
				if status != "" {
					return fmt.Errorf("okta api decode error: %s: %s", status, msg)
				}
				return fmt.Errorf("okta api decode error: %s", msg)
			}
		}

		if model := apiErr.Model(); model != nil {
			switch v := model.(type) {
			case sdk.Error:
				summary := strings.TrimSpace(v.GetErrorSummary())
				if summary != "" {
					if status != "" {
						return fmt.Errorf("okta api error: %s: %s", status, summary)
					}
					return fmt.Errorf("okta api error: %s", summary)
				}
			case *sdk.Error:
				summary := strings.TrimSpace(v.GetErrorSummary())
				if summary != "" {
					if status != "" {
						return fmt.Errorf("okta api error: %s: %s", status, summary)
					}
					return fmt.Errorf("okta api error: %s", summary)
				}
			}
		}
		body := strings.TrimSpace(string(apiErr.Body()))
		const maxBody = 4096
		if len(body) > maxBody {
			body = body[:maxBody] + fmt.Sprintf("... (truncated, %d bytes)", len(body))
		}
		if body != "" {
			if status != "" {
				return fmt.Errorf("okta api error: %s: %s", status, body)
			}
			return fmt.Errorf("okta api error: %s", body)
		}
	}
	if status != "" {
		return fmt.Errorf("okta api error: %s: %w", status, err)
	}
	return err
}
