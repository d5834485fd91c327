// Package awsidc implements the AWS IAM Identity Center connector. Identity
// Center manages credentials itself, so the connector is schema-read only.
package awsidc

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/identitystore"
	"github.com/aws/aws-sdk-go-v2/service/ssoadmin"

	"github.com/open-idm/open-idm/internal/connectors/registry"
)

const defaultHTTPTimeout = 120 * time.Second

// Options configure the AWS IAM Identity Center connector.
type Options struct {
	Region          string
	InstanceArn     string
	IdentityStoreID string
	AuthType        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

type Client struct {
	region          string
	instanceArn     string
	identityStoreID string

	ssoadmin      ssoAdminAPI
	identitystore identityStoreAPI
}

type ssoAdminAPI interface {
	ListPermissionSets(context.Context, *ssoadmin.ListPermissionSetsInput, ...func(*ssoadmin.Options)) (*ssoadmin.ListPermissionSetsOutput, error)
	DescribePermissionSet(context.Context, *ssoadmin.DescribePermissionSetInput, ...func(*ssoadmin.Options)) (*ssoadmin.DescribePermissionSetOutput, error)
}

type identityStoreAPI interface {
	ListUsers(context.Context, *identitystore.ListUsersInput, ...func(*identitystore.Options)) (*identitystore.ListUsersOutput, error)
}

func New(ctx context.Context, opts Options) (*Client, error) {
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		return nil, errors.New("aws identity center region is required")
	}

	authType := strings.ToLower(strings.TrimSpace(opts.AuthType))
	switch authType {
	case "", "default_chain":
		authType = "default_chain"
	case "access_key":
		accessKeyID := strings.TrimSpace(opts.AccessKeyID)
		secretAccessKey := strings.TrimSpace(opts.SecretAccessKey)
		if accessKeyID == "" || secretAccessKey == "" {
			return nil, errors.New("aws access key id and secret access key are required")
		}
	default:
		return nil, errors.New("unsupported aws credential auth type")
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithHTTPClient(&http.Client{Timeout: defaultHTTPTimeout}),
	}
	if authType == "access_key" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			strings.TrimSpace(opts.AccessKeyID),
			strings.TrimSpace(opts.SecretAccessKey),
			strings.TrimSpace(opts.SessionToken),
		)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg, opts)
}

func NewWithConfig(cfg aws.Config, opts Options) (*Client, error) {
	return NewWithClients(opts, ssoadmin.NewFromConfig(cfg), identitystore.NewFromConfig(cfg))
}

func NewWithClients(opts Options, sso ssoAdminAPI, identity identityStoreAPI) (*Client, error) {
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		return nil, errors.New("aws identity center region is required")
	}
	return &Client{
		region:          region,
		instanceArn:     strings.TrimSpace(opts.InstanceArn),
		identityStoreID: strings.TrimSpace(opts.IdentityStoreID),
		ssoadmin:        sso,
		identitystore:   identity,
	}, nil
}

// ReadSchema maps the identity store to the user and group classes, plus one
// auxiliary class per provisioned permission set when an instance ARN is
// configured.
func (c *Client) ReadSchema(ctx context.Context) ([]registry.ObjectClassSpec, error) {
	specs := []registry.ObjectClassSpec{
		{Name: "user"},
		{Name: "group", Container: true},
	}

	if c.instanceArn == "" || c.ssoadmin == nil {
		return specs, nil
	}

	var nextToken *string
	for {
		out, err := c.ssoadmin.ListPermissionSets(ctx, &ssoadmin.ListPermissionSetsInput{
			InstanceArn: aws.String(c.instanceArn),
			NextToken:   nextToken,
		})
		if err != nil {
			return nil, err
		}
		for _, arn := range out.PermissionSets {
			described, err := c.ssoadmin.DescribePermissionSet(ctx, &ssoadmin.DescribePermissionSetInput{
				InstanceArn:      aws.String(c.instanceArn),
				PermissionSetArn: aws.String(arn),
			})
			if err != nil {
				return nil, err
			}
			name := ""
			if described.PermissionSet != nil && described.PermissionSet.Name != nil {
				name = strings.TrimSpace(*described.PermissionSet.Name)
			}
			if name == "" {
				continue
			}
			specs = append(specs, registry.ObjectClassSpec{
				Name:      "permission-set:" + name,
				Auxiliary: true,
			})
		}
		if out.NextToken == nil || *out.NextToken == "" {
			break
		}
		nextToken = out.NextToken
	}
	return specs, nil
}

// ChangePassword always reports unsupported; Identity Center users have no
// settable password through the API.
func (c *Client) ChangePassword(context.Context, string, string) error {
	return registry.ErrPasswordUnsupported
}

// Ping verifies credentials and the identity store id with a minimal listing.
func (c *Client) Ping(ctx context.Context) error {
	if c.identitystore == nil {
		return errors.New("aws identity store client is not initialized")
	}
	if c.identityStoreID == "" {
		return errors.New("aws identity store id is required")
	}
	_, err := c.identitystore.ListUsers(ctx, &identitystore.ListUsersInput{
		IdentityStoreId: aws.String(c.identityStoreID),
		MaxResults:      aws.Int32(1),
	})
	return err
}
