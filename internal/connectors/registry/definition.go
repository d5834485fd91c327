package registry

// Definition defines the behavior and metadata for a connector kind.
type Definition interface {
	// Identity
	Kind() string        // e.g., "okta", "aws-idc"
	DisplayName() string // e.g., "Okta", "AWS Identity Center"
	Framework() string   // connector framework the kind belongs to

	// Configuration
	DecodeConfig(raw []byte) (any, error)
	ValidateConfig(cfg any) error
	IsConfigured(cfg any) bool
	SourceName(cfg any) string // e.g., org name, domain

	// Outbound boundary
	NewClient(cfg any) (Client, error)
}
