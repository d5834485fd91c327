package configstore

// BuiltinFormDefinitions returns the form definitions shipped with the
// installed connector kinds, one per configuration facet. They are seeded
// idempotently at startup. Connector-facet attribute names match the JSON
// fields of the typed configurations so BuildConnectorConfig can fold
// submitted values into the stored document.
func BuiltinFormDefinitions() []FormDefinition {
	pooling := []AttributeDefinition{
		{Name: "min_pool_size", Label: "Minimum pool size"},
		{Name: "max_pool_size", Label: "Maximum pool size"},
		{Name: "max_idle", Label: "Maximum idle connections"},
		{Name: "max_wait", Label: "Maximum wait (ms)"},
	}
	operationOptions := []AttributeDefinition{
		{Name: "page_size", Label: "Page size"},
		{Name: "attributes_to_get", Label: "Attributes to get"},
	}
	connector := map[string][]AttributeDefinition{
		KindOkta: {
			{Name: "domain", Label: "Okta domain", Required: true},
			{Name: "token", Label: "API token", Required: true, Secret: true},
		},
		KindAWSIdentityCenter: {
			{Name: "region", Label: "Region", Required: true},
			{Name: "name", Label: "Display name"},
			{Name: "instance_arn", Label: "Instance ARN"},
			{Name: "identity_store_id", Label: "Identity store ID", Required: true},
			{Name: "auth_type", Label: "Credentials type"},
			{Name: "access_key_id", Label: "Access key ID"},
			{Name: "secret_access_key", Label: "Secret access key", Secret: true},
			{Name: "session_token", Label: "Session token", Secret: true},
		},
		KindVault: {
			{Name: "address", Label: "Vault address", Required: true},
			{Name: "namespace", Label: "Namespace"},
			{Name: "name", Label: "Display name"},
			{Name: "auth_type", Label: "Auth type"},
			{Name: "token", Label: "Token", Secret: true},
			{Name: "approle_mount_path", Label: "AppRole mount path"},
			{Name: "approle_role_id", Label: "AppRole role ID"},
			{Name: "approle_secret_id", Label: "AppRole secret ID", Secret: true},
			{Name: "userpass_mount_path", Label: "Userpass mount path"},
			{Name: "tls_skip_verify", Label: "Skip TLS verification"},
			{Name: "tls_ca_cert_pem", Label: "CA certificate (PEM)"},
		},
	}

	kinds := []string{KindOkta, KindAWSIdentityCenter, KindVault}
	defs := make([]FormDefinition, 0, len(kinds)*3)
	for _, kind := range kinds {
		defs = append(defs,
			FormDefinition{ConnectorKind: kind, Kind: ConfigKindConnector, Attributes: connector[kind]},
			FormDefinition{ConnectorKind: kind, Kind: ConfigKindPooling, Attributes: pooling},
			FormDefinition{ConnectorKind: kind, Kind: ConfigKindOperationOptions, Attributes: operationOptions},
		)
	}
	return defs
}
