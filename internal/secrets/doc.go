// Package secrets fetches a single named secret from a remote vault and merges
// it into a diagnostics snapshot.
//
// Azure Key Vault requests authenticate through a Chain that tries a managed
// identity first and the Azure CLI login second. HashiCorp Vault requests use
// the client token from the environment.
package secrets
