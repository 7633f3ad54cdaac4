package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/crypto/domain"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// kmsProviders maps each supported key URI scheme to its KMS_PROVIDER name.
var kmsProviders = map[string]string{
	"gcpkms":        "gcpkms",
	"awskms":        "awskms",
	"azurekeyvault": "azurekeyvault",
	"hashivault":    "hashivault",
	"base64key":     "localsecrets",
}

// KMSService opens keepers that wrap and unwrap key slots.
type KMSService interface {
	// OpenKeeper opens a secrets.Keeper for keyURI.
	OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error)
}

// kmsService implements KMSService using gocloud.dev/secrets.
type kmsService struct{}

// NewKMSService creates a new KMS service instance.
func NewKMSService() KMSService {
	return &kmsService{}
}

// OpenKeeper rejects schemes outside gcpkms, awskms, azurekeyvault, hashivault and base64key
// before handing the URI to gocloud.dev.
func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	if _, err := KMSProviderForURI(keyURI); err != nil {
		return nil, err
	}

	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper for %s: %w", RedactKeyURI(keyURI), err)
	}
	return keeper, nil
}

// KMSProviderForURI returns the KMS_PROVIDER name matching the scheme of keyURI.
func KMSProviderForURI(keyURI string) (string, error) {
	scheme, _, found := strings.Cut(keyURI, "://")
	provider, ok := kmsProviders[scheme]
	if !found || !ok {
		return "", fmt.Errorf("%w: key uri scheme %q", cryptoDomain.ErrUnsupportedKMSProvider, scheme)
	}
	return provider, nil
}

// CheckKMSProvider verifies that a configured KMS_PROVIDER agrees with the key URI. An empty
// provider is accepted and inferred from the URI.
func CheckKMSProvider(provider, keyURI string) error {
	expected, err := KMSProviderForURI(keyURI)
	if err != nil {
		return err
	}
	if provider != "" && provider != expected {
		return fmt.Errorf("%w: KMS_PROVIDER %q does not match key uri %s",
			cryptoDomain.ErrUnsupportedKMSProvider, provider, RedactKeyURI(keyURI))
	}
	return nil
}

// RedactKeyURI returns keyURI in a form safe to log. base64key URIs carry the key itself and
// are reduced to their scheme; other URIs lose any user info and query.
func RedactKeyURI(keyURI string) string {
	scheme, _, _ := strings.Cut(keyURI, "://")
	if scheme == "base64key" {
		return "base64key://REDACTED"
	}

	u, err := url.Parse(keyURI)
	if err != nil {
		return scheme + "://REDACTED"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
