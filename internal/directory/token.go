package directory

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	admin "google.golang.org/api/admin/directory/v1"
)

// ErrAuthentication marks failures to turn credential material into a
// usable token source. Callers surface these as authentication
// failures rather than transport errors.
var ErrAuthentication = fmt.Errorf("directory authentication failed")

// NewTokenSource exchanges a service-account JSON key for an OAuth2
// token source that impersonates the given admin subject. Directory
// user management requires domain-wide delegation, so the subject is
// mandatory.
func NewTokenSource(ctx context.Context, credentialsJSON []byte, subject string) (oauth2.TokenSource, error) {
	if len(credentialsJSON) == 0 {
		return nil, fmt.Errorf("%w: no credential material provided", ErrAuthentication)
	}
	if subject == "" {
		return nil, fmt.Errorf("%w: no admin subject to impersonate", ErrAuthentication)
	}

	conf, err := google.JWTConfigFromJSON(credentialsJSON, admin.AdminDirectoryUserScope)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing service-account key: %v", ErrAuthentication, err)
	}
	conf.Subject = subject
	return conf.TokenSource(ctx), nil
}

// TokenSourceFromFile reads a service-account key file and builds a
// token source from it.
func TokenSourceFromFile(ctx context.Context, path, subject string) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading credentials file: %v", ErrAuthentication, err)
	}
	return NewTokenSource(ctx, data, subject)
}
