// Package directory wraps the Admin SDK Directory API with the four
// operations demo provisioning needs, translating HTTP status codes
// into explicit outcomes.
package directory

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ErrNotFound reports a directory lookup miss. It is an internal
// outcome, not a user-facing error.
var ErrNotFound = errors.New("directory user not found")

// TransportError is any non-OK directory response or network failure,
// carrying the HTTP status code (0 when the request never completed)
// and a human-readable cause.
type TransportError struct {
	StatusCode int
	Message    string
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("directory request failed: %s", e.Message)
	}
	return fmt.Sprintf("directory request failed with status %d: %s", e.StatusCode, e.Message)
}

// Record is the subset of a directory user this service cares about.
type Record struct {
	Email     string
	FirstName string
	LastName  string
}

// Client performs user lifecycle calls against the directory.
type Client struct {
	svc     *admin.Service
	orgUnit string
}

// NewClient builds a directory client authenticated by the given
// options (typically option.WithTokenSource from NewTokenSource;
// tests pass option.WithEndpoint and option.WithoutAuthentication).
// Created accounts are placed under orgUnit.
func NewClient(ctx context.Context, orgUnit string, opts ...option.ClientOption) (*Client, error) {
	svc, err := admin.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory service: %w", err)
	}
	return &Client{svc: svc, orgUnit: orgUnit}, nil
}

// Lookup fetches a user by email. Returns ErrNotFound on a 404 and a
// TransportError on anything else that isn't a 200.
func (c *Client) Lookup(ctx context.Context, email string) (*Record, error) {
	u, err := c.svc.Users.Get(email).Context(ctx).Do()
	if err != nil {
		return nil, mapError(err, http.StatusNotFound)
	}
	rec := &Record{Email: email}
	if u.Name != nil {
		rec.FirstName = u.Name.GivenName
		rec.LastName = u.Name.FamilyName
	}
	return rec, nil
}

// Create inserts a new user with the given initial password. The
// account is forced to change the password at next login.
func (c *Client) Create(ctx context.Context, email, firstName, lastName, password string) error {
	u := &admin.User{
		PrimaryEmail: email,
		Password:     password,
		Name: &admin.UserName{
			GivenName:  firstName,
			FamilyName: lastName,
		},
		OrgUnitPath:               c.orgUnit,
		ChangePasswordAtNextLogin: true,
	}
	if _, err := c.svc.Users.Insert(u).Context(ctx).Do(); err != nil {
		return mapError(err)
	}
	return nil
}

// UpdateCredential sets a new password on an existing user.
func (c *Client) UpdateCredential(ctx context.Context, email, newPassword string) error {
	u := &admin.User{
		Password:                  newPassword,
		ChangePasswordAtNextLogin: true,
	}
	if _, err := c.svc.Users.Update(email, u).Context(ctx).Do(); err != nil {
		return mapError(err)
	}
	return nil
}

// Delete removes a user. A 404 counts as success: deleting an account
// that is already gone is the outcome the caller wanted.
func (c *Client) Delete(ctx context.Context, email string) error {
	if err := c.svc.Users.Delete(email).Context(ctx).Do(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return nil
		}
		return mapError(err)
	}
	return nil
}

// mapError translates an Admin SDK error into ErrNotFound (when its
// status is listed in notFoundCodes) or a TransportError. Network
// failures that never reached the server fold into a TransportError
// with status 0.
func mapError(err error, notFoundCodes ...int) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		for _, code := range notFoundCodes {
			if gerr.Code == code {
				return fmt.Errorf("%w (%s)", ErrNotFound, gerr.Message)
			}
		}
		return &TransportError{StatusCode: gerr.Code, Message: gerr.Message}
	}
	return &TransportError{Message: err.Error()}
}
