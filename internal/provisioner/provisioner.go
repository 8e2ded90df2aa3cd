// Package provisioner composes identity derivation, the directory
// client, the generative pipeline and the state store into the five
// demo lifecycle operations. It is the only package with multi-step
// control flow; every failure below it is trapped here and returned
// as a uniform {success:false, error} response.
package provisioner

import (
	"context"
	"fmt"
	"log"

	"demodesk/internal/audit"
	"demodesk/internal/directory"
	"demodesk/internal/identity"
	"demodesk/internal/script"
	"demodesk/internal/statestore"
)

// Directory is the narrow view of the remote user-account store the
// provisioner needs.
type Directory interface {
	Lookup(ctx context.Context, email string) (*directory.Record, error)
	Create(ctx context.Context, email, firstName, lastName, password string) error
	UpdateCredential(ctx context.Context, email, newPassword string) error
	Delete(ctx context.Context, email string) error
}

// Generator produces raw model output for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service orchestrates the demo lifecycle for one organization's demo
// domain. All state is partitioned per requester key; the service
// itself is stateless between calls.
type Service struct {
	dir    Directory
	gen    Generator
	store  statestore.Store
	sink   audit.Sink
	domain string
}

// NewService wires the collaborators together.
func NewService(dir Directory, gen Generator, store statestore.Store, sink audit.Sink, demoDomain string) *Service {
	return &Service{dir: dir, gen: gen, store: store, sink: sink, domain: demoDomain}
}

// Response shapes for the five public operations. Field names match
// the JSON surface consumed by the presentation layer.

type InitialStateResponse struct {
	Success         bool                        `json:"success"`
	ProvisionResult *statestore.ProvisionResult `json:"provisionResult,omitempty"`
	DemoScript      *script.DemoScript          `json:"demoScript,omitempty"`
	Error           string                      `json:"error,omitempty"`
}

type CreateUserResponse struct {
	Success   bool   `json:"success"`
	Email     string `json:"email,omitempty"`
	Password  string `json:"password,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Error     string `json:"error,omitempty"`
}

type ResetPasswordResponse struct {
	Success  bool   `json:"success"`
	Password string `json:"password,omitempty"`
	Error    string `json:"error,omitempty"`
}

type GenerateScriptResponse struct {
	Success    bool               `json:"success"`
	DemoScript *script.DemoScript `json:"demoScript,omitempty"`
	Error      string             `json:"error,omitempty"`
}

type DeleteAccountResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// GetInitialState derives the requester's demo identity and checks
// whether it exists in the directory. A hit repopulates the store from
// the directory record (names from the directory are authoritative,
// and no password is ever revealed on this path) and returns any
// previously generated script. A miss clears stale state and reports
// "no account" as a success with an empty provision result.
func (s *Service) GetInitialState(ctx context.Context, requester string) *InitialStateResponse {
	email, err := identity.DeriveEmail(requester, s.domain)
	if err != nil {
		return &InitialStateResponse{Error: opError(err)}
	}

	rec, err := s.dir.Lookup(ctx, email)
	if err != nil {
		if Classify(err) == KindNotFound {
			if cErr := s.store.ClearAll(ctx, requester); cErr != nil {
				log.Printf("warning: failed to clear stale state for %s: %v", requester, cErr)
			}
			return &InitialStateResponse{Success: true}
		}
		return &InitialStateResponse{Error: opError(err)}
	}

	result := &statestore.ProvisionResult{
		Email:     email,
		FirstName: rec.FirstName,
		LastName:  rec.LastName,
	}

	var persisted *script.DemoScript
	if state, lErr := s.store.Load(ctx, requester); lErr != nil {
		log.Printf("warning: failed to load state for %s: %v", requester, lErr)
	} else if state != nil {
		persisted = state.Script
	}

	if sErr := s.store.Save(ctx, requester, result, nil); sErr != nil {
		return &InitialStateResponse{Error: opError(sErr)}
	}
	return &InitialStateResponse{Success: true, ProvisionResult: result, DemoScript: persisted}
}

// CreateAccount ensures the requester's demo identity exists. If the
// directory already has it, the directory's names win and no password
// is returned. Otherwise a fresh account is created with a random
// password that is returned exactly once; any previously stored script
// is discarded because it described an account that no longer exists.
// A failed create leaves everything unchanged; there is no retry.
func (s *Service) CreateAccount(ctx context.Context, requester, firstName, lastName string) *CreateUserResponse {
	email, err := identity.DeriveEmail(requester, s.domain)
	if err != nil {
		return &CreateUserResponse{Error: opError(err)}
	}

	rec, err := s.dir.Lookup(ctx, email)
	if err == nil {
		result := &statestore.ProvisionResult{
			Email:     email,
			FirstName: rec.FirstName,
			LastName:  rec.LastName,
		}
		if sErr := s.store.Save(ctx, requester, result, nil); sErr != nil {
			return &CreateUserResponse{Error: opError(sErr)}
		}
		return &CreateUserResponse{
			Success:   true,
			Email:     email,
			FirstName: result.FirstName,
			LastName:  result.LastName,
		}
	}
	if Classify(err) != KindNotFound {
		return &CreateUserResponse{Error: opError(err)}
	}

	password, err := identity.NewPassword()
	if err != nil {
		return &CreateUserResponse{Error: opError(err)}
	}
	if cErr := s.dir.Create(ctx, email, firstName, lastName, password); cErr != nil {
		return &CreateUserResponse{Error: opError(cErr)}
	}

	if cErr := s.store.ClearScript(ctx, requester); cErr != nil {
		log.Printf("warning: failed to clear stale script for %s: %v", requester, cErr)
	}
	result := &statestore.ProvisionResult{
		Email:     email,
		Password:  password,
		FirstName: firstName,
		LastName:  lastName,
	}
	if sErr := s.store.Save(ctx, requester, result, nil); sErr != nil {
		return &CreateUserResponse{Error: opError(sErr)}
	}
	return &CreateUserResponse{
		Success:   true,
		Email:     email,
		Password:  password,
		FirstName: firstName,
		LastName:  lastName,
	}
}

// ResetPassword mints a new random password for the requester's
// provisioned demo account. This is the one path allowed to hand a
// password back after provisioning, because it is the response that
// minted it. On failure the stored state is unchanged.
func (s *Service) ResetPassword(ctx context.Context, requester string) *ResetPasswordResponse {
	state, err := s.store.Load(ctx, requester)
	if err != nil {
		return &ResetPasswordResponse{Error: opError(err)}
	}
	if state == nil || state.Result == nil || state.Result.Email == "" {
		return &ResetPasswordResponse{Error: "no demo account is provisioned for this user"}
	}

	password, err := identity.NewPassword()
	if err != nil {
		return &ResetPasswordResponse{Error: opError(err)}
	}
	if uErr := s.dir.UpdateCredential(ctx, state.Result.Email, password); uErr != nil {
		return &ResetPasswordResponse{Error: opError(uErr)}
	}

	result := *state.Result
	result.Password = password
	if sErr := s.store.Save(ctx, requester, &result, nil); sErr != nil {
		log.Printf("warning: failed to persist state after password reset for %s: %v", requester, sErr)
	}
	return &ResetPasswordResponse{Success: true, Password: password}
}

// GenerateScript builds the schema-constrained prompt for the given
// demo context, invokes the model, validates the result and persists
// it. Any failure leaves the previously stored script untouched. The
// prompt and outcome are forwarded to the audit sink either way;
// auditing is best-effort and never fails the operation.
func (s *Service) GenerateScript(ctx context.Context, requester, demoContext string) *GenerateScriptResponse {
	state, err := s.store.Load(ctx, requester)
	if err != nil {
		return &GenerateScriptResponse{Error: opError(err)}
	}
	if state == nil || state.Result == nil || state.Result.Email == "" {
		return &GenerateScriptResponse{Error: "no demo account is provisioned for this user"}
	}

	prompt := script.BuildPrompt(demoContext, state.Result.FirstName, state.Result.LastName, state.Result.Email)

	raw, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.record(ctx, requester, prompt, "failure", opError(err))
		return &GenerateScriptResponse{Error: opError(err)}
	}

	demoScript, err := script.Validate(raw)
	if err != nil {
		s.record(ctx, requester, prompt, "failure", opError(err))
		return &GenerateScriptResponse{Error: opError(err)}
	}

	if sErr := s.store.Save(ctx, requester, nil, demoScript); sErr != nil {
		s.record(ctx, requester, prompt, "failure", opError(sErr))
		return &GenerateScriptResponse{Error: opError(sErr)}
	}
	s.record(ctx, requester, prompt, "success", demoScript.Title)
	return &GenerateScriptResponse{Success: true, DemoScript: demoScript}
}

// DeleteAccount tears the demo account down. Deletion is idempotent:
// an already-absent directory account still counts as deleted. On
// success all persisted state for the requester is cleared.
func (s *Service) DeleteAccount(ctx context.Context, requester, email string) *DeleteAccountResponse {
	if email == "" {
		return &DeleteAccountResponse{Error: "email is required"}
	}
	if err := s.dir.Delete(ctx, email); err != nil {
		return &DeleteAccountResponse{Error: opError(err)}
	}
	if err := s.store.ClearAll(ctx, requester); err != nil {
		return &DeleteAccountResponse{Error: opError(err)}
	}
	return &DeleteAccountResponse{Success: true}
}

// record forwards one generation attempt to the audit sink.
func (s *Service) record(ctx context.Context, requester, prompt, outcome, detail string) {
	if s.sink == nil {
		return
	}
	err := s.sink.Record(ctx, audit.Entry{
		RequesterKey: requester,
		Prompt:       prompt,
		Outcome:      outcome,
		Detail:       detail,
	})
	if err != nil {
		log.Printf("warning: audit record failed for %s: %v", requester, err)
	}
}

// opError renders a lower-level failure as the user-facing message of
// a {success:false} response, prefixed by its classification where
// the underlying message alone would be ambiguous.
func opError(err error) string {
	switch Classify(err) {
	case KindInvalidInput:
		return fmt.Sprintf("invalid input: %v", err)
	case KindAuthentication:
		return err.Error()
	case KindValidation:
		return fmt.Sprintf("generated script was rejected: %v", err)
	case KindConfiguration:
		return fmt.Sprintf("configuration error: %v", err)
	default:
		return err.Error()
	}
}
