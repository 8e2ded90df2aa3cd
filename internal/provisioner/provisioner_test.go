package provisioner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demodesk/internal/audit"
	"demodesk/internal/directory"
	"demodesk/internal/genclient"
	"demodesk/internal/identity"
	"demodesk/internal/script"
	"demodesk/internal/statestore"
)

const testDomain = "demo.example.com"

// fakeDirectory implements Directory against an in-memory user map.
type fakeDirectory struct {
	users map[string]*directory.Record

	lookupErr error
	createErr error
	updateErr error
	deleteErr error

	createCalls int
	deleteCalls int

	lastCreatePassword string
	lastUpdatePassword string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: make(map[string]*directory.Record)}
}

func (f *fakeDirectory) Lookup(ctx context.Context, email string) (*directory.Record, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if rec, ok := f.users[email]; ok {
		return rec, nil
	}
	return nil, fmt.Errorf("%w: %s", directory.ErrNotFound, email)
}

func (f *fakeDirectory) Create(ctx context.Context, email, firstName, lastName, password string) error {
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	f.users[email] = &directory.Record{Email: email, FirstName: firstName, LastName: lastName}
	f.lastCreatePassword = password
	return nil
}

func (f *fakeDirectory) UpdateCredential(ctx context.Context, email, newPassword string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.lastUpdatePassword = newPassword
	return nil
}

func (f *fakeDirectory) Delete(ctx context.Context, email string) error {
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.users, email)
	return nil
}

type fakeGenerator struct {
	out string
	err error
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

type fakeSink struct {
	entries []audit.Entry
	err     error
}

func (f *fakeSink) Record(ctx context.Context, e audit.Entry) error {
	f.entries = append(f.entries, e)
	return f.err
}

func newTestService(dir *fakeDirectory, gen Generator, sink audit.Sink) (*Service, *statestore.MemoryStore) {
	store := statestore.NewMemoryStore()
	return NewService(dir, gen, store, sink, testDomain), store
}

func TestGetInitialStateNoAccountClearsStaleState(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory()
	svc, store := newTestService(dir, &fakeGenerator{}, &fakeSink{})

	// Stale record from a torn-down account.
	require.NoError(t, store.Save(ctx, "jane.doe@example.com",
		&statestore.ProvisionResult{Email: "janedoe@demo.example.com"}, nil))

	resp := svc.GetInitialState(ctx, "jane.doe@example.com")
	require.True(t, resp.Success)
	assert.Nil(t, resp.ProvisionResult)
	assert.Nil(t, resp.DemoScript)

	state, err := store.Load(ctx, "jane.doe@example.com")
	require.NoError(t, err)
	assert.Nil(t, state, "stale state should have been cleared")
}

func TestGetInitialStateFoundReturnsDirectoryNamesAndStoredScript(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory()
	dir.users["janedoe@demo.example.com"] = &directory.Record{
		Email: "janedoe@demo.example.com", FirstName: "Janet", LastName: "Doeson",
	}
	svc, store := newTestService(dir, &fakeGenerator{}, &fakeSink{})

	require.NoError(t, store.Save(ctx, "jane.doe@example.com",
		&statestore.ProvisionResult{Email: "janedoe@demo.example.com", FirstName: "Old", LastName: "Name"},
		&script.DemoScript{Title: "Stored walkthrough", Steps: []script.Step{}}))

	resp := svc.GetInitialState(ctx, "jane.doe@example.com")
	require.True(t, resp.Success)
	require.NotNil(t, resp.ProvisionResult)
	// Directory-sourced names are authoritative on lookup.
	assert.Equal(t, "Janet", resp.ProvisionResult.FirstName)
	assert.Equal(t, "Doeson", resp.ProvisionResult.LastName)
	assert.Empty(t, resp.ProvisionResult.Password, "lookup must never reveal a password")
	require.NotNil(t, resp.DemoScript)
	assert.Equal(t, "Stored walkthrough", resp.DemoScript.Title)
}

func TestGetInitialStateRejectsMalformedRequester(t *testing.T) {
	dir := newFakeDirectory()
	svc, _ := newTestService(dir, &fakeGenerator{}, &fakeSink{})

	resp := svc.GetInitialState(context.Background(), "not-an-email")
	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "invalid input")
}

func TestGetInitialStateTransportError(t *testing.T) {
	dir := newFakeDirectory()
	dir.lookupErr = &directory.TransportError{StatusCode: 503, Message: "backend unavailable"}
	svc, _ := newTestService(dir, &fakeGenerator{}, &fakeSink{})

	resp := svc.GetInitialState(context.Background(), "jane.doe@example.com")
	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "503")
}

func TestCreateAccountProvisionsWithOneTimePassword(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory()
	svc, store := newTestService(dir, &fakeGenerator{}, &fakeSink{})

	resp := svc.CreateAccount(ctx, "jane.doe@example.com", "Jane", "Doe")
	require.True(t, resp.Success, "create failed: %s", resp.Error)
	assert.Equal(t, "janedoe@demo.example.com", resp.Email)
	assert.Equal(t, "Jane", resp.FirstName)
	assert.Equal(t, "Doe", resp.LastName)

	require.Len(t, resp.Password, 14)
	assert.NotEqual(t, -1, strings.IndexFunc(resp.Password, isUpper), "password needs an upper-case char")
	assert.NotEqual(t, -1, strings.IndexFunc(resp.Password, isLower), "password needs a lower-case char")
	assert.NotEqual(t, -1, strings.IndexFunc(resp.Password, isDigit), "password needs a digit")
	assert.NotEqual(t, -1, strings.IndexFunc(resp.Password, isSymbol), "password needs a symbol")
	assert.Equal(t, resp.Password, dir.lastCreatePassword, "directory must receive the same password")

	// The password is returned exactly once; it is not retrievable later.
	state, err := store.Load(ctx, "jane.doe@example.com")
	require.NoError(t, err)
	require.NotNil(t, state.Result)
	assert.Empty(t, state.Result.Password)

	next := svc.GetInitialState(ctx, "jane.doe@example.com")
	require.True(t, next.Success)
	require.NotNil(t, next.ProvisionResult)
	assert.Equal(t, "janedoe@demo.example.com", next.ProvisionResult.Email)
	assert.Empty(t, next.ProvisionResult.Password)
}

func TestCreateAccountIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory()
	svc, _ := newTestService(dir, &fakeGenerator{}, &fakeSink{})

	first := svc.CreateAccount(ctx, "jane.doe@example.com", "Jane", "Doe")
	require.True(t, first.Success)

	second := svc.CreateAccount(ctx, "jane.doe@example.com", "Jane", "Doe")
	require.True(t, second.Success)
	assert.Equal(t, 1, dir.createCalls, "second call must not attempt a duplicate create")
	assert.Empty(t, second.Password, "an existing account never reveals a password")
}

func TestCreateAccountFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory()
	dir.createErr = &directory.TransportError{StatusCode: 403, Message: "quota exceeded"}
	svc, store := newTestService(dir, &fakeGenerator{}, &fakeSink{})

	resp := svc.CreateAccount(ctx, "jane.doe@example.com", "Jane", "Doe")
	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "403")
	assert.Equal(t, 1, dir.createCalls, "no automatic retry")

	state, err := store.Load(ctx, "jane.doe@example.com")
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestCreateAccountDiscardsStaleScript(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory()
	svc, store := newTestService(dir, &fakeGenerator{}, &fakeSink{})

	require.NoError(t, store.Save(ctx, "jane.doe@example.com", nil,
		&script.DemoScript{Title: "About the old account", Steps: []script.Step{}}))

	resp := svc.CreateAccount(ctx, "jane.doe@example.com", "Jane", "Doe")
	require.True(t, resp.Success)

	state, err := store.Load(ctx, "jane.doe@example.com")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Nil(t, state.Script, "a fresh account makes the previous script stale")
}

func TestResetPasswordRequiresProvisionedAccount(t *testing.T) {
	dir := newFakeDirectory()
	svc, _ := newTestService(dir, &fakeGenerator{}, &fakeSink{})

	resp := svc.ResetPassword(context.Background(), "jane.doe@example.com")
	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "no demo account")
}

func TestResetPasswordReturnsFreshCredential(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory()
	svc, store := newTestService(dir, &fakeGenerator{}, &fakeSink{})

	created := svc.CreateAccount(ctx, "jane.doe@example.com", "Jane", "Doe")
	require.True(t, created.Success)

	reset := svc.ResetPassword(ctx, "jane.doe@example.com")
	require.True(t, reset.Success, "reset failed: %s", reset.Error)
	assert.Len(t, reset.Password, 14)
	assert.NotEqual(t, created.Password, reset.Password)
	assert.Equal(t, reset.Password, dir.lastUpdatePassword)

	// Even after a reset, the stored copy is not retrievable.
	state, err := store.Load(ctx, "jane.doe@example.com")
	require.NoError(t, err)
	assert.Empty(t, state.Result.Password)
}

func TestResetPasswordFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory()
	svc, store := newTestService(dir, &fakeGenerator{}, &fakeSink{})

	require.True(t, svc.CreateAccount(ctx, "jane.doe@example.com", "Jane", "Doe").Success)
	before, err := store.Load(ctx, "jane.doe@example.com")
	require.NoError(t, err)

	dir.updateErr = &directory.TransportError{StatusCode: 500, Message: "internal error"}
	resp := svc.ResetPassword(ctx, "jane.doe@example.com")
	require.False(t, resp.Success)

	after, err := store.Load(ctx, "jane.doe@example.com")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestGenerateScriptPersistsValidatedScript(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory()
	gen := &fakeGenerator{out: `{"summary":"s","title":"Shared drives demo","introduction":"i","prerequisites":["Sign in"],"steps":[{"step_title":"Open Drive","action":"Navigate","ui_interaction":"Click","presenter_script":"Say"}]}`}
	sink := &fakeSink{}
	svc, store := newTestService(dir, gen, sink)

	require.True(t, svc.CreateAccount(ctx, "jane.doe@example.com", "Jane", "Doe").Success)

	resp := svc.GenerateScript(ctx, "jane.doe@example.com", "sales demo of shared drives")
	require.True(t, resp.Success, "generate failed: %s", resp.Error)
	require.NotNil(t, resp.DemoScript)
	assert.Equal(t, "Shared drives demo", resp.DemoScript.Title)

	state, err := store.Load(ctx, "jane.doe@example.com")
	require.NoError(t, err)
	require.NotNil(t, state.Script)
	assert.Equal(t, "Shared drives demo", state.Script.Title)

	require.Len(t, sink.entries, 1)
	assert.Equal(t, "success", sink.entries[0].Outcome)
	assert.Contains(t, sink.entries[0].Prompt, "sales demo of shared drives")
	assert.Contains(t, sink.entries[0].Prompt, "janedoe@demo.example.com")
}

func TestGenerateScriptRejectsFencedOutput(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory()
	gen := &fakeGenerator{out: "```json {\"title\":\"T\",\"steps\":[]}```"}
	sink := &fakeSink{}
	svc, store := newTestService(dir, gen, sink)

	require.True(t, svc.CreateAccount(ctx, "jane.doe@example.com", "Jane", "Doe").Success)
	require.NoError(t, store.Save(ctx, "jane.doe@example.com", nil,
		&script.DemoScript{Title: "Previous good script", Steps: []script.Step{}}))

	resp := svc.GenerateScript(ctx, "jane.doe@example.com", "sales demo of shared drives")
	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "rejected")

	// The previous script survives every failed regeneration.
	state, err := store.Load(ctx, "jane.doe@example.com")
	require.NoError(t, err)
	require.NotNil(t, state.Script)
	assert.Equal(t, "Previous good script", state.Script.Title)

	require.Len(t, sink.entries, 1)
	assert.Equal(t, "failure", sink.entries[0].Outcome)
}

func TestGenerateScriptModelFailureKeepsPreviousScript(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory()
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	svc, store := newTestService(dir, gen, &fakeSink{})

	require.True(t, svc.CreateAccount(ctx, "jane.doe@example.com", "Jane", "Doe").Success)
	require.NoError(t, store.Save(ctx, "jane.doe@example.com", nil,
		&script.DemoScript{Title: "Previous good script", Steps: []script.Step{}}))

	resp := svc.GenerateScript(ctx, "jane.doe@example.com", "ctx")
	require.False(t, resp.Success)

	state, err := store.Load(ctx, "jane.doe@example.com")
	require.NoError(t, err)
	require.NotNil(t, state.Script)
	assert.Equal(t, "Previous good script", state.Script.Title)
}

func TestGenerateScriptRequiresProvisionedAccount(t *testing.T) {
	svc, _ := newTestService(newFakeDirectory(), &fakeGenerator{}, &fakeSink{})

	resp := svc.GenerateScript(context.Background(), "jane.doe@example.com", "ctx")
	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "no demo account")
}

func TestGenerateScriptAuditFailureIsBestEffort(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory()
	gen := &fakeGenerator{out: `{"title":"T","steps":[]}`}
	sink := &fakeSink{err: errors.New("audit backend down")}
	svc, _ := newTestService(dir, gen, sink)

	require.True(t, svc.CreateAccount(ctx, "jane.doe@example.com", "Jane", "Doe").Success)

	resp := svc.GenerateScript(ctx, "jane.doe@example.com", "ctx")
	require.True(t, resp.Success, "audit failure must not fail the operation: %s", resp.Error)
}

func TestDeleteAccountIsIdempotentAndClearsState(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory()
	svc, store := newTestService(dir, &fakeGenerator{}, &fakeSink{})

	require.True(t, svc.CreateAccount(ctx, "jane.doe@example.com", "Jane", "Doe").Success)

	first := svc.DeleteAccount(ctx, "jane.doe@example.com", "janedoe@demo.example.com")
	require.True(t, first.Success)
	second := svc.DeleteAccount(ctx, "jane.doe@example.com", "janedoe@demo.example.com")
	require.True(t, second.Success, "repeated teardown must succeed")

	state, err := store.Load(ctx, "jane.doe@example.com")
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestDeleteAccountRequiresEmail(t *testing.T) {
	svc, _ := newTestService(newFakeDirectory(), &fakeGenerator{}, &fakeSink{})

	resp := svc.DeleteAccount(context.Background(), "jane.doe@example.com", "")
	require.False(t, resp.Success)
	assert.Contains(t, resp.Error, "email is required")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"Malformed email", fmt.Errorf("wrap: %w", identity.ErrMalformedEmail), KindInvalidInput},
		{"Auth failure", fmt.Errorf("wrap: %w", directory.ErrAuthentication), KindAuthentication},
		{"Lookup miss", fmt.Errorf("wrap: %w", directory.ErrNotFound), KindNotFound},
		{"Missing api key", genclient.ErrNoAPIKey, KindConfiguration},
		{"Transport", &directory.TransportError{StatusCode: 500}, KindTransport},
		{"Parse error", &script.ParseError{RawText: "x"}, KindValidation},
		{"Schema error", &script.SchemaError{Field: "steps"}, KindValidation},
		{"Unknown", errors.New("boom"), KindTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func isUpper(r rune) bool  { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool  { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isSymbol(r rune) bool { return !isUpper(r) && !isLower(r) && !isDigit(r) }
