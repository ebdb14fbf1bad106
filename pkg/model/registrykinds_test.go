package model

// Coverage for the remaining non-splittable, registry-shaped kinds:
// archive-type, build-type, external-repo, permission, and
// content-generator. Each is a thinner variant of the same
// existence-probe-then-create report shape already exercised in depth
// by user_test.go/host_test.go/target_test.go, so these tests focus on
// the one or two behaviors that differ per kind.

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obriencj/koji-habitude-go/pkg/change"
	"github.com/obriencj/koji-habitude-go/pkg/hub"
	"github.com/obriencj/koji-habitude-go/pkg/multicall"
)

func TestBuildArchiveTypeRequiresExtensions(t *testing.T) {
	_, err := BuildArchiveType(Document{Type: "archive-type", Name: "jar"})
	assert.Error(t, err)
}

func TestArchiveTypeIsNotSplittable(t *testing.T) {
	at, err := BuildArchiveType(Document{
		Type: "archive-type", Name: "jar",
		Fields: map[string]any{"extensions": []any{"jar"}},
	})
	require.NoError(t, err)
	assert.False(t, at.CanSplit())
	_, err = at.Split()
	assert.Error(t, err)
}

func TestArchiveTypeReportCreatesWhenNotListed(t *testing.T) {
	at, err := BuildArchiveType(Document{
		Type: "archive-type", Name: "jar",
		Fields: map[string]any{"extensions": []any{"jar"}},
	})
	require.NoError(t, err)

	resolver := newFakeResolver()
	transport := &fakeTransport{authed: true, responses: map[string]hub.Result{
		hub.MethodGetArchiveTypes: {Value: []any{map[string]any{"name": "zip"}}},
	}}
	session := multicall.NewSession(transport)

	report := at.NewChangeReport(resolver)
	_, err = report.Read(context.Background(), session)
	require.NoError(t, err)
	require.NoError(t, session.Commit(context.Background()))
	require.NoError(t, report.Compare())
	require.Len(t, report.Changes(), 1)
	assert.Equal(t, change.KindCreate, report.Changes()[0].Kind)
}

func TestArchiveTypeReportNoChangeWhenAlreadyListed(t *testing.T) {
	at, err := BuildArchiveType(Document{
		Type: "archive-type", Name: "jar",
		Fields: map[string]any{"extensions": []any{"jar"}},
	})
	require.NoError(t, err)

	resolver := newFakeResolver()
	transport := &fakeTransport{authed: true, responses: map[string]hub.Result{
		hub.MethodGetArchiveTypes: {Value: []any{"jar"}},
	}}
	session := multicall.NewSession(transport)

	report := at.NewChangeReport(resolver)
	_, err = report.Read(context.Background(), session)
	require.NoError(t, err)
	require.NoError(t, session.Commit(context.Background()))
	require.NoError(t, report.Compare())
	assert.Empty(t, report.Changes())
}

func TestBuildBuildTypeRequiresName(t *testing.T) {
	_, err := BuildBuildType(Document{Type: "build-type"})
	assert.Error(t, err)
}

func TestBuildTypeReportCreatesWhenAbsent(t *testing.T) {
	bt, err := BuildBuildType(Document{Type: "build-type", Name: "maven"})
	require.NoError(t, err)

	resolver := newFakeResolver()
	transport := &fakeTransport{authed: true, responses: map[string]hub.Result{
		hub.MethodListBTypes: {Value: []any{"rpm"}},
	}}
	session := multicall.NewSession(transport)

	report := bt.NewChangeReport(resolver)
	_, err = report.Read(context.Background(), session)
	require.NoError(t, err)
	require.NoError(t, session.Commit(context.Background()))
	require.NoError(t, report.Compare())
	require.Len(t, report.Changes(), 1)
	assert.Equal(t, change.KindCreate, report.Changes()[0].Kind)
}

func TestBuildExternalRepoRequiresURL(t *testing.T) {
	_, err := BuildExternalRepo(Document{Type: "external-repo", Name: "epel"})
	assert.Error(t, err)
}

func TestExternalRepoReportUpdatesOnURLDrift(t *testing.T) {
	e, err := BuildExternalRepo(Document{
		Type: "external-repo", Name: "epel",
		Fields: map[string]any{"url": "https://new.example/epel"},
	})
	require.NoError(t, err)

	resolver := newFakeResolver()
	transport := &fakeTransport{authed: true, responses: map[string]hub.Result{
		hub.MethodGetExternalRepo: {Value: map[string]any{"url": "https://old.example/epel"}},
	}}
	session := multicall.NewSession(transport)

	report := e.NewChangeReport(resolver)
	_, err = report.Read(context.Background(), session)
	require.NoError(t, err)
	require.NoError(t, session.Commit(context.Background()))
	require.NoError(t, report.Compare())
	require.Len(t, report.Changes(), 1)
	assert.Equal(t, change.KindUpdate, report.Changes()[0].Kind)
}

func TestPermissionReportCreateRequiresAuthenticatedSession(t *testing.T) {
	p, err := BuildPermission(Document{Type: "permission", Name: "admin"})
	require.NoError(t, err)

	resolver := newFakeResolver()
	transport := &fakeTransport{authed: false, responses: map[string]hub.Result{
		hub.MethodGetAllPerms: {Value: []any{}},
	}}
	session := multicall.NewSession(transport)

	report := p.NewChangeReport(resolver)
	_, err = report.Read(context.Background(), session)
	require.NoError(t, err)
	require.NoError(t, session.Commit(context.Background()))
	require.NoError(t, report.Compare())

	applySession := multicall.NewSession(transport)
	require.NoError(t, report.Apply(context.Background(), applySession))
	require.NoError(t, applySession.Commit(context.Background()))
	require.Error(t, report.CheckResults(), "create without an authenticated current user must record an apply error")
}

func TestPermissionReportCreateGrantsThenRevokesAsCurrentUser(t *testing.T) {
	p, err := BuildPermission(Document{Type: "permission", Name: "admin"})
	require.NoError(t, err)

	resolver := newFakeResolver()
	transport := &fakeTransport{authed: true, responses: map[string]hub.Result{
		hub.MethodGetAllPerms:      {Value: []any{}},
		hub.MethodGrantPermission:  {Value: map[string]any{}},
		hub.MethodRevokePermission: {Value: map[string]any{}},
	}}
	session := multicall.NewSession(transport)

	report := p.NewChangeReport(resolver)
	_, err = report.Read(context.Background(), session)
	require.NoError(t, err)
	require.NoError(t, session.Commit(context.Background()))
	require.NoError(t, report.Compare())

	applySession := multicall.NewSession(transport)
	require.NoError(t, report.Apply(context.Background(), applySession))
	require.NoError(t, applySession.Commit(context.Background()))
	require.NoError(t, report.CheckResults())

	var methods []string
	for _, vc := range applySession.Log()[p.Key()] {
		methods = append(methods, vc.Method())
	}
	assert.Equal(t, []string{hub.MethodGrantPermission, hub.MethodRevokePermission}, methods)
}

// recordingTransport captures every Call's method/args/kwargs, for tests
// that need to assert on what was actually sent rather than just that a
// method fired (fakeTransport's canned-by-method-name responses can't
// distinguish two calls to the same method).
type recordingTransport struct {
	authed  bool
	calls   []hub.Call
	results map[string]hub.Result
}

func (r *recordingTransport) Call(_ context.Context, call hub.Call) (any, error) {
	r.calls = append(r.calls, call)
	res := r.results[call.Method]
	return res.Value, res.Err
}

func (r *recordingTransport) MultiCall(_ context.Context, calls []hub.Call) ([]hub.Result, error) {
	out := make([]hub.Result, len(calls))
	for i, c := range calls {
		r.calls = append(r.calls, c)
		out[i] = r.results[c.Method]
	}
	return out, nil
}

func (r *recordingTransport) Authenticated() bool { return r.authed }
func (r *recordingTransport) CurrentUser() (hub.CurrentUser, bool) {
	if !r.authed {
		return hub.CurrentUser{}, false
	}
	return hub.CurrentUser{ID: 12345, Name: "releng"}, true
}

func TestPermissionReportCreateIsSingleChangeUsingCurrentUserID(t *testing.T) {
	p, err := BuildPermission(Document{
		Type: "permission", Name: "new-permission",
		Fields: map[string]any{"description": "a new permission"},
	})
	require.NoError(t, err)

	resolver := newFakeResolver()
	transport := &recordingTransport{authed: true, results: map[string]hub.Result{
		hub.MethodGetAllPerms:      {Value: []any{}},
		hub.MethodGrantPermission:  {Value: map[string]any{}},
		hub.MethodRevokePermission: {Value: map[string]any{}},
	}}
	session := multicall.NewSession(transport)

	report := p.NewChangeReport(resolver)
	_, err = report.Read(context.Background(), session)
	require.NoError(t, err)
	require.NoError(t, session.Commit(context.Background()))
	require.NoError(t, report.Compare())
	require.Len(t, report.Changes(), 1, "create must fold the description into a single change")
	assert.Equal(t, change.KindCreate, report.Changes()[0].Kind)

	applySession := multicall.NewSession(transport)
	require.NoError(t, report.Apply(context.Background(), applySession))
	require.NoError(t, applySession.Commit(context.Background()))
	require.NoError(t, report.CheckResults())

	require.Len(t, transport.calls, 3) // getAllPerms, grantPermission, revokePermission
	grant := transport.calls[1]
	assert.Equal(t, hub.MethodGrantPermission, grant.Method)
	assert.Equal(t, []any{12345, "new-permission"}, grant.Args)
	assert.Equal(t, true, grant.Kwargs["create"])
	assert.Equal(t, "a new permission", grant.Kwargs["description"])

	revoke := transport.calls[2]
	assert.Equal(t, hub.MethodRevokePermission, revoke.Method)
	assert.Equal(t, []any{12345, "new-permission"}, revoke.Args)
}

func TestBuildContentGeneratorRequiresName(t *testing.T) {
	_, err := BuildContentGenerator(Document{Type: "content-generator"})
	assert.Error(t, err)
}

func TestContentGeneratorReportGrantsMissingUser(t *testing.T) {
	cg, err := BuildContentGenerator(Document{
		Type: "content-generator", Name: "truva",
		Fields: map[string]any{"users": []any{"builder"}},
	})
	require.NoError(t, err)

	resolver := newFakeResolver()
	transport := &fakeTransport{authed: true, responses: map[string]hub.Result{
		hub.MethodListCGs: {Value: map[string]any{
			"truva": map[string]any{"users": []any{}},
		}},
	}}
	session := multicall.NewSession(transport)

	report := cg.NewChangeReport(resolver)
	_, err = report.Read(context.Background(), session)
	require.NoError(t, err)
	require.NoError(t, session.Commit(context.Background()))
	require.NoError(t, report.Compare())

	var sawAdd bool
	for _, c := range report.Changes() {
		if c.Kind == change.KindAdd {
			sawAdd = true
			assert.Equal(t, "builder", c.Subject)
		}
	}
	assert.True(t, sawAdd)
}
