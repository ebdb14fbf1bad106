package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obriencj/koji-habitude-go/pkg/change"
	"github.com/obriencj/koji-habitude-go/pkg/hub"
	"github.com/obriencj/koji-habitude-go/pkg/multicall"
)

func TestBuildUserRequiresName(t *testing.T) {
	_, err := BuildUser(Document{Type: "user"})
	assert.Error(t, err)
}

func TestBuildUserFields(t *testing.T) {
	u, err := BuildUser(Document{
		Type: "user",
		Name: "releng",
		Fields: map[string]any{
			"groups":            []any{"admins"},
			"permissions":       []any{"build"},
			"exact-permissions": true,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"admins"}, u.Groups)
	assert.Equal(t, []string{"build"}, u.Permissions)
	assert.True(t, u.ExactPermissions)
	assert.True(t, u.Enabled)
}

func TestUserReportCreatesWhenAbsentRemotely(t *testing.T) {
	u, err := BuildUser(Document{Type: "user", Name: "releng"})
	require.NoError(t, err)

	resolver := newFakeResolver()
	transport := &fakeTransport{authed: true, responses: map[string]hub.Result{
		hub.MethodGetUser:      {Value: nil},
		hub.MethodGetUserPerms: {Value: []any{}},
	}}
	session := multicall.NewSession(transport)

	report := u.NewChangeReport(resolver)
	_, err = report.Read(context.Background(), session)
	require.NoError(t, err)
	require.NoError(t, session.Commit(context.Background()))
	require.NoError(t, report.Compare())

	var sawCreate bool
	for _, c := range report.Changes() {
		if c.Kind == change.KindCreate {
			sawCreate = true
		}
	}
	assert.True(t, sawCreate)
}

func TestUserReportGrantsMissingPermissionsAndRevokesExtras(t *testing.T) {
	u, err := BuildUser(Document{
		Type: "user", Name: "releng",
		Fields: map[string]any{
			"permissions":       []any{"build"},
			"exact-permissions": true,
		},
	})
	require.NoError(t, err)

	resolver := newFakeResolver()
	transport := &fakeTransport{authed: true, responses: map[string]hub.Result{
		hub.MethodGetUser:      {Value: map[string]any{"id": float64(1), "name": "releng"}},
		hub.MethodGetUserPerms: {Value: []any{"admin"}},
	}}
	session := multicall.NewSession(transport)

	report := u.NewChangeReport(resolver)
	_, err = report.Read(context.Background(), session)
	require.NoError(t, err)
	require.NoError(t, session.Commit(context.Background()))
	require.NoError(t, report.Compare())

	var grants, revokes int
	for _, c := range report.Changes() {
		switch c.Kind {
		case change.KindAdd:
			grants++
			assert.Equal(t, "build", c.Subject)
		case change.KindRemove:
			revokes++
			assert.Equal(t, "admin", c.Subject)
		}
	}
	assert.Equal(t, 1, grants)
	assert.Equal(t, 1, revokes)
}

func TestUserReportApplyIssuesGrantAndRevokeCalls(t *testing.T) {
	u, err := BuildUser(Document{
		Type: "user", Name: "releng",
		Fields: map[string]any{"permissions": []any{"build"}, "exact-permissions": true},
	})
	require.NoError(t, err)

	resolver := newFakeResolver()
	transport := &fakeTransport{authed: true, responses: map[string]hub.Result{
		hub.MethodGetUser:         {Value: map[string]any{"id": float64(1)}},
		hub.MethodGetUserPerms:    {Value: []any{"admin"}},
		hub.MethodGrantPermission: {Value: map[string]any{}},
		hub.MethodRevokePermission: {Value: map[string]any{}},
	}}
	session := multicall.NewSession(transport)

	report := u.NewChangeReport(resolver)
	_, err = report.Read(context.Background(), session)
	require.NoError(t, err)
	require.NoError(t, session.Commit(context.Background()))
	require.NoError(t, report.Compare())

	applySession := multicall.NewSession(transport)
	require.NoError(t, report.Apply(context.Background(), applySession))
	require.NoError(t, applySession.Commit(context.Background()))

	var methods []string
	for _, vc := range applySession.Log()[u.Key()] {
		methods = append(methods, vc.Method())
	}
	assert.Contains(t, methods, hub.MethodGrantPermission)
	assert.Contains(t, methods, hub.MethodRevokePermission)
}
