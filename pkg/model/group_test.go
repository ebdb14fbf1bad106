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

func TestBuildGroupRequiresName(t *testing.T) {
	_, err := BuildGroup(Document{Type: "group"})
	assert.Error(t, err)
}

func TestGroupReportAddsMembersAndPermissionsDistinctly(t *testing.T) {
	g, err := BuildGroup(Document{
		Type: "group", Name: "releng",
		Fields: map[string]any{
			"members":     []any{"alice"},
			"permissions": []any{"build"},
		},
	})
	require.NoError(t, err)

	resolver := newFakeResolver()
	transport := &fakeTransport{authed: true, responses: map[string]hub.Result{
		hub.MethodGetUser:         {Value: map[string]any{"id": float64(1)}},
		hub.MethodGetGroupMembers: {Value: []any{}},
		hub.MethodGetUserPerms:    {Value: []any{}},
	}}
	session := multicall.NewSession(transport)

	report := g.NewChangeReport(resolver)
	_, err = report.Read(context.Background(), session)
	require.NoError(t, err)
	require.NoError(t, session.Commit(context.Background()))
	require.NoError(t, report.Compare())

	var addMember, addPerm bool
	for _, c := range report.Changes() {
		if c.Kind == change.KindAdd {
			switch c.Payload {
			case "member":
				addMember = true
				assert.Equal(t, "alice", c.Subject)
			case "permission":
				addPerm = true
				assert.Equal(t, "build", c.Subject)
			}
		}
	}
	assert.True(t, addMember)
	assert.True(t, addPerm)
}

func TestGroupReportApplyDispatchesByPayload(t *testing.T) {
	g, err := BuildGroup(Document{
		Type: "group", Name: "releng",
		Fields: map[string]any{"members": []any{"alice"}, "permissions": []any{"build"}},
	})
	require.NoError(t, err)

	resolver := newFakeResolver()
	transport := &fakeTransport{authed: true, responses: map[string]hub.Result{
		hub.MethodGetUser:          {Value: map[string]any{"id": float64(1)}},
		hub.MethodGetGroupMembers:  {Value: []any{}},
		hub.MethodGetUserPerms:     {Value: []any{}},
		hub.MethodAddGroupMember:   {Value: map[string]any{}},
		hub.MethodGrantPermission:  {Value: map[string]any{}},
	}}
	session := multicall.NewSession(transport)

	report := g.NewChangeReport(resolver)
	_, err = report.Read(context.Background(), session)
	require.NoError(t, err)
	require.NoError(t, session.Commit(context.Background()))
	require.NoError(t, report.Compare())

	applySession := multicall.NewSession(transport)
	require.NoError(t, report.Apply(context.Background(), applySession))
	require.NoError(t, applySession.Commit(context.Background()))

	var methods []string
	for _, vc := range applySession.Log()[g.Key()] {
		methods = append(methods, vc.Method())
	}
	assert.Contains(t, methods, hub.MethodAddGroupMember)
	assert.Contains(t, methods, hub.MethodGrantPermission)
}
