package multicall

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obriencj/koji-habitude-go/pkg/hub"
	"github.com/obriencj/koji-habitude-go/pkg/key"
)

type fakeTransport struct {
	authed  bool
	results map[string]hub.Result
}

func (f *fakeTransport) Call(_ context.Context, call hub.Call) (any, error) {
	r := f.results[call.Method]
	return r.Value, r.Err
}

func (f *fakeTransport) MultiCall(_ context.Context, calls []hub.Call) ([]hub.Result, error) {
	out := make([]hub.Result, len(calls))
	for i, c := range calls {
		out[i] = f.results[c.Method]
	}
	return out, nil
}

func (f *fakeTransport) Authenticated() bool { return f.authed }
func (f *fakeTransport) CurrentUser() (hub.CurrentUser, bool) {
	if !f.authed {
		return hub.CurrentUser{}, false
	}
	return hub.CurrentUser{ID: 1, Name: "releng"}, true
}

func TestCallDoesNotExecuteUntilCommit(t *testing.T) {
	ft := &fakeTransport{authed: true, results: map[string]hub.Result{
		"getTag": {Value: map[string]any{"id": float64(1)}},
	}}
	s := NewSession(ft)

	vc := s.Call("getTag", []any{"f40-build"}, nil)
	assert.Equal(t, 1, s.Pending())
	assert.Nil(t, vc.Value(), "result must be unset before commit")

	require.NoError(t, s.Commit(context.Background()))
	assert.Equal(t, 0, s.Pending())
	assert.True(t, s.Committed())
	assert.Equal(t, map[string]any{"id": float64(1)}, vc.Value())
	assert.NoError(t, vc.Err())
}

func TestCommitWithNoPendingCallsIsANoop(t *testing.T) {
	ft := &fakeTransport{authed: true}
	s := NewSession(ft)
	require.NoError(t, s.Commit(context.Background()))
	assert.True(t, s.Committed())
}

func TestPromiseTriggerFiresOnCommit(t *testing.T) {
	ft := &fakeTransport{authed: true, results: map[string]hub.Result{
		"getTag": {Value: "found"},
	}}
	s := NewSession(ft)

	var fired hub.Result
	s.Promise("getTag", nil, nil, func(r hub.Result) { fired = r })

	require.NoError(t, s.Commit(context.Background()))
	assert.Equal(t, "found", fired.Value)
}

func TestProcessorLazilyTransformsResult(t *testing.T) {
	ft := &fakeTransport{authed: true, results: map[string]hub.Result{
		"getTag": {Value: "raw"},
	}}
	s := NewSession(ft)

	calls := 0
	pc := s.Processor("getTag", nil, nil, func(r hub.Result) hub.Result {
		calls++
		return hub.Result{Value: r.Value.(string) + "-transformed"}
	})

	require.NoError(t, s.Commit(context.Background()))
	assert.Equal(t, "raw-transformed", pc.Result().Value)
	assert.Equal(t, "raw-transformed", pc.Result().Value)
	assert.Equal(t, 1, calls, "transform must be applied lazily and cached")
}

func TestAssociateGroupsCallsUnderOneKey(t *testing.T) {
	ft := &fakeTransport{authed: true, results: map[string]hub.Result{
		"getTag":  {Value: "a"},
		"getUser": {Value: "b"},
	}}
	s := NewSession(ft)
	k := key.New(key.Tag, "f40-build")

	s.Associate(k)
	s.Call("getTag", nil, nil)
	s.ClearAssociation()
	s.Call("getUser", nil, nil)

	assert.Len(t, s.Log()[k], 1)
	assert.Equal(t, "getTag", s.Log()[k][0].Method())
}

func TestCommitPropagatesTransportError(t *testing.T) {
	ft := &erroringTransport{}
	s := NewSession(ft)
	s.Call("getTag", nil, nil)
	err := s.Commit(context.Background())
	assert.Error(t, err)
}

type erroringTransport struct{}

func (e *erroringTransport) Call(_ context.Context, _ hub.Call) (any, error) { return nil, nil }
func (e *erroringTransport) MultiCall(_ context.Context, _ []hub.Call) ([]hub.Result, error) {
	return nil, assert.AnError
}
func (e *erroringTransport) Authenticated() bool                  { return false }
func (e *erroringTransport) CurrentUser() (hub.CurrentUser, bool) { return hub.CurrentUser{}, false }

func TestSessionCurrentUserDelegatesToTransport(t *testing.T) {
	ft := &fakeTransport{authed: true}
	s := NewSession(ft)
	u, ok := s.CurrentUser()
	assert.True(t, ok)
	assert.Equal(t, "releng", u.Name)
}
