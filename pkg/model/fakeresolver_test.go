package model

import (
	"context"

	"github.com/obriencj/koji-habitude-go/pkg/hub"
	"github.com/obriencj/koji-habitude-go/pkg/key"
)

// fakeResolver is a minimal Resolver used by per-kind report tests; it
// never marks anything phantom or split-delegated unless told to.
type fakeResolver struct {
	phantoms map[key.Key]bool
	split    map[key.Key]bool
	ids      map[key.Key]int
	authored map[key.Key]Object
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		phantoms: map[key.Key]bool{},
		split:    map[key.Key]bool{},
		ids:      map[key.Key]int{},
		authored: map[key.Key]Object{},
	}
}

func (f *fakeResolver) Resolve(k key.Key) (Object, error) { return f.authored[k], nil }
func (f *fakeResolver) IsPhantom(k key.Key) bool          { return f.phantoms[k] }
func (f *fakeResolver) SplitDelegated(k key.Key) bool     { return f.split[k] }
func (f *fakeResolver) MarkSplitDelegated(k key.Key)      { f.split[k] = true }
func (f *fakeResolver) RemoteID(k key.Key) (int, bool) {
	id, ok := f.ids[k]
	return id, ok
}
func (f *fakeResolver) SetRemoteID(k key.Key, id int) { f.ids[k] = id }

// fakeTransport answers every Call/MultiCall with canned responses
// keyed by method name, shared across the per-kind report tests in
// this package.
type fakeTransport struct {
	authed    bool
	responses map[string]hub.Result
}

func (f *fakeTransport) Call(_ context.Context, call hub.Call) (any, error) {
	r := f.responses[call.Method]
	return r.Value, r.Err
}

func (f *fakeTransport) MultiCall(_ context.Context, calls []hub.Call) ([]hub.Result, error) {
	out := make([]hub.Result, len(calls))
	for i, c := range calls {
		out[i] = f.responses[c.Method]
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
