// Package hub defines the fixed vocabulary of Koji hub RPC methods the
// system issues (spec.md section 6) and the narrow Transport interface
// the rest of the module programs against. The wire protocol itself -
// session handshake, XML-RPC encoding, retries - is an external
// collaborator out of scope for this core: Transport is the seam.
package hub

import (
	"context"
)

//go:generate mockgen -destination=mocks/mock_transport.go -package=mocks -source=hub.go Transport

// Method names for the fixed hub RPC vocabulary (spec.md section 6).
// Object-kind packages reference these constants rather than string
// literals so the vocabulary stays centralized and greppable.
const (
	MethodGetTag                = "getTag"
	MethodCreateTag              = "createTag"
	MethodEditTag2               = "editTag2"
	MethodGetInheritanceData     = "getInheritanceData"
	MethodSetInheritanceData     = "setInheritanceData"
	MethodGetTagGroups           = "getTagGroups"
	MethodGroupListAdd           = "groupListAdd"
	MethodGroupPackageListAdd    = "groupPackageListAdd"
	MethodGroupListRemove        = "groupListRemove"
	MethodGroupPackageListRemove = "groupPackageListRemove"
	MethodGetTagExternalRepos    = "getTagExternalRepos"
	MethodAddExternalRepoToTag   = "addExternalRepoToTag"
	MethodGetUser                = "getUser"
	MethodCreateUser              = "createUser"
	MethodEnableUser              = "enableUser"
	MethodDisableUser             = "disableUser"
	MethodGetUserPerms            = "getUserPerms"
	MethodGrantPermission         = "grantPermission"
	MethodRevokePermission        = "revokePermission"
	MethodGetGroupMembers         = "getGroupMembers"
	MethodAddGroupMember          = "addGroupMember"
	MethodDropGroupMember         = "dropGroupMember"
	MethodNewGroup                = "newGroup"
	MethodGetBuildTarget          = "getBuildTarget"
	MethodCreateBuildTarget       = "createBuildTarget"
	MethodEditBuildTarget         = "editBuildTarget"
	MethodGetHost                 = "getHost"
	MethodCreateHost              = "createHost"
	MethodEditHost                = "editHost"
	MethodEnableHost              = "enableHost"
	MethodDisableHost             = "disableHost"
	MethodAddHostToChannel        = "addHostToChannel"
	MethodRemoveHostFromChannel   = "removeHostFromChannel"
	MethodGetChannel              = "getChannel"
	MethodCreateChannel           = "createChannel"
	MethodEditChannel             = "editChannel"
	MethodListHosts               = "listHosts"
	MethodListChannels            = "listChannels"
	MethodGetExternalRepo         = "getExternalRepo"
	MethodCreateExternalRepo      = "createExternalRepo"
	MethodEditExternalRepo        = "editExternalRepo"
	MethodGetAllPerms             = "getAllPerms"
	MethodEditPermission          = "editPermission"
	MethodListBTypes              = "listBTypes"
	MethodAddBType                = "addBType"
	MethodGetArchiveTypes         = "getArchiveTypes"
	MethodAddArchiveType          = "addArchiveType"
	MethodListCGs                 = "listCGs"
	MethodGrantCGAccess           = "grantCGAccess"
	MethodRevokeCGAccess          = "revokeCGAccess"
	MethodMultiCall               = "multiCall"
)

// Call is a single hub method invocation: a method name and its positional
// and keyword arguments. Koji's XML-RPC surface accepts a final kwargs
// mapping argument by convention; Kwargs is nil when a call has none.
type Call struct {
	Method string
	Args   []any
	Kwargs map[string]any
}

// Result is the outcome of one Call after a Transport round-trip: either
// Value is populated, or Err describes why the call failed. Koji's own
// multiCall convention wraps each result as [value] or {"faultCode":...},
// which the Transport implementation is responsible for unwrapping into
// this shape before it reaches the rest of the module.
type Result struct {
	Value any
	Err   error
}

// CurrentUser identifies the authenticated principal of a Session, cached
// at session-acquisition time (spec.md section 6, "Current-user
// requirement"; section 9, "Global-ish state").
type CurrentUser struct {
	ID   int
	Name string
}

// Transport is the seam between this module and the wire protocol. A
// Session (pkg/multicall) issues individual Calls for interactive use
// and batches of Calls via MultiCall for session commits.
type Transport interface {
	// Call issues a single RPC and blocks for its result.
	Call(ctx context.Context, call Call) (any, error)
	// MultiCall issues every call in one network round-trip, returning
	// results in the same order as calls. A transport-level failure
	// (e.g. the connection drops) returns a non-nil error and a nil
	// slice; per-call faults are reported in the corresponding Result.
	MultiCall(ctx context.Context, calls []Call) ([]Result, error)
	// Authenticated reports whether this transport has completed the
	// credential handshake; sync workflows require true (spec.md
	// section 6, "Current-user requirement"), compare workflows do not.
	Authenticated() bool
	// CurrentUser returns the cached authenticated principal, or the
	// zero value and false when Authenticated() is false.
	CurrentUser() (CurrentUser, bool)
}
