package model

import (
	"github.com/obriencj/koji-habitude-go/pkg/errors"
	"github.com/obriencj/koji-habitude-go/pkg/key"
)

// Build dispatches a raw Document to the BuildX constructor for its
// core kind (spec.md section 4.1). Callers outside pkg/namespace that
// already know a document names a core kind (not a template
// invocation) use this instead of a per-kind switch of their own.
func Build(d Document) (Object, error) {
	switch d.Type {
	case key.Tag:
		return BuildTag(d)
	case key.Target:
		return BuildTarget(d)
	case key.User:
		return BuildUser(d)
	case key.Group:
		return BuildGroup(d)
	case key.Host:
		return BuildHost(d)
	case key.Channel:
		return BuildChannel(d)
	case key.ExternalRepo:
		return BuildExternalRepo(d)
	case key.Permission:
		return BuildPermission(d)
	case key.ContentGenerator:
		return BuildContentGenerator(d)
	case key.ArchiveType:
		return BuildArchiveType(d)
	case key.BuildType:
		return BuildBuildType(d)
	default:
		return nil, errors.NewValidationError("unknown core object type "+d.Type, nil)
	}
}
