// Package key defines the (type-tag, name) identity pair used across
// every other package to identify a hub object, whether authored,
// placeholder, split, or remote.
package key

import (
	"fmt"
	"strings"
)

// Well-known type tags. Object kinds register themselves against these;
// the set is closed at the spec level (spec.md section 4.1).
const (
	Tag               = "tag"
	Target            = "target"
	User              = "user"
	Group             = "group"
	Host              = "host"
	Channel           = "channel"
	ExternalRepo      = "external-repo"
	Permission        = "permission"
	ContentGenerator  = "content-generator"
	ArchiveType       = "archive-type"
	BuildType         = "build-type"
	Template          = "template"
)

// Key is the identity tuple for every object in the system.
type Key struct {
	TypeTag string
	Name    string
}

// New builds a Key, trimming the name per spec.md section 3 ("Name is a
// non-empty trimmed string").
func New(typeTag, name string) Key {
	return Key{TypeTag: typeTag, Name: strings.TrimSpace(name)}
}

// String renders the key as "type-tag:name", used in error messages and logs.
func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.TypeTag, k.Name)
}

// Valid reports whether the key has a non-empty type tag and name.
func (k Key) Valid() bool {
	return k.TypeTag != "" && k.Name != ""
}

// ObjectKinds is the closed set of non-template, non-splittable-or-not
// object kinds the resolver and namespace recognize as core kinds (as
// opposed to template invocations, which carry an arbitrary type tag).
var ObjectKinds = map[string]bool{
	Tag:              true,
	Target:           true,
	User:             true,
	Group:            true,
	Host:             true,
	Channel:          true,
	ExternalRepo:     true,
	Permission:       true,
	ContentGenerator: true,
	ArchiveType:      true,
	BuildType:        true,
}

// IsCoreKind reports whether typeTag names one of the registered object kinds.
func IsCoreKind(typeTag string) bool {
	return ObjectKinds[typeTag]
}

// Splittable is the closed set of kinds that support the split operation
// (spec.md section 3, "Splittable object").
var Splittable = map[string]bool{
	Tag:     true,
	User:    true,
	Group:   true,
	Host:    true,
	Channel: true,
}

// CanSplit reports whether typeTag names a splittable kind.
func CanSplit(typeTag string) bool {
	return Splittable[typeTag]
}
