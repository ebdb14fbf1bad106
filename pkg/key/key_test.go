package key

import "testing"

func TestNewTrimsName(t *testing.T) {
	k := New(Tag, "  build  ")
	if k.Name != "build" {
		t.Fatalf("expected trimmed name, got %q", k.Name)
	}
	if k.TypeTag != Tag {
		t.Fatalf("expected type tag %q, got %q", Tag, k.TypeTag)
	}
}

func TestStringFormat(t *testing.T) {
	k := New(Tag, "f40-build")
	if got, want := k.String(), "tag:f40-build"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestValid(t *testing.T) {
	if (Key{}).Valid() {
		t.Fatal("zero-value key must be invalid")
	}
	if !New(Tag, "x").Valid() {
		t.Fatal("tag:x must be valid")
	}
}

func TestIsCoreKind(t *testing.T) {
	for _, tag := range []string{Tag, Target, User, Group, Host, Channel, ExternalRepo, Permission, ContentGenerator, ArchiveType, BuildType} {
		if !IsCoreKind(tag) {
			t.Errorf("expected %q to be a core kind", tag)
		}
	}
	if IsCoreKind("template") {
		t.Fatal("template is not a core object kind")
	}
	if IsCoreKind("bogus") {
		t.Fatal("unregistered tag must not be a core kind")
	}
}

func TestCanSplit(t *testing.T) {
	for _, tag := range []string{Tag, User, Group, Host, Channel} {
		if !CanSplit(tag) {
			t.Errorf("expected %q to be splittable", tag)
		}
	}
	for _, tag := range []string{Target, ExternalRepo, Permission, ContentGenerator, ArchiveType, BuildType} {
		if CanSplit(tag) {
			t.Errorf("expected %q to not be splittable", tag)
		}
	}
}
