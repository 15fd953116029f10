package manifest

import (
	"errors"
	"testing"
)

func TestSpecFullName(t *testing.T) {
	spec := Spec{Name: "rake", Version: "13.0.6"}
	if got := spec.FullName(); got != "rake-13.0.6" {
		t.Fatalf("full name: %s", got)
	}
}

func TestGemURL(t *testing.T) {
	source := Source{Remote: "https://rubygems.org/"}
	got, err := source.GemURL(Spec{Name: "rake", Version: "13.0.6"})
	if err != nil {
		t.Fatalf("gem url error: %v", err)
	}
	if want := "https://rubygems.org/gems/rake-13.0.6.gem"; got != want {
		t.Fatalf("gem url: got %s want %s", got, want)
	}
}

func TestGemURLBadRemote(t *testing.T) {
	source := Source{Remote: "not a url"}
	_, err := source.GemURL(Spec{Name: "rake", Version: "13.0.6"})
	if err == nil {
		t.Fatal("expected error for bad remote")
	}

	var badRemote *BadRemoteError
	if !errors.As(err, &badRemote) {
		t.Fatalf("error type: %T", err)
	}
	if badRemote.Remote != "not a url" {
		t.Fatalf("offending remote not preserved: %q", badRemote.Remote)
	}
}
