package frontend

import "testing"

func TestUnimplementedReportsSourceAndPackage(t *testing.T) {
	_, err := Unimplemented{}.Parse("print 1", "My::Package")
	if err == nil {
		t.Fatalf("expected an error from the unimplemented parser")
	}
	uw, ok := err.(*UnwiredError)
	if !ok {
		t.Fatalf("expected *UnwiredError, got %T", err)
	}
	if uw.Package != "My::Package" || uw.SourceLen != len("print 1") {
		t.Fatalf("unexpected error fields: %+v", uw)
	}
}
