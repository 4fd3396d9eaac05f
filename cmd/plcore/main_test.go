package main

import "testing"

func TestParseArgsEval(t *testing.T) {
	c, err := parseArgs([]string{"-e", "1+1"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if c.eval != "1+1" {
		t.Fatalf("expected eval %q, got %q", "1+1", c.eval)
	}
}

func TestParseArgsFixtureAndIncludes(t *testing.T) {
	c, err := parseArgs([]string{"-I", "lib", "-M", "strict", "prog.yaml"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if len(c.includeDirs) != 1 || c.includeDirs[0] != "lib" {
		t.Fatalf("expected includeDirs [lib], got %v", c.includeDirs)
	}
	if len(c.modules) != 1 || c.modules[0] != "strict" {
		t.Fatalf("expected modules [strict], got %v", c.modules)
	}
	if c.fixturePath != "prog.yaml" {
		t.Fatalf("expected fixturePath prog.yaml, got %q", c.fixturePath)
	}
}

func TestParseArgsMissingEvalArgument(t *testing.T) {
	if _, err := parseArgs([]string{"-e"}); err == nil {
		t.Fatalf("expected an error for -e with no argument")
	}
}
