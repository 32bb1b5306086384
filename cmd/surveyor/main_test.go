package main

import "testing"

func TestStringListAccumulates(t *testing.T) {
	var s stringList
	if err := s.Set("a.yaml"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("b.yaml"); err != nil {
		t.Fatal(err)
	}
	if len(s) != 2 || s[0] != "a.yaml" || s[1] != "b.yaml" {
		t.Fatalf("list = %v", s)
	}
	if s.String() != "a.yaml,b.yaml" {
		t.Fatalf("String() = %q", s.String())
	}
}

func TestLoadConfigsRequiresAtLeastOne(t *testing.T) {
	if _, err := loadConfigs(nil); err == nil {
		t.Fatal("expected error for empty config list")
	}
}
