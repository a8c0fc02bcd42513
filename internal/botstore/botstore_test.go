package botstore

import (
	"path/filepath"
	"testing"
)

func TestSQLStore_SetGetEnabled_PureDriver(t *testing.T) {
	dir := t.TempDir()
	s, err := Open("pure", filepath.Join(dir, "kovi.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, found, err := s.GetEnabled("echo"); err != nil || found {
		t.Fatalf("GetEnabled on empty store: found=%v err=%v", found, err)
	}

	if err := s.SetEnabled("echo", true); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	enabled, found, err := s.GetEnabled("echo")
	if err != nil || !found || !enabled {
		t.Fatalf("GetEnabled after SetEnabled(true) = %v, %v, %v", enabled, found, err)
	}

	if err := s.SetEnabled("echo", false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	enabled, found, err = s.GetEnabled("echo")
	if err != nil || !found || enabled {
		t.Fatalf("GetEnabled after SetEnabled(false) = %v, %v, %v", enabled, found, err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open("weird", filepath.Join(dir, "kovi.db")); err == nil {
		t.Fatal("expected an error for an unknown driver name")
	}
}
