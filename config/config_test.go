package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSelectorsMissingFile(t *testing.T) {
	sel, err := LoadSelectors(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if sel != DefaultSelectors() {
		t.Error("missing file should yield the defaults")
	}
}

func TestLoadSelectorsPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	content := "place_link: 'a.custom-link'\ndetail_name: 'h1.custom-name'\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	sel, err := LoadSelectors(path)
	if err != nil {
		t.Fatalf("LoadSelectors: %v", err)
	}

	if sel.PlaceLink != "a.custom-link" {
		t.Errorf("place_link not overridden: %q", sel.PlaceLink)
	}
	if sel.DetailName != "h1.custom-name" {
		t.Errorf("detail_name not overridden: %q", sel.DetailName)
	}
	if sel.ResultsFeed != DefaultSelectors().ResultsFeed {
		t.Errorf("unset field lost its default: %q", sel.ResultsFeed)
	}
}

func TestLoadSelectorsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	if err := os.WriteFile(path, []byte("place_link: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadSelectors(path); err == nil {
		t.Fatal("expected parse error")
	}
}
