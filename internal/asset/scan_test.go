package asset_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tzbuild/internal/asset"
	"tzbuild/internal/kuid"
	"tzbuild/internal/testsupport"
)

func TestScanFindsAssetsInLexicalOrder(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteMarker(t, filepath.Join(root, "b-wagon"), "kuid <kuid:9:8:7>\n")
	testsupport.WriteMarker(t, filepath.Join(root, "a-loco"), "kuid2 <kuid2:1:2:3:4>\n")

	found, err := asset.Scan(context.Background(), root, asset.Options{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("found %d discoveries, want 2", len(found))
	}
	if got := filepath.Base(found[0].Root.Dir); got != "a-loco" {
		t.Fatalf("first discovery %q, want a-loco", got)
	}
	if got := filepath.Base(found[1].Root.Dir); got != "b-wagon" {
		t.Fatalf("second discovery %q, want b-wagon", got)
	}
	want := kuid.Identity{Variant: kuid.V2, Author: 1, Content: 2, Version: 3, Build: 4}
	if found[0].Root.Identity != want {
		t.Fatalf("identity = %+v, want %+v", found[0].Root.Identity, want)
	}
}

func TestScanDepthHonorsRecursiveFlag(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteMarker(t, filepath.Join(root, "shallow"), "kuid <kuid:1:1:1>\n")
	testsupport.WriteMarker(t, filepath.Join(root, "pack", "group", "deep"), "kuid <kuid:2:2:2>\n")

	flat, err := asset.Scan(context.Background(), root, asset.Options{Recursive: false})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(flat) != 1 || filepath.Base(flat[0].Root.Dir) != "shallow" {
		t.Fatalf("non-recursive scan = %+v, want only shallow", flat)
	}

	deep, err := asset.Scan(context.Background(), root, asset.Options{Recursive: true})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(deep) != 2 {
		t.Fatalf("recursive scan found %d, want 2", len(deep))
	}
}

func TestScanTreatsAssetDirectoriesAsLeaves(t *testing.T) {
	root := t.TempDir()
	outer := filepath.Join(root, "outer")
	testsupport.WriteMarker(t, outer, "kuid <kuid:1:2:3>\n")
	testsupport.WriteMarker(t, filepath.Join(outer, "nested"), "kuid <kuid:4:5:6>\n")

	found, err := asset.Scan(context.Background(), root, asset.Options{Recursive: true})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("found %d discoveries, want only the outer asset", len(found))
	}
	if found[0].Root.Dir != outer {
		t.Fatalf("discovery dir = %s, want %s", found[0].Root.Dir, outer)
	}
}

func TestScanRootWithMarkerIsSingleAsset(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteMarker(t, root, "kuid <kuid:7:7:7>\n")
	testsupport.WriteMarker(t, filepath.Join(root, "child"), "kuid <kuid:8:8:8>\n")

	found, err := asset.Scan(context.Background(), root, asset.Options{Recursive: true})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(found) != 1 || found[0].Root.Dir != root {
		t.Fatalf("discoveries = %+v, want only the root", found)
	}
}

func TestScanReportsBadMarkersAsDiscoveryErrors(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteMarker(t, filepath.Join(root, "broken"), "kuid <kuid:1:oops:3>\n")
	testsupport.WriteMarker(t, filepath.Join(root, "empty"), "kind traincar\n")
	testsupport.WriteMarker(t, filepath.Join(root, "good"), "kuid <kuid:1:2:3>\n")

	found, err := asset.Scan(context.Background(), root, asset.Options{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(found) != 3 {
		t.Fatalf("found %d discoveries, want 3", len(found))
	}
	if !errors.Is(found[0].Err, kuid.ErrMalformedIdentity) {
		t.Fatalf("broken asset error = %v, want ErrMalformedIdentity", found[0].Err)
	}
	if !errors.Is(found[1].Err, kuid.ErrMissingIdentity) {
		t.Fatalf("empty asset error = %v, want ErrMissingIdentity", found[1].Err)
	}
	if found[2].Err != nil {
		t.Fatalf("good asset unexpectedly failed: %v", found[2].Err)
	}
}

func TestScanSkipsKnownDirectories(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteMarker(t, filepath.Join(root, ".git", "hooks"), "kuid <kuid:1:2:3>\n")
	testsupport.WriteMarker(t, filepath.Join(root, ".hg", "store"), "kuid <kuid:1:2:3>\n")
	testsupport.WriteMarker(t, filepath.Join(root, "real"), "kuid <kuid:1:2:3>\n")

	found, err := asset.Scan(context.Background(), root, asset.Options{Recursive: true})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(found) != 1 || filepath.Base(found[0].Root.Dir) != "real" {
		t.Fatalf("discoveries = %+v, want only real", found)
	}
}

func TestScanEmptyTreeYieldsNothing(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "a", "b", "c"), 0o755); err != nil {
		t.Fatal(err)
	}

	found, err := asset.Scan(context.Background(), root, asset.Options{Recursive: true})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("found %d discoveries in a markerless tree", len(found))
	}
}

func TestScanSurvivesSymlinkCycle(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "pack", "nested")
	testsupport.WriteMarker(t, filepath.Join(root, "pack", "asset"), "kuid <kuid:1:2:3>\n")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(root, "pack"), filepath.Join(nested, "loop")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	found, err := asset.Scan(context.Background(), root, asset.Options{Recursive: true})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("found %d discoveries, want 1", len(found))
	}
}

func TestScanRejectsMissingRoot(t *testing.T) {
	if _, err := asset.Scan(context.Background(), filepath.Join(t.TempDir(), "nope"), asset.Options{}); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestScanStopsWhenContextCancelled(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteMarker(t, filepath.Join(root, "a"), "kuid <kuid:1:2:3>\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := asset.Scan(ctx, root, asset.Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Scan error = %v, want context.Canceled", err)
	}
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		name string
		root asset.Root
		want string
	}{
		{"username wins", asset.Root{Dir: "/tree/gp38", Username: "GP38 Warbonnet"}, "GP38 Warbonnet"},
		{"underscores", asset.Root{Dir: "/tree/old_boxcar_red"}, "Old Boxcar Red"},
		{"hyphens and case", asset.Root{Dir: "/tree/SANTA-FE-f7"}, "Santa Fe F7"},
		{"plain", asset.Root{Dir: "/tree/caboose"}, "Caboose"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.root.DisplayName(); got != tc.want {
				t.Fatalf("DisplayName() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestScanExtractsUsername(t *testing.T) {
	root := t.TempDir()
	content := "kuid <kuid:1:2:3>\nkind traincar\nusername \"Heavy Hauler\"\n"
	testsupport.WriteMarker(t, filepath.Join(root, "hauler"), content)

	found, err := asset.Scan(context.Background(), root, asset.Options{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(found) != 1 || found[0].Root.Username != "Heavy Hauler" {
		t.Fatalf("discoveries = %+v, want username Heavy Hauler", found)
	}
}
