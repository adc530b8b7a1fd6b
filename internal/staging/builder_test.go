package staging_test

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tzbuild/internal/asset"
	"tzbuild/internal/kuid"
	"tzbuild/internal/logging"
	"tzbuild/internal/staging"
	"tzbuild/internal/testsupport"
)

func stageSource(t *testing.T, content string) asset.Root {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "boxcar")
	testsupport.WriteMarker(t, dir, content)
	m, err := kuid.Find(content)
	if err != nil {
		t.Fatalf("test marker does not parse: %v", err)
	}
	return asset.Root{Dir: dir, Identity: m.Identity}
}

func TestStageRewritesOnlyIdentity(t *testing.T) {
	content := "kind traincar\nkuid <kuid:44:1001:2>\nusername \"Boxcar\"\n"
	root := stageSource(t, content)
	builder := staging.NewBuilder(t.TempDir(), logging.NewNop())

	staged, err := builder.Stage(root)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	defer staged.Release()

	got, err := os.ReadFile(asset.MarkerPath(staged.Dir))
	if err != nil {
		t.Fatal(err)
	}
	want := "kind traincar\nkuid <kuid:298469:999999:0>\nusername \"Boxcar\"\n"
	if string(got) != want {
		t.Fatalf("staged marker = %q, want %q", got, want)
	}
	if staged.Identity != kuid.Placeholder(kuid.V1) {
		t.Fatalf("staged identity = %+v", staged.Identity)
	}
}

func TestStagePreservesVariant(t *testing.T) {
	root := stageSource(t, "kuid2 <kuid2:9:8:7:6>\n")
	builder := staging.NewBuilder(t.TempDir(), logging.NewNop())

	staged, err := builder.Stage(root)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	defer staged.Release()

	if staged.Identity != kuid.Placeholder(kuid.V2) {
		t.Fatalf("staged identity = %+v, want kuid2 placeholder", staged.Identity)
	}
}

func TestStageNeverMutatesSource(t *testing.T) {
	content := "kuid <kuid:44:1001:2>\n"
	root := stageSource(t, content)
	testsupport.WriteFile(t, filepath.Join(root.Dir, "mesh", "body.im"), 2048)

	before := hashFile(t, asset.MarkerPath(root.Dir))

	builder := staging.NewBuilder(t.TempDir(), logging.NewNop())
	staged, err := builder.Stage(root)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	defer staged.Release()

	after := hashFile(t, asset.MarkerPath(root.Dir))
	if !bytes.Equal(before, after) {
		t.Fatal("staging mutated the source marker")
	}
}

func TestStageCopiesPayloadByteForByte(t *testing.T) {
	root := stageSource(t, "kuid <kuid:1:2:3>\n")
	testsupport.WriteFile(t, filepath.Join(root.Dir, "textures", "body.tga"), 64*1024)

	builder := staging.NewBuilder(t.TempDir(), logging.NewNop())
	staged, err := builder.Stage(root)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	defer staged.Release()

	src := hashFile(t, filepath.Join(root.Dir, "textures", "body.tga"))
	dst := hashFile(t, filepath.Join(staged.Dir, "textures", "body.tga"))
	if !bytes.Equal(src, dst) {
		t.Fatal("payload differs from source after staging")
	}
	if staged.Files != 2 {
		t.Fatalf("staged %d files, want 2", staged.Files)
	}
}

func TestStageProducesDistinctDirectories(t *testing.T) {
	root := stageSource(t, "kuid <kuid:1:2:3>\n")
	builder := staging.NewBuilder(t.TempDir(), logging.NewNop())

	first, err := builder.Stage(root)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	defer first.Release()
	second, err := builder.Stage(root)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	defer second.Release()

	if first.Dir == second.Dir {
		t.Fatalf("both stagings used %s", first.Dir)
	}
}

func TestStageMissingSourceFailsWithStagingError(t *testing.T) {
	builder := staging.NewBuilder(t.TempDir(), logging.NewNop())
	_, err := builder.Stage(asset.Root{Dir: filepath.Join(t.TempDir(), "gone")})
	if !errors.Is(err, staging.ErrStagingIO) {
		t.Fatalf("Stage error = %v, want ErrStagingIO", err)
	}
}

func TestReleaseRemovesStagedDirectory(t *testing.T) {
	root := stageSource(t, "kuid <kuid:1:2:3>\n")
	builder := staging.NewBuilder(t.TempDir(), logging.NewNop())

	staged, err := builder.Stage(root)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	dir := staged.Dir

	if err := staged.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("staged directory still present: %v", err)
	}
	if err := staged.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}

func hashFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256(data)
	return sum[:]
}
