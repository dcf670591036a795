package archive

import (
	"context"
	"testing"
)

func TestOpenFilesystemDriver(t *testing.T) {
	store, err := Open(context.Background(), Config{Driver: DriverFilesystem, FSDir: t.TempDir()})
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("expected fs, got %s", store.Driver())
	}
}

func TestOpenDefaultsToFilesystem(t *testing.T) {
	store, err := Open(context.Background(), Config{FSDir: t.TempDir()})
	if err != nil {
		t.Fatalf("open default: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("expected fs, got %s", store.Driver())
	}
}

func TestOpenMemoryDriver(t *testing.T) {
	store, err := Open(context.Background(), Config{Driver: DriverMemory})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if store.Driver() != DriverMemory {
		t.Fatalf("expected memory, got %s", store.Driver())
	}
}

func TestOpenS3RequiresBucket(t *testing.T) {
	t.Setenv("POLICYHUB_ARCHIVE_S3_BUCKET", "")
	if _, err := Open(context.Background(), Config{Driver: DriverS3}); err == nil {
		t.Fatal("expected bucket required error")
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "tape-robot"}); err == nil {
		t.Fatal("expected unknown driver error")
	}
}
