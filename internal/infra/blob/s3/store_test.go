package s3

import (
	"context"
	"io"
	"strings"
	"testing"

	"makerdesk/internal/blob/core"
)

func TestMockStorePutGetList(t *testing.T) {
	store := NewMockForTests()
	ctx := context.Background()

	info, err := store.Put(ctx, "requests/r1/stl/part.stl", strings.NewReader("solid part"), core.PutOptions{ContentType: "model/stl"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len("solid part")) {
		t.Fatalf("unexpected size %d", info.Size)
	}
	if _, err := store.Put(ctx, "requests/r1/stl/part.stl", strings.NewReader("dup"), core.PutOptions{}); err == nil {
		t.Fatalf("expected duplicate error")
	}

	got, rc, err := store.Get(ctx, "requests/r1/stl/part.stl")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "solid part" {
		t.Fatalf("unexpected body %q", body)
	}
	if got.ContentType != "model/stl" {
		t.Fatalf("unexpected content type %s", got.ContentType)
	}

	infos, err := store.List(ctx, "requests/r1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 1 || infos[0].Key != "requests/r1/stl/part.stl" {
		t.Fatalf("unexpected listing: %+v", infos)
	}

	if ok, err := store.Delete(ctx, "requests/r1/stl/part.stl"); err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if _, err := store.Head(ctx, "requests/r1/stl/part.stl"); err == nil {
		t.Fatalf("expected head miss after delete")
	}
}

func TestMockStorePresign(t *testing.T) {
	store := NewMockForTests()
	ctx := context.Background()
	url, err := store.PresignURL(ctx, "some/key", core.SignedURLOptions{})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.Contains(url, "some/key") {
		t.Fatalf("unexpected url %s", url)
	}
	if _, err := store.PresignURL(ctx, "some/key", core.SignedURLOptions{Method: "PUT"}); err != core.ErrUnsupported {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if store.Driver() != core.DriverS3 {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
}

func TestConfigValidation(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket requirement error")
	}
	t.Setenv("MAKERDESK_BLOB_S3_BUCKET", "")
	if _, err := OpenFromEnv(context.Background()); err == nil {
		t.Fatalf("expected env bucket requirement error")
	}
}
