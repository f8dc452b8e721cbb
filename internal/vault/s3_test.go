package vault

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeObject struct {
	data     []byte
	metadata map[string]string
}

// fakeS3 is an in-memory stand-in for both the S3 client and the upload manager.
type fakeS3 struct {
	objects   map[string]fakeObject
	bucketErr error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]fakeObject)}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data)), Metadata: obj.metadata}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{Message: aws.String("not found")}
	}
	return &s3.HeadObjectOutput{Metadata: obj.metadata}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.bucketErr != nil {
		return nil, f.bucketErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = fakeObject{data: data, metadata: in.Metadata}
	return &manager.UploadOutput{Key: in.Key}, nil
}

func newTestS3Vault() (*S3Vault, *fakeS3) {
	fake := newFakeS3()
	return newS3Vault("offsite", "tidy-history", "backups", fake, fake), fake
}

func TestS3Vault_PutAndGetMetadata(t *testing.T) {
	ctx := context.Background()
	v, fake := newTestS3Vault()

	data := "sqlite bytes"
	if err := v.PutMetadata(ctx, "host-1", "history.db", strings.NewReader(data), int64(len(data)), 12); err != nil {
		t.Fatalf("PutMetadata() error = %v", err)
	}

	obj, ok := fake.objects["backups/host-1/history.db"]
	if !ok {
		t.Fatalf("object not stored under prefixed key, have %v", fake.objects)
	}
	if obj.metadata["version"] != "12" {
		t.Errorf("version metadata = %q, want 12", obj.metadata["version"])
	}

	var buf bytes.Buffer
	if err := v.GetMetadata(ctx, "host-1", "history.db", &buf); err != nil {
		t.Fatalf("GetMetadata() error = %v", err)
	}
	if buf.String() != data {
		t.Errorf("GetMetadata() = %q, want %q", buf.String(), data)
	}

	version, err := v.GetMetadataVersion(ctx, "host-1", "history.db")
	if err != nil || version != 12 {
		t.Errorf("GetMetadataVersion() = %d, %v; want 12", version, err)
	}
}

func TestS3Vault_SizeMismatch(t *testing.T) {
	v, _ := newTestS3Vault()
	err := v.PutMetadata(context.Background(), "h", "history.db", strings.NewReader("short"), 100, 1)
	if err == nil || !strings.Contains(err.Error(), "size mismatch") {
		t.Errorf("PutMetadata() error = %v, want size mismatch", err)
	}
}

func TestS3Vault_Missing(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestS3Vault()

	t.Run("get maps NoSuchKey to ErrNotFound", func(t *testing.T) {
		var buf bytes.Buffer
		if err := v.GetMetadata(ctx, "nobody", "history.db", &buf); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetMetadata() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("version of a missing object is zero", func(t *testing.T) {
		version, err := v.GetMetadataVersion(ctx, "nobody", "history.db")
		if err != nil || version != 0 {
			t.Errorf("GetMetadataVersion() = %d, %v; want 0, nil", version, err)
		}
	})

	t.Run("object without version metadata reports zero", func(t *testing.T) {
		v, fake := newTestS3Vault()
		fake.objects["backups/legacy/history.db"] = fakeObject{data: []byte("x")}
		version, err := v.GetMetadataVersion(ctx, "legacy", "history.db")
		if err != nil || version != 0 {
			t.Errorf("GetMetadataVersion() = %d, %v; want 0, nil", version, err)
		}
	})
}

func TestS3Vault_ValidateSetup(t *testing.T) {
	ctx := context.Background()

	t.Run("reachable bucket", func(t *testing.T) {
		v, _ := newTestS3Vault()
		if err := v.ValidateSetup(ctx); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})

	t.Run("unreachable bucket", func(t *testing.T) {
		v, fake := newTestS3Vault()
		fake.bucketErr = errors.New("access denied")
		err := v.ValidateSetup(ctx)
		if err == nil || !strings.Contains(err.Error(), "tidy-history") {
			t.Errorf("ValidateSetup() error = %v, want bucket error", err)
		}
	})
}
