package r2

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type stubObjectAPI struct {
	putInput *s3.PutObjectInput
	delInput *s3.DeleteObjectInput
	getBody  io.ReadCloser
	err      error
}

func (s *stubObjectAPI) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	s.putInput = params
	if s.err != nil {
		return nil, s.err
	}
	return &s3.PutObjectOutput{}, nil
}

func (s *stubObjectAPI) GetObject(_ context.Context, _ *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &s3.GetObjectOutput{Body: s.getBody}, nil
}

func (s *stubObjectAPI) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	s.delInput = params
	if s.err != nil {
		return nil, s.err
	}
	return &s3.DeleteObjectOutput{}, nil
}

func (s *stubObjectAPI) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &s3.HeadBucketOutput{}, nil
}

func TestPutSetsBucketAndContentType(t *testing.T) {
	api := &stubObjectAPI{}
	client := &Client{api: api, bucket: "mbiz-media"}

	err := client.Put(context.Background(), "logos/org-1.png", []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if api.putInput == nil {
		t.Fatal("expected PutObject to be called")
	}
	if *api.putInput.Bucket != "mbiz-media" {
		t.Fatalf("bucket = %q", *api.putInput.Bucket)
	}
	if *api.putInput.Key != "logos/org-1.png" {
		t.Fatalf("key = %q", *api.putInput.Key)
	}
	if *api.putInput.ContentType != "image/png" {
		t.Fatalf("content type = %q", *api.putInput.ContentType)
	}
}

func TestPutRejectsEmptyKey(t *testing.T) {
	client := &Client{api: &stubObjectAPI{}, bucket: "mbiz-media"}
	if err := client.Put(context.Background(), "  ", nil, "image/png"); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestDeleteWrapsError(t *testing.T) {
	api := &stubObjectAPI{err: errors.New("boom")}
	client := &Client{api: api, bucket: "mbiz-media"}

	err := client.Delete(context.Background(), "logos/org-1.png")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, api.err) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestPublicURL(t *testing.T) {
	client := &Client{bucket: "mbiz-media", publicBaseURL: "https://media.mbiz.app"}
	if got := client.PublicURL("logos/org-1.png"); got != "https://media.mbiz.app/logos/org-1.png" {
		t.Fatalf("PublicURL = %q", got)
	}
	if got := client.PublicURL(""); got != "" {
		t.Fatalf("PublicURL for empty key = %q, want empty", got)
	}

	bare := &Client{bucket: "mbiz-media"}
	if got := bare.PublicURL("logos/org-1.png"); got != "" {
		t.Fatalf("PublicURL without base = %q, want empty", got)
	}
}

func TestPingUninitialized(t *testing.T) {
	var client *Client
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error for nil client")
	}
}
