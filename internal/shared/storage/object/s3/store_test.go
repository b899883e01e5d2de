package s3

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "reports/order-1.md", want: "reports/order-1.md"},
		{name: "simple prefix", prefix: "bookreports", key: "reports/order-1.md", want: "bookreports/reports/order-1.md"},
		{name: "prefix trailing slash", prefix: "bookreports/", key: "reports/order-1.md", want: "bookreports/reports/order-1.md"},
		{name: "prefix and key slashes", prefix: "/bookreports/", key: "/reports/order-1.md", want: "bookreports/reports/order-1.md"},
		{name: "empty key", prefix: "bookreports", key: "", want: "bookreports"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestApplyEncryption(t *testing.T) {
	in := &s3.PutObjectInput{}
	applyEncryption(in, "")
	if in.ServerSideEncryption != s3types.ServerSideEncryptionAes256 || in.SSEKMSKeyId != nil {
		t.Fatalf("expected AES256 without key, got %v %v", in.ServerSideEncryption, in.SSEKMSKeyId)
	}

	in = &s3.PutObjectInput{}
	applyEncryption(in, "kms-key")
	if in.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || aws.ToString(in.SSEKMSKeyId) != "kms-key" {
		t.Fatalf("expected KMS encryption, got %v %v", in.ServerSideEncryption, aws.ToString(in.SSEKMSKeyId))
	}
}
