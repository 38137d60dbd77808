package storage

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"kidney-story/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T, useSSL bool) *MinioStore {
	t.Helper()
	store, err := NewMinioStore(config.StorageConfig{
		Endpoint:  "files.example.org:9000",
		AccessKey: "access",
		SecretKey: "secret-key-123",
		Bucket:    "kidney-story",
		Region:    "us-east-1",
		UseSSL:    useSSL,
	}, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestObjectURL(t *testing.T) {
	assert.Equal(t, "http://files.example.org:9000/kidney-story/a.png", newTestStore(t, false).ObjectURL("a.png"))
	assert.Equal(t, "https://files.example.org:9000/kidney-story/a.png", newTestStore(t, true).ObjectURL("a.png"))
}

func TestNewMinioStore_DefaultExpiry(t *testing.T) {
	assert.Equal(t, DefaultPresignExpiry, newTestStore(t, false).expiry)
}

func TestPresignUpload_SignsLocally(t *testing.T) {
	store := newTestStore(t, false)
	up, err := store.PresignUpload(context.Background(), "b.jpeg")
	require.NoError(t, err)

	assert.Equal(t, "b.jpeg", up.ObjectName)
	assert.True(t, strings.HasPrefix(up.UploadURL, "http://files.example.org:9000/kidney-story/b.jpeg?"))
	assert.Contains(t, up.UploadURL, "X-Amz-Signature=")
	assert.Equal(t, "http://files.example.org:9000/kidney-story/b.jpeg", up.PublicURL)
	assert.WithinDuration(t, time.Now().Add(time.Hour), up.ExpiresAt, time.Minute)
}

func TestPublicReadPolicy(t *testing.T) {
	var policy struct {
		Statement []struct {
			Effect   string
			Action   []string
			Resource []string
		}
	}
	require.NoError(t, json.Unmarshal([]byte(PublicReadPolicy("media")), &policy))
	require.Len(t, policy.Statement, 1)
	assert.Equal(t, "Allow", policy.Statement[0].Effect)
	assert.Equal(t, []string{"s3:GetObject"}, policy.Statement[0].Action)
	assert.Equal(t, []string{"arn:aws:s3:::media/*"}, policy.Statement[0].Resource)
}
