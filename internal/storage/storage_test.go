package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/depot-replenishment/internal/config"
)

func TestExportKey(t *testing.T) {
	at := time.Date(2026, 3, 4, 9, 5, 7, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, "exports/abc/replenishment_20260304_080507.xlsx", ExportKey("abc", at))
}

func TestNewMinioClient_Validation(t *testing.T) {
	_, err := NewMinioClient(config.StorageConfig{})
	assert.Error(t, err)

	_, err = NewMinioClient(config.StorageConfig{Endpoint: "localhost:9000", Bucket: "exports"})
	assert.Error(t, err)

	c, err := NewMinioClient(config.StorageConfig{
		Endpoint: "http://localhost:9000", AccessKey: "k", SecretKey: "s", Bucket: "exports", UseSSL: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "exports", c.bucket)
	assert.Equal(t, "localhost:9000", c.client.EndpointURL().Host)
	assert.Equal(t, "http", c.client.EndpointURL().Scheme)
}
