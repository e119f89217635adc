package storage_test

import (
	"testing"

	"mixer-report/core/storage"

	"github.com/stretchr/testify/assert"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name string
		cfg  storage.Config
	}{
		{
			name: "PlantMinio",
			cfg: storage.Config{
				Endpoint:  "localhost:9000",
				AccessKey: "minioadmin",
				SecretKey: "minioadmin",
				Bucket:    "mixer",
			},
		},
		{
			name: "EndpointWithHTTP",
			cfg:  storage.Config{Endpoint: "http://minio.plant.local:9000", Bucket: "mixer", TimeoutSeconds: 5},
		},
		{
			name: "S3WithRegion",
			cfg: storage.Config{
				Endpoint: "https://s3.amazonaws.com",
				UseSSL:   true,
				Region:   "ap-south-1",
				Bucket:   "foundry-exports",
			},
		},
		{
			name: "NonPositiveTimeoutUsesDefault",
			cfg:  storage.Config{Endpoint: "localhost:9000", TimeoutSeconds: -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := storage.NewClient(tt.cfg)
			assert.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}
