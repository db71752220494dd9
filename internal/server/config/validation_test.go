package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults ok", mutate: func(c *Config) {}},
		{name: "unknown metadata backend", mutate: func(c *Config) { c.MetadataBackend = "mongo" }, wantErr: "MetadataBackend"},
		{name: "badger needs dir", mutate: func(c *Config) {
			c.MetadataBackend = "badger"
			c.BadgerDir = ""
		}, wantErr: "BadgerDir"},
		{name: "postgres needs dsn", mutate: func(c *Config) { c.DatabaseDSN = "" }, wantErr: "DatabaseDSN"},
		{name: "s3 needs bucket", mutate: func(c *Config) {
			c.StorageBackend = "s3"
			c.S3Bucket = ""
		}, wantErr: "S3Bucket"},
		{name: "zero workers", mutate: func(c *Config) { c.WorkerConcurrency = 0 }, wantErr: "WorkerConcurrency"},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: "LogFormat"},
		{name: "memory queue without worker", mutate: func(c *Config) { c.QueueBackend = "memory" }, wantErr: "run_worker"},
		{name: "memory queue with worker", mutate: func(c *Config) {
			c.QueueBackend = "memory"
			c.RunWorker = true
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{}
			c.LoadDefaults()
			tt.mutate(c)

			err := Validate(c)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
