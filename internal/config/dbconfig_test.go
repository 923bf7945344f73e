package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDBConfigConnString(t *testing.T) {
	c := &DBConfig{
		DBUser:     "gov",
		DBPassword: "it's secret",
		DBName:     "governance",
		DBHost:     "db",
		DBPort:     5432,
		DBSSLMode:  "disable",
	}

	require.True(t, c.Enabled())
	require.Equal(t, `user=gov password='it\'s secret' dbname=governance host=db port=5432 sslmode=disable`, c.ConnString())
	require.Equal(t, c.ConnString(), c.ReaderConnString())

	c.DBReaderHost = "replica"
	require.Contains(t, c.ReaderConnString(), "host=replica")

	require.False(t, (&DBConfig{}).Enabled())
}
