package config

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// DBConfig points at the postgres mirror of emitted logs. An empty host
// disables the mirror.
type DBConfig struct {
	DBUser       string `env:"DB_USER"`
	DBPassword   string `env:"DB_PASSWORD"`
	DBName       string `env:"DB_NAME"`
	DBHost       string `env:"DB_HOST"`
	DBReaderHost string `env:"DB_READER_HOST"`
	DBPort       int    `env:"DB_PORT,default=5432"`
	DBSSLMode    string `env:"DB_SSLMODE,default=disable"`
}

func NewDBConfig(ctx context.Context, envpath string) (*DBConfig, error) {
	if envpath != "" {
		log.Default().Println("loading env from file: ", envpath)
		err := godotenv.Load(envpath)
		if err != nil {
			return nil, err
		}
	}

	cfg := &DBConfig{}
	err := envconfig.Process(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *DBConfig) Enabled() bool {
	return c.DBHost != ""
}

// ConnString is the lib/pq connection string of the writer
func (c *DBConfig) ConnString() string {
	return c.connString(c.DBHost)
}

// ReaderConnString targets the read replica, the writer when none is set
func (c *DBConfig) ReaderConnString() string {
	if c.DBReaderHost == "" {
		return c.ConnString()
	}

	return c.connString(c.DBReaderHost)
}

func (c *DBConfig) connString(host string) string {
	return fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		quote(c.DBUser), quote(c.DBPassword), quote(c.DBName), quote(host), c.DBPort, quote(c.DBSSLMode))
}

// quote escapes a connection string value the way lib/pq parses it
func quote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}

	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}
