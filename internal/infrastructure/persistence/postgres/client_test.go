package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sapogeth/qylysh-higgsfiled/internal/config"
)

func TestDSN(t *testing.T) {
	t.Run("explicit ssl mode", func(t *testing.T) {
		cfg := &config.PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "storyboard", SSLMode: "require"}
		assert.Equal(t, "host=db port=5432 user=u password=p dbname=storyboard sslmode=require", DSN(cfg))
	})

	t.Run("ssl mode defaults to disable", func(t *testing.T) {
		cfg := &config.PostgresConfig{Host: "localhost", Port: 5432, User: "u", Database: "d"}
		assert.Contains(t, DSN(cfg), "sslmode=disable")
	})
}
