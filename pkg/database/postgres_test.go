package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-gateway/pkg/config"
)

func TestDSNEscapesCredentials(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "audit",
		Password: "p@ss word",
		Name:     "course_gateway",
		SSLMode:  "require",
	})

	parsed, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db.internal:5433", parsed.Host)
	assert.Equal(t, "/course_gateway", parsed.Path)
	password, _ := parsed.User.Password()
	assert.Equal(t, "p@ss word", password)
	assert.Equal(t, "require", parsed.Query().Get("sslmode"))
	assert.Equal(t, "course-gateway", parsed.Query().Get("application_name"))
}
