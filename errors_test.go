package polystore_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/polystore"
)

func TestConfigurationError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := polystore.NewConfigurationError("Document", "Color", "unknown attribute")
		assert.Equal(t, `polystore: Document: "Color": unknown attribute`, err.Error())

		err = polystore.NewConfigurationError("", "", "no entity")
		assert.Equal(t, "polystore: no entity", err.Error())
	})

	t.Run("IsConfigurationError", func(t *testing.T) {
		err := polystore.NewConfigurationError("Document", "Color", "unknown attribute")
		assert.True(t, errors.Is(err, polystore.ErrConfiguration))
		assert.True(t, polystore.IsConfigurationError(fmt.Errorf("wrapper: %w", err)))
		assert.True(t, polystore.IsConfigurationError(polystore.ErrConfiguration))
		assert.False(t, polystore.IsConfigurationError(errors.New("other error")))
		assert.False(t, polystore.IsConfigurationError(nil))
	})
}

func TestTypeMappingError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := &polystore.TypeMappingError{Attribute: "Payload", Type: "other"}
		assert.Equal(t, `polystore: attribute "Payload": no parameter kind for other`, err.Error())

		err = &polystore.TypeMappingError{Attribute: "Payload", Type: "other", Dialect: "oracle"}
		assert.Equal(t, `polystore: attribute "Payload": no oracle column type for other`, err.Error())
	})

	t.Run("IsTypeMappingError", func(t *testing.T) {
		err := fmt.Errorf("wrapper: %w", &polystore.TypeMappingError{Attribute: "x"})
		assert.True(t, polystore.IsTypeMappingError(err))
		assert.True(t, errors.Is(err, polystore.ErrTypeMapping))
		assert.False(t, polystore.IsTypeMappingError(polystore.ErrConfiguration))
	})
}

func TestUnsupportedDialectError(t *testing.T) {
	err := &polystore.UnsupportedDialectError{Name: "sqlite", Available: []string{"mysql", "postgres"}}
	assert.Equal(t, `polystore: unsupported dialect "sqlite" (available: mysql, postgres)`, err.Error())
	assert.True(t, polystore.IsUnsupportedDialectError(err))
	assert.True(t, errors.Is(err, polystore.ErrUnsupportedDialect))

	bare := &polystore.UnsupportedDialectError{Name: "db2"}
	assert.Equal(t, `polystore: unsupported dialect "db2"`, bare.Error())
	assert.False(t, polystore.IsUnsupportedDialectError(nil))
}

func TestSchemaProvisioningError(t *testing.T) {
	driverErr := errors.New("permission denied")
	err := &polystore.SchemaProvisioningError{
		Object:    "table Documents",
		Statement: "CREATE TABLE Documents (Id CHAR(32) NOT NULL)",
		Err:       driverErr,
	}
	assert.Contains(t, err.Error(), "table Documents")
	assert.Contains(t, err.Error(), "CREATE TABLE Documents")

	wrapped := fmt.Errorf("ensure: %w", err)
	require.True(t, polystore.IsSchemaProvisioningError(wrapped))
	assert.ErrorIs(t, wrapped, driverErr)
	assert.ErrorIs(t, wrapped, polystore.ErrSchemaProvisioning)

	var pe *polystore.SchemaProvisioningError
	require.True(t, errors.As(wrapped, &pe))
	assert.Equal(t, "CREATE TABLE Documents (Id CHAR(32) NOT NULL)", pe.Statement)
}
