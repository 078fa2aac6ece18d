package polystore

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for the compiler and provisioning layers.
var (
	// ErrConfiguration is returned when entity metadata is inconsistent with
	// the request, e.g. an unknown attribute name or a filter that needs a
	// join the caller did not enable.
	ErrConfiguration = errors.New("polystore: invalid configuration")

	// ErrTypeMapping is returned when an attribute's domain type has no
	// parameter kind or column type in the catalog.
	ErrTypeMapping = errors.New("polystore: unmapped type")

	// ErrUnsupportedDialect is returned for dialect identifiers outside the
	// capability table.
	ErrUnsupportedDialect = errors.New("polystore: unsupported dialect")

	// ErrSchemaProvisioning is returned when a DDL statement fails.
	ErrSchemaProvisioning = errors.New("polystore: schema provisioning failed")
)

// ConfigurationError reports entity metadata that cannot satisfy a request.
type ConfigurationError struct {
	Entity string // Entity name, if known.
	Name   string // Offending attribute, property or variant name.
	Msg    string
}

// Error returns the error string.
func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("polystore: ")
	if e.Entity != "" {
		b.WriteString(e.Entity)
		b.WriteString(": ")
	}
	if e.Name != "" {
		fmt.Fprintf(&b, "%q: ", e.Name)
	}
	b.WriteString(e.Msg)
	return b.String()
}

// Is reports whether the target error matches ErrConfiguration.
func (e *ConfigurationError) Is(err error) bool {
	return err == ErrConfiguration
}

// NewConfigurationError returns a new ConfigurationError.
func NewConfigurationError(entity, name, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Entity: entity, Name: name, Msg: fmt.Sprintf(format, args...)}
}

// IsConfigurationError returns true if the error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigurationError
	return errors.As(err, &e) || errors.Is(err, ErrConfiguration)
}

// TypeMappingError reports an attribute whose domain type cannot be mapped
// to a parameter kind or a column type.
type TypeMappingError struct {
	Attribute string
	Type      string
	Dialect   string // Empty for parameter-kind mapping.
}

// Error returns the error string.
func (e *TypeMappingError) Error() string {
	if e.Dialect != "" {
		return fmt.Sprintf("polystore: attribute %q: no %s column type for %s", e.Attribute, e.Dialect, e.Type)
	}
	return fmt.Sprintf("polystore: attribute %q: no parameter kind for %s", e.Attribute, e.Type)
}

// Is reports whether the target error matches ErrTypeMapping.
func (e *TypeMappingError) Is(err error) bool {
	return err == ErrTypeMapping
}

// IsTypeMappingError returns true if the error is a TypeMappingError.
func IsTypeMappingError(err error) bool {
	if err == nil {
		return false
	}
	var e *TypeMappingError
	return errors.As(err, &e) || errors.Is(err, ErrTypeMapping)
}

// UnsupportedDialectError is returned when a dialect identifier is not
// registered. Available lists the registered names.
type UnsupportedDialectError struct {
	Name      string
	Available []string
}

// Error returns the error string.
func (e *UnsupportedDialectError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("polystore: unsupported dialect %q", e.Name)
	}
	return fmt.Sprintf("polystore: unsupported dialect %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// Is reports whether the target error matches ErrUnsupportedDialect.
func (e *UnsupportedDialectError) Is(err error) bool {
	return err == ErrUnsupportedDialect
}

// IsUnsupportedDialectError returns true if the error is an UnsupportedDialectError.
func IsUnsupportedDialectError(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedDialectError
	return errors.As(err, &e) || errors.Is(err, ErrUnsupportedDialect)
}

// SchemaProvisioningError wraps a driver failure raised while executing a
// DDL statement. Statement holds the DDL text that failed.
type SchemaProvisioningError struct {
	Object    string
	Statement string
	Err       error
}

// Error returns the error string.
func (e *SchemaProvisioningError) Error() string {
	return fmt.Sprintf("polystore: provisioning %s: %v (statement: %s)", e.Object, e.Err, e.Statement)
}

// Unwrap returns the underlying driver error.
func (e *SchemaProvisioningError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches ErrSchemaProvisioning.
func (e *SchemaProvisioningError) Is(err error) bool {
	return err == ErrSchemaProvisioning
}

// IsSchemaProvisioningError returns true if the error is a SchemaProvisioningError.
func IsSchemaProvisioningError(err error) bool {
	if err == nil {
		return false
	}
	var e *SchemaProvisioningError
	return errors.As(err, &e) || errors.Is(err, ErrSchemaProvisioning)
}
