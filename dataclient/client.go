package dataclient

import "context"

// Schema describes a class of objects to be created in the service under
// test.
type Schema struct {
	Class      string
	Properties []Property
}

// Property is a single field of a class.
type Property struct {
	Name     string
	DataType string
}

// Object is a single record stored in the service, addressed by class and ID.
type Object struct {
	ID         string
	Properties map[string]interface{}
}

// Filter is an equality filter over a single property.
type Filter struct {
	Field string
	Equal string
}

// Client is the data capability of the service under test. The wire protocol
// behind it is an external collaborator, the harness only relies on these
// operations.
type Client interface {
	// CreateClass defines a new class in the service schema.
	CreateClass(ctx context.Context, schema Schema) error

	// CreateObject writes a single object into the given class.
	CreateObject(ctx context.Context, class string, obj Object) error

	// Query returns all objects of the class matching the filter, with the
	// given properties populated.
	Query(ctx context.Context, class string, filter Filter, fields []string) ([]Object, error)

	// Aggregate returns the total number of objects in the class.
	Aggregate(ctx context.Context, class string) (int64, error)
}
