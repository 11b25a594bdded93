package weaviate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/maxpoletaev/journey/dataclient"
)

var errNotReady = errors.New("node is not ready")

// Client implements dataclient.Client on top of the Weaviate client library.
type Client struct {
	wv *weaviate.Client
}

// New creates a client for the service at the given endpoint.
func New(scheme, host string) *Client {
	return &Client{
		wv: weaviate.New(weaviate.Config{Scheme: scheme, Host: host}),
	}
}

// CreateClass defines the given class in the service schema.
func (c *Client) CreateClass(ctx context.Context, schema dataclient.Schema) error {
	properties := make([]*models.Property, 0, len(schema.Properties))
	for _, p := range schema.Properties {
		properties = append(properties, &models.Property{
			Name:     p.Name,
			DataType: []string{p.DataType},
		})
	}

	class := &models.Class{
		Class:      schema.Class,
		Properties: properties,
	}

	return c.wv.Schema().ClassCreator().WithClass(class).Do(ctx)
}

// CreateObject writes a single object into the given class.
func (c *Client) CreateObject(ctx context.Context, class string, obj dataclient.Object) error {
	creator := c.wv.Data().Creator().
		WithClassName(class).
		WithProperties(obj.Properties)

	if obj.ID != "" {
		creator = creator.WithID(obj.ID)
	}

	_, err := creator.Do(ctx)

	return err
}

// Query returns all objects of the class matching the filter.
func (c *Client) Query(ctx context.Context, class string, filter dataclient.Filter, fields []string) ([]dataclient.Object, error) {
	gqlFields := make([]graphql.Field, 0, len(fields)+1)
	gqlFields = append(gqlFields, graphql.Field{Name: "_additional { id }"})

	for _, f := range fields {
		gqlFields = append(gqlFields, graphql.Field{Name: f})
	}

	where := filters.Where().
		WithPath([]string{filter.Field}).
		WithOperator(filters.Equal).
		WithValueString(filter.Equal)

	result, err := c.wv.GraphQL().Get().
		WithClassName(class).
		WithFields(gqlFields...).
		WithWhere(where).
		Do(ctx)
	if err != nil {
		return nil, err
	}

	if err := graphqlErrors(result); err != nil {
		return nil, err
	}

	items, err := classPayload(result, "Get", class)
	if err != nil {
		return nil, err
	}

	objects := make([]dataclient.Object, 0, len(items))

	for _, item := range items {
		props, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unexpected object payload: %T", item)
		}

		obj := dataclient.Object{
			Properties: make(map[string]interface{}, len(props)),
		}

		for name, value := range props {
			if name == "_additional" {
				if additional, ok := value.(map[string]interface{}); ok {
					obj.ID, _ = additional["id"].(string)
				}
				continue
			}

			obj.Properties[name] = value
		}

		objects = append(objects, obj)
	}

	return objects, nil
}

// Aggregate returns the total number of objects in the class, as counted by
// the service itself.
func (c *Client) Aggregate(ctx context.Context, class string) (int64, error) {
	meta := graphql.Field{
		Name:   "meta",
		Fields: []graphql.Field{{Name: "count"}},
	}

	result, err := c.wv.GraphQL().Aggregate().
		WithClassName(class).
		WithFields(meta).
		Do(ctx)
	if err != nil {
		return 0, err
	}

	if err := graphqlErrors(result); err != nil {
		return 0, err
	}

	items, err := classPayload(result, "Aggregate", class)
	if err != nil {
		return 0, err
	}

	if len(items) != 1 {
		return 0, fmt.Errorf("unexpected aggregate payload: %d groups", len(items))
	}

	group, ok := items[0].(map[string]interface{})
	if !ok {
		return 0, fmt.Errorf("unexpected aggregate payload: %T", items[0])
	}

	metaPayload, ok := group["meta"].(map[string]interface{})
	if !ok {
		return 0, fmt.Errorf("aggregate payload is missing meta")
	}

	count, ok := metaPayload["count"].(float64)
	if !ok {
		return 0, fmt.Errorf("aggregate payload is missing count")
	}

	return int64(count), nil
}

// ReadyChecker probes the readiness endpoints of individual cluster nodes.
// It implements cluster.HealthChecker.
type ReadyChecker struct {
	clients []*weaviate.Client
}

// NewReadyChecker creates a checker with one client per node endpoint.
func NewReadyChecker(scheme string, hosts []string) *ReadyChecker {
	clients := make([]*weaviate.Client, len(hosts))
	for i, host := range hosts {
		clients[i] = weaviate.New(weaviate.Config{Scheme: scheme, Host: host})
	}

	return &ReadyChecker{clients: clients}
}

// NodeReady performs a single readiness probe against the given node.
func (rc *ReadyChecker) NodeReady(ctx context.Context, index int) error {
	ready, err := rc.clients[index].Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return err
	}

	if !ready {
		return errNotReady
	}

	return nil
}

func graphqlErrors(result *models.GraphQLResponse) error {
	if len(result.Errors) == 0 {
		return nil
	}

	messages := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		messages = append(messages, e.Message)
	}

	return fmt.Errorf("graphql: %s", strings.Join(messages, "; "))
}

func classPayload(result *models.GraphQLResponse, section, class string) ([]interface{}, error) {
	payload, ok := result.Data[section].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("response is missing %s section", section)
	}

	items, ok := payload[class].([]interface{})
	if !ok {
		return nil, fmt.Errorf("response is missing class %s", class)
	}

	return items, nil
}
