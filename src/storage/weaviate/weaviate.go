package weaviate

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// SDK encapsulates all Weaviate operations
type SDK struct {
	client *weaviate.Client
}

// NewSDK creates a new instance of SDK
func NewSDK(client *weaviate.Client) *SDK {
	return &SDK{
		client: client,
	}
}

// NewClient connects to the Weaviate instance at host using scheme.
func NewClient(scheme, host string) (*weaviate.Client, error) {
	client, err := weaviate.NewClient(weaviate.Config{
		Host:   host,
		Scheme: scheme,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}
	return client, nil
}

// CreateSchema creates a class with externally supplied vectors. An existing
// class is left untouched.
func (w *SDK) CreateSchema(ctx context.Context, className string, properties []*models.Property) error {
	exists, err := w.classExists(ctx, className)
	if err != nil {
		return fmt.Errorf("failed to check if class exists: %w", err)
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class:      className,
		Properties: properties,
		Vectorizer: "none",
		VectorIndexConfig: map[string]interface{}{
			"distance": "cosine",
		},
	}

	err = w.client.Schema().ClassCreator().WithClass(class).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to create Weaviate class: %w", err)
	}

	return nil
}

// classExists checks if a class exists in the schema
func (w *SDK) classExists(ctx context.Context, className string) (bool, error) {
	schema, err := w.client.Schema().Getter().Do(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get schema: %w", err)
	}

	for _, class := range schema.Classes {
		if class.Class == className {
			return true, nil
		}
	}

	return false, nil
}

// DeleteSchema deletes a class schema from Weaviate
func (w *SDK) DeleteSchema(ctx context.Context, className string) error {
	err := w.client.Schema().ClassDeleter().WithClassName(className).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete Weaviate class: %w", err)
	}

	return nil
}

// VectorObject represents a single object with its vector and properties
type VectorObject struct {
	ID         string
	Vector     []float32
	Properties map[string]interface{}
}

// BatchAddVectors adds multiple vector objects to a class in a single operation.
// Objects without an ID get a random one.
func (w *SDK) BatchAddVectors(ctx context.Context, className string, objects []VectorObject) error {
	objs := make([]*models.Object, len(objects))
	for i, obj := range objects {
		id := obj.ID
		if id == "" {
			id = uuid.New().String()
		}
		objs[i] = &models.Object{
			ID:         strfmt.UUID(id),
			Class:      className,
			Properties: obj.Properties,
			Vector:     obj.Vector,
		}
	}

	resp, err := w.client.Batch().ObjectsBatcher().WithObjects(objs...).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to batch add vectors: %w", err)
	}
	if len(resp) == 0 {
		return fmt.Errorf("batch operation returned no results")
	}

	var msgs []string
	for _, r := range resp {
		if r.Result == nil || r.Result.Errors == nil {
			continue
		}
		for _, e := range r.Result.Errors.Error {
			msgs = append(msgs, e.Message)
		}
	}
	if len(msgs) > 0 {
		return fmt.Errorf("batch add rejected %d objects: %s", len(msgs), strings.Join(msgs, "; "))
	}

	return nil
}

// QueryConfig represents configuration for vector similarity search
type QueryConfig struct {
	Fields []string // Fields to return in the result
	Limit  int      // Maximum number of results
	Where  *filters.WhereBuilder
}

const DefaultQueryLimit = 20

// QueryResult represents a single result from vector similarity search
type QueryResult struct {
	ID         string
	Distance   float64
	Properties map[string]interface{}
}

// QueryVectors performs vector similarity search in a class, nearest first.
func (w *SDK) QueryVectors(ctx context.Context, className string, vector []float32, config QueryConfig) ([]QueryResult, error) {
	nearVector := w.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	get := w.client.GraphQL().Get().
		WithClassName(className).
		WithNearVector(nearVector)

	return w.get(ctx, get, className, "_additional { id distance }", config)
}

// FindObjects returns objects matching config.Where without ranking.
func (w *SDK) FindObjects(ctx context.Context, className string, config QueryConfig) ([]QueryResult, error) {
	get := w.client.GraphQL().Get().WithClassName(className)
	return w.get(ctx, get, className, "_additional { id }", config)
}

func (w *SDK) get(ctx context.Context, get *graphql.GetBuilder, className, additional string, config QueryConfig) ([]QueryResult, error) {
	fields := make([]graphql.Field, 0, len(config.Fields)+1)
	for _, field := range config.Fields {
		fields = append(fields, graphql.Field{Name: field})
	}
	fields = append(fields, graphql.Field{Name: additional})

	if config.Limit <= 0 {
		config.Limit = DefaultQueryLimit
	}
	get = get.WithFields(fields...).WithLimit(config.Limit)
	if config.Where != nil {
		get = get.WithWhere(config.Where)
	}

	result, err := get.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	if len(result.Errors) > 0 {
		msgs := make([]string, len(result.Errors))
		for i, e := range result.Errors {
			msgs[i] = e.Message
		}
		return nil, fmt.Errorf("failed to query vectors: %s", strings.Join(msgs, "; "))
	}

	return parseGetResult(result.Data, className), nil
}

// parseGetResult pulls the objects of className out of a GraphQL Get payload.
func parseGetResult(data map[string]models.JSONObject, className string) []QueryResult {
	var queryResults []QueryResult

	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return queryResults
	}
	objects, ok := get[className].([]interface{})
	if !ok {
		return queryResults
	}

	for _, obj := range objects {
		objMap, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}

		properties := make(map[string]interface{})
		for k, v := range objMap {
			if k != "_additional" {
				properties[k] = v
			}
		}

		res := QueryResult{Properties: properties}
		if additional, ok := objMap["_additional"].(map[string]interface{}); ok {
			res.ID, _ = additional["id"].(string)
			res.Distance, _ = additional["distance"].(float64)
		}
		queryResults = append(queryResults, res)
	}

	return queryResults
}

// DeleteWhere removes every object of className matching where.
func (w *SDK) DeleteWhere(ctx context.Context, className string, where *filters.WhereBuilder) error {
	resp, err := w.client.Batch().ObjectsBatchDeleter().
		WithClassName(className).
		WithWhere(where).
		WithOutput("minimal").
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}

	return checkDeleteResult(resp)
}

// checkDeleteResult fails when some matched objects survived the batch delete.
func checkDeleteResult(resp *models.BatchDeleteResponse) error {
	if resp == nil || resp.Results == nil {
		return nil
	}
	r := resp.Results
	if r.Failed > 0 || r.Matches > r.Successful {
		return fmt.Errorf("failed to delete vectors: %d of %d matches deleted, %d failed", r.Successful, r.Matches, r.Failed)
	}
	return nil
}

// CountWhere returns the number of objects of className matching where.
func (w *SDK) CountWhere(ctx context.Context, className string, where *filters.WhereBuilder) (int, error) {
	meta := graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}

	result, err := w.client.GraphQL().Aggregate().
		WithClassName(className).
		WithFields(meta).
		WithWhere(where).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count vectors: %w", err)
	}
	if len(result.Errors) > 0 {
		msgs := make([]string, len(result.Errors))
		for i, e := range result.Errors {
			msgs[i] = e.Message
		}
		return 0, fmt.Errorf("failed to count vectors: %s", strings.Join(msgs, "; "))
	}

	return parseAggregateCount(result.Data, className), nil
}

// parseAggregateCount pulls meta.count of className out of a GraphQL Aggregate payload.
func parseAggregateCount(data map[string]models.JSONObject, className string) int {
	aggregate, ok := data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0
	}
	groups, ok := aggregate[className].([]interface{})
	if !ok || len(groups) == 0 {
		return 0
	}
	group, ok := groups[0].(map[string]interface{})
	if !ok {
		return 0
	}
	meta, ok := group["meta"].(map[string]interface{})
	if !ok {
		return 0
	}
	count, _ := meta["count"].(float64)
	return int(count)
}

// Ready reports an error unless the Weaviate instance is ready to serve.
func (w *SDK) Ready(ctx context.Context) error {
	ready, err := w.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check weaviate readiness: %w", err)
	}
	if !ready {
		return fmt.Errorf("weaviate is not ready")
	}
	return nil
}
