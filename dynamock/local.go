package dynamock

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/deltamap/deltamap"
)

// DefaultLocalPort is the default port for DynamoDB Local.
const DefaultLocalPort = 8000

// LocalDynamoDB represents a connection to a local DynamoDB instance.
type LocalDynamoDB struct {
	Client   *dynamodb.Client
	Endpoint string
	Port     int
}

// NewLocalClient creates a DynamoDB client configured to connect to a local
// DynamoDB instance. This is useful for integration testing with DynamoDB
// Local.
func NewLocalClient(port int) *dynamodb.Client {
	endpoint := fmt.Sprintf("http://localhost:%d", port)

	cfg := aws.Config{
		Region:      "us-east-1", // DynamoDB Local doesn't care about region
		Credentials: aws.AnonymousCredentials{},
		EndpointResolverWithOptions: aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:           endpoint,
					SigningRegion: region,
				}, nil
			},
		),
	}

	return dynamodb.NewFromConfig(cfg)
}

// NewLocalDynamoDB creates a LocalDynamoDB instance with the specified port.
func NewLocalDynamoDB(port int) *LocalDynamoDB {
	return &LocalDynamoDB{
		Client:   NewLocalClient(port),
		Endpoint: fmt.Sprintf("http://localhost:%d", port),
		Port:     port,
	}
}

// NewDefaultLocalDynamoDB creates a LocalDynamoDB instance using the default
// port (8000).
func NewDefaultLocalDynamoDB() *LocalDynamoDB {
	return NewLocalDynamoDB(DefaultLocalPort)
}

// IsAvailable checks if DynamoDB Local is running on the configured port.
func (l *LocalDynamoDB) IsAvailable(ctx context.Context) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", l.Port), 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()

	_, err = l.Client.ListTables(ctx, &dynamodb.ListTablesInput{})
	return err == nil
}

// CreateTableFor creates the backend table described by the table handle,
// with attribute definitions and global secondary indexes derived from the
// entity schema. This is a convenience for integration tests.
func (l *LocalDynamoDB) CreateTableFor(ctx context.Context, table *deltamap.Table, schema *deltamap.Schema) error {
	if err := table.Bind(schema); err != nil {
		return err
	}

	attrTypes := map[string]types.ScalarAttributeType{}
	addKeyAttr := func(name string, kind deltamap.Kind) error {
		scalar, ok := kind.ScalarAttributeType()
		if !ok {
			return fmt.Errorf("key attribute %q has non-scalar kind %s", name, kind)
		}
		attrTypes[name] = scalar
		return nil
	}

	if err := addKeyAttr(table.HashKey.Name, table.HashKey.Kind); err != nil {
		return err
	}
	keySchema := []types.KeySchemaElement{{
		AttributeName: aws.String(table.HashKey.Name),
		KeyType:       types.KeyTypeHash,
	}}
	if table.RangeKey != nil {
		if err := addKeyAttr(table.RangeKey.Name, table.RangeKey.Kind); err != nil {
			return err
		}
		keySchema = append(keySchema, types.KeySchemaElement{
			AttributeName: aws.String(table.RangeKey.Name),
			KeyType:       types.KeyTypeRange,
		})
	}

	var indexes []types.GlobalSecondaryIndex
	for _, idx := range schema.Indexes() {
		indexKeySchema := []types.KeySchemaElement{}
		members := []struct {
			fieldName string
			keyType   types.KeyType
		}{
			{idx.HashField, types.KeyTypeHash},
		}
		if idx.RangeField != "" {
			members = append(members, struct {
				fieldName string
				keyType   types.KeyType
			}{idx.RangeField, types.KeyTypeRange})
		}
		for _, m := range members {
			field, _ := schema.Field(m.fieldName)
			if err := addKeyAttr(field.Name, field.Kind); err != nil {
				return err
			}
			indexKeySchema = append(indexKeySchema, types.KeySchemaElement{
				AttributeName: aws.String(field.Name),
				KeyType:       m.keyType,
			})
		}
		indexes = append(indexes, types.GlobalSecondaryIndex{
			IndexName: aws.String(idx.Name),
			KeySchema: indexKeySchema,
			Projection: &types.Projection{
				ProjectionType: types.ProjectionTypeAll,
			},
			ProvisionedThroughput: &types.ProvisionedThroughput{
				ReadCapacityUnits:  aws.Int64(5),
				WriteCapacityUnits: aws.Int64(5),
			},
		})
	}

	attrDefs := make([]types.AttributeDefinition, 0, len(attrTypes))
	for name, scalar := range attrTypes {
		attrDefs = append(attrDefs, types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: scalar,
		})
	}

	input := &dynamodb.CreateTableInput{
		TableName:            aws.String(table.Name),
		AttributeDefinitions: attrDefs,
		KeySchema:            keySchema,
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(5),
			WriteCapacityUnits: aws.Int64(5),
		},
		GlobalSecondaryIndexes: indexes,
	}

	if _, err := l.Client.CreateTable(ctx, input); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table.Name, err)
	}

	return l.WaitForTableActive(ctx, table.Name, 30*time.Second)
}

// WaitForTableActive waits for a table to become active.
func (l *LocalDynamoDB) WaitForTableActive(ctx context.Context, tableName string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		output, err := l.Client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(tableName),
		})
		if err != nil {
			return fmt.Errorf("failed to describe table %s: %w", tableName, err)
		}

		if output.Table.TableStatus == types.TableStatusActive {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
			// Continue checking
		}
	}

	return fmt.Errorf("table %s did not become active within %v", tableName, timeout)
}

// DeleteTable deletes a table and waits for it to be fully deleted.
func (l *LocalDynamoDB) DeleteTable(ctx context.Context, tableName string) error {
	_, err := l.Client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		return fmt.Errorf("failed to delete table %s: %w", tableName, err)
	}

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		_, err := l.Client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(tableName),
		})
		if err != nil {
			var notFoundErr *types.ResourceNotFoundException
			if errors.As(err, &notFoundErr) {
				return nil
			}
			return fmt.Errorf("error checking table deletion status: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
			// Continue checking
		}
	}

	return fmt.Errorf("table %s was not deleted within 30s", tableName)
}

// Cleanup deletes all tables in the local DynamoDB instance.
func (l *LocalDynamoDB) Cleanup(ctx context.Context) error {
	output, err := l.Client.ListTables(ctx, &dynamodb.ListTablesInput{})
	if err != nil {
		return fmt.Errorf("failed to list tables for cleanup: %w", err)
	}

	for _, tableName := range output.TableNames {
		if err := l.DeleteTable(ctx, tableName); err != nil {
			return fmt.Errorf("failed to delete table %s during cleanup: %w", tableName, err)
		}
	}

	return nil
}
