package dynamock

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/deltamap/deltamap"
)

// StoreAPICall is the shape of a single DynamoDB operation.
type StoreAPICall[T, U any] func(context.Context, *T, ...func(*dynamodb.Options)) (*U, error)

// MockClient is a simple expectation-based mock of the store client. Set the
// function field for each operation a test expects; any operation left at
// its default fails the test, which also proves that no call was issued.
type MockClient struct {
	PutFunc    StoreAPICall[dynamodb.PutItemInput, dynamodb.PutItemOutput]
	GetFunc    StoreAPICall[dynamodb.GetItemInput, dynamodb.GetItemOutput]
	UpdateFunc StoreAPICall[dynamodb.UpdateItemInput, dynamodb.UpdateItemOutput]
	DeleteFunc StoreAPICall[dynamodb.DeleteItemInput, dynamodb.DeleteItemOutput]
	QueryFunc  StoreAPICall[dynamodb.QueryInput, dynamodb.QueryOutput]
	ScanFunc   StoreAPICall[dynamodb.ScanInput, dynamodb.ScanOutput]
}

// Ensure MockClient implements the engine's client interface.
var _ deltamap.StoreClient = (*MockClient)(nil)

// NewMockClient creates a mock whose operations all fail the test until a
// test installs its own functions.
func NewMockClient(t *testing.T) *MockClient {
	return &MockClient{
		PutFunc:    defaultFunc[dynamodb.PutItemInput, dynamodb.PutItemOutput](t),
		GetFunc:    defaultFunc[dynamodb.GetItemInput, dynamodb.GetItemOutput](t),
		UpdateFunc: defaultFunc[dynamodb.UpdateItemInput, dynamodb.UpdateItemOutput](t),
		DeleteFunc: defaultFunc[dynamodb.DeleteItemInput, dynamodb.DeleteItemOutput](t),
		QueryFunc:  defaultFunc[dynamodb.QueryInput, dynamodb.QueryOutput](t),
		ScanFunc:   defaultFunc[dynamodb.ScanInput, dynamodb.ScanOutput](t),
	}
}

func defaultFunc[T, U any](t *testing.T) StoreAPICall[T, U] {
	return func(ctx context.Context, params *T, optFns ...func(*dynamodb.Options)) (*U, error) {
		t.Helper()
		t.Fatal("unexpected call")
		return nil, nil
	}
}

// PutItem dispatches to PutFunc.
func (m *MockClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return m.PutFunc(ctx, params, optFns...)
}

// GetItem dispatches to GetFunc.
func (m *MockClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return m.GetFunc(ctx, params, optFns...)
}

// UpdateItem dispatches to UpdateFunc.
func (m *MockClient) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return m.UpdateFunc(ctx, params, optFns...)
}

// DeleteItem dispatches to DeleteFunc.
func (m *MockClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return m.DeleteFunc(ctx, params, optFns...)
}

// Query dispatches to QueryFunc.
func (m *MockClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return m.QueryFunc(ctx, params, optFns...)
}

// Scan dispatches to ScanFunc.
func (m *MockClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return m.ScanFunc(ctx, params, optFns...)
}
