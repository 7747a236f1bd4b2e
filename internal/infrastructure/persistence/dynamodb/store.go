// Package dynamodb implements the document-store side of the data layer on
// DynamoDB, using a single-table layout partitioned by user.
package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// Store wraps the DynamoDB client with the table the data layer owns. One
// Store serves every entity type; repositories share it.
type Store struct {
	client *awsdynamodb.Client
	table  string
	logger *zap.Logger
}

// NewStore creates a document store over the given table.
func NewStore(client *awsdynamodb.Client, table string, logger *zap.Logger) *Store {
	return &Store{
		client: client,
		table:  table,
		logger: logger.Named("dynamodb"),
	}
}

// TableName returns the backing table name.
func (s *Store) TableName() string { return s.table }

// Ping probes connectivity by describing the table. Used by health checks;
// callers convert failures to an unhealthy flag rather than propagating.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &awsdynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	})
	if err != nil {
		return fmt.Errorf("describe table %s: %w", s.table, err)
	}
	return nil
}
