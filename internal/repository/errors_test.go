package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"mystira-backend/internal/repository"
)

func TestNotFoundAndConflict(t *testing.T) {
	nf := repository.NewNotFound("Scenario", "s-1", "user-1")
	assert.True(t, repository.IsNotFound(nf))
	assert.True(t, repository.IsNotFound(fmt.Errorf("wrapped: %w", nf)))
	assert.False(t, repository.IsConflict(nf))
	assert.Contains(t, nf.Error(), "user-1")

	c := repository.NewConflict("GameSession", "g-1", "version mismatch")
	assert.True(t, repository.IsConflict(c))
	assert.True(t, repository.IsConflict(fmt.Errorf("wrapped: %w", c)))
	assert.False(t, repository.IsNotFound(c))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"explicit transient wrapper", repository.Transient(errors.New("blip")), true},
		{"wrapped transient", fmt.Errorf("outer: %w", repository.Transient(errors.New("blip"))), true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"canceled is not transient", context.Canceled, false},
		{"not found", repository.NewNotFound("Scenario", "s-1", "u-1"), false},
		{"conflict", repository.NewConflict("Scenario", "s-1", "dup"), false},
		{"dynamo throughput exceeded", &ddbtypes.ProvisionedThroughputExceededException{}, true},
		{"dynamo internal server error", &ddbtypes.InternalServerError{}, true},
		{"dynamo throttling code", &smithy.GenericAPIError{Code: "ThrottlingException"}, true},
		{"dynamo validation code", &smithy.GenericAPIError{Code: "ValidationException"}, false},
		{"postgres connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"postgres serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"postgres deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"postgres shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"postgres unique violation", &pgconn.PgError{Code: "23505"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repository.IsTransient(tt.err))
		})
	}
}

func TestTransientNil(t *testing.T) {
	assert.Nil(t, repository.Transient(nil))
}
