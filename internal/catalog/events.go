package catalog

import (
	"context"
	"time"

	"github.com/talkincode/toughshop/internal/domain"
)

// Event topics published on the application bus after a catalog mutation succeeds
const (
	TopicCreated  = "catalog:created"
	TopicFeatured = "catalog:featured"
	TopicDeleted  = "catalog:deleted"
)

// Event describes a completed catalog mutation
type Event struct {
	Topic   string
	Product domain.Product
	OprID   int64 // zero when the caller is not an authenticated operator
	Time    time.Time
}

type operatorKey struct{}

// WithOperator marks ctx as acting on behalf of the given admin user
func WithOperator(ctx context.Context, oprID int64) context.Context {
	return context.WithValue(ctx, operatorKey{}, oprID)
}

// OperatorFrom returns the admin user recorded by WithOperator
func OperatorFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(operatorKey{}).(int64)
	return id
}
