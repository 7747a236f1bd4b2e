package dynamodb

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// The table's partitioning scheme predates the current entity shapes and
// routes on a duplicate "PartitionKey" attribute rather than the entities'
// own identifier attribute. PartitionKeyHook runs immediately before every
// put and mirrors the identifier into that shadow attribute.
const attrPartitionKey = "PartitionKey"

// PartitionKeyHook copies each top-level item's identifier attribute into the
// PartitionKey shadow attribute. Owned sub-documents (chapter lists, choices)
// are nested inside the item and are never touched: they have no independent
// partition identity.
type PartitionKeyHook struct {
	// sources maps entity types with a natural key to the attribute that
	// holds it. Unlisted types mirror "Id".
	sources map[string]string
}

// NewPartitionKeyHook returns a hook with the known natural-key overrides.
func NewPartitionKeyHook() *PartitionKeyHook {
	return &PartitionKeyHook{
		sources: map[string]string{
			// The compass aggregate keys on the axis name, not an Id.
			"CompassAxis": "Axis",
		},
	}
}

// Apply mirrors the identifier attribute into PartitionKey. A missing source
// attribute makes this a no-op for the item; the hook performs no I/O and
// never fails the save.
func (h *PartitionKeyHook) Apply(item map[string]types.AttributeValue, entityType string) {
	src, ok := h.sources[entityType]
	if !ok {
		src = "Id"
	}
	value, ok := item[src]
	if !ok {
		return
	}
	item[attrPartitionKey] = copyAttribute(value)
}

// copyAttribute clones scalar attribute values so later mutation of the item
// cannot skew the mirrored key. Non-scalar values are shared as-is.
func copyAttribute(v types.AttributeValue) types.AttributeValue {
	switch av := v.(type) {
	case *types.AttributeValueMemberS:
		return &types.AttributeValueMemberS{Value: av.Value}
	case *types.AttributeValueMemberN:
		return &types.AttributeValueMemberN{Value: av.Value}
	default:
		return v
	}
}
