package dynamodb

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"mystira-backend/internal/repository"
)

// Item attribute names shared by every entity in the single-table layout.
const (
	attrPK         = "PK"
	attrSK         = "SK"
	attrEntityType = "EntityType"
	attrUpdatedAt  = "UpdatedAt"
)

// Codec converts one entity type to and from DynamoDB items and builds its
// keys. The identifier attribute defaults to "Id"; naturally keyed aggregates
// override it (CompassAxis keys on "Axis").
type Codec[T repository.Entity] struct {
	entityType string
	idAttr     string
}

// NewCodec creates a codec for an entity type keyed by its Id attribute.
func NewCodec[T repository.Entity](entityType string) *Codec[T] {
	return &Codec[T]{entityType: entityType, idAttr: "Id"}
}

// NewNaturalKeyCodec creates a codec for an entity type keyed by a non-Id
// attribute.
func NewNaturalKeyCodec[T repository.Entity](entityType, idAttr string) *Codec[T] {
	return &Codec[T]{entityType: entityType, idAttr: idAttr}
}

// EntityType returns the type name the codec serves.
func (c *Codec[T]) EntityType() string { return c.entityType }

// IDAttribute returns the attribute holding the entity's identifier.
func (c *Codec[T]) IDAttribute() string { return c.idAttr }

// Key builds the primary key for an entity id under a user partition.
func (c *Codec[T]) Key(userID, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: fmt.Sprintf("USER#%s", userID)},
		attrSK: &types.AttributeValueMemberS{Value: fmt.Sprintf("%s#%s", c.entityType, id)},
	}
}

// ToItem marshals the entity and adds the table metadata attributes.
func (c *Codec[T]) ToItem(entity T) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(entity)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", c.entityType, err)
	}
	key := c.Key(entity.GetUserID(), entity.GetID())
	item[attrPK] = key[attrPK]
	item[attrSK] = key[attrSK]
	item[attrEntityType] = &types.AttributeValueMemberS{Value: c.entityType}
	item[attrUpdatedAt] = &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)}
	return item, nil
}

// FromItem unmarshals a table item back into the entity. Metadata attributes
// without a matching struct field are ignored.
func (c *Codec[T]) FromItem(item map[string]types.AttributeValue) (T, error) {
	var entity T
	if err := attributevalue.UnmarshalMap(item, &entity); err != nil {
		return entity, fmt.Errorf("unmarshal %s: %w", c.entityType, err)
	}
	return entity, nil
}
