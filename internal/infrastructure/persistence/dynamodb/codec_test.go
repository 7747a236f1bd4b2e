package dynamodb

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mystira-backend/internal/domain/story"
)

func attrS(item map[string]types.AttributeValue, name string) string {
	av, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}
	return av.Value
}

func TestCodecKey(t *testing.T) {
	codec := NewCodec[story.Scenario]("Scenario")
	key := codec.Key("user-1", "s-1")

	assert.Equal(t, "USER#user-1", attrS(key, attrPK))
	assert.Equal(t, "Scenario#s-1", attrS(key, attrSK))
}

func TestCodecToItemAddsMetadata(t *testing.T) {
	codec := NewCodec[story.Scenario]("Scenario")
	s := story.NewScenario("user-1", "The Lost Grove", "6+")

	item, err := codec.ToItem(s)
	require.NoError(t, err)

	assert.Equal(t, "USER#user-1", attrS(item, attrPK))
	assert.Equal(t, "Scenario#"+s.ID, attrS(item, attrSK))
	assert.Equal(t, "Scenario", attrS(item, attrEntityType))
	assert.NotEmpty(t, attrS(item, attrUpdatedAt))
	// Entity attributes keep their declared casing.
	assert.Equal(t, s.ID, attrS(item, "Id"))
	assert.Equal(t, "The Lost Grove", attrS(item, "Title"))
}

func TestCodecRoundTrip(t *testing.T) {
	codec := NewCodec[story.Scenario]("Scenario")
	s := story.NewScenario("user-1", "The Lost Grove", "6+")
	s.Chapters = []story.Chapter{
		{ID: "ch-1", Title: "Opening", Body: "Once upon a time...", Choices: []story.Choice{
			{ID: "c-1", Text: "Enter the grove", NextChapter: "ch-2"},
		}},
	}

	item, err := codec.ToItem(s)
	require.NoError(t, err)

	got, err := codec.FromItem(item)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, s.Title, got.Title)
	require.Len(t, got.Chapters, 1)
	require.Len(t, got.Chapters[0].Choices, 1)
	assert.Equal(t, "ch-2", got.Chapters[0].Choices[0].NextChapter)
}

func TestNaturalKeyCodec(t *testing.T) {
	codec := NewNaturalKeyCodec[story.CompassAxis]("CompassAxis", "Axis")
	axis := story.CompassAxis{Axis: "courage", UserID: "user-1", Score: 3, Samples: 5}

	item, err := codec.ToItem(axis)
	require.NoError(t, err)

	assert.Equal(t, "CompassAxis#courage", attrS(item, attrSK))
	assert.Equal(t, "Axis", codec.IDAttribute())
	assert.Equal(t, "courage", attrS(item, "Axis"))
}

func TestPartitionKeyHookMirrorsID(t *testing.T) {
	hook := NewPartitionKeyHook()
	codec := NewCodec[story.Scenario]("Scenario")
	s := story.NewScenario("user-1", "The Lost Grove", "6+")

	item, err := codec.ToItem(s)
	require.NoError(t, err)
	hook.Apply(item, "Scenario")

	assert.Equal(t, s.ID, attrS(item, attrPartitionKey))
}

func TestPartitionKeyHookNaturalKeyOverride(t *testing.T) {
	hook := NewPartitionKeyHook()
	codec := NewNaturalKeyCodec[story.CompassAxis]("CompassAxis", "Axis")
	axis := story.CompassAxis{Axis: "kindness", UserID: "user-1"}

	item, err := codec.ToItem(axis)
	require.NoError(t, err)
	hook.Apply(item, "CompassAxis")

	assert.Equal(t, "kindness", attrS(item, attrPartitionKey))
}

func TestPartitionKeyHookMissingSourceIsNoop(t *testing.T) {
	hook := NewPartitionKeyHook()
	item := map[string]types.AttributeValue{
		"Other": &types.AttributeValueMemberS{Value: "x"},
	}
	hook.Apply(item, "Scenario")

	_, present := item[attrPartitionKey]
	assert.False(t, present)
}

func TestPartitionKeyHookCopyIsIndependent(t *testing.T) {
	hook := NewPartitionKeyHook()
	id := &types.AttributeValueMemberS{Value: "s-1"}
	item := map[string]types.AttributeValue{"Id": id}

	hook.Apply(item, "Scenario")
	id.Value = "mutated"

	assert.Equal(t, "s-1", attrS(item, attrPartitionKey),
		"mirrored key must not alias the source attribute")
}

func TestPartitionKeyHookLeavesNestedDocumentsAlone(t *testing.T) {
	hook := NewPartitionKeyHook()
	codec := NewCodec[story.Scenario]("Scenario")
	s := story.NewScenario("user-1", "The Lost Grove", "6+")
	s.Chapters = []story.Chapter{{ID: "ch-1", Title: "Opening"}}

	item, err := codec.ToItem(s)
	require.NoError(t, err)
	hook.Apply(item, "Scenario")

	chapters, ok := item["Chapters"].(*types.AttributeValueMemberL)
	require.True(t, ok)
	chapter, ok := chapters.Value[0].(*types.AttributeValueMemberM)
	require.True(t, ok)
	_, mirrored := chapter.Value[attrPartitionKey]
	assert.False(t, mirrored, "sub-documents have no partition identity")
}
