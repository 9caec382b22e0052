package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTags_ValueScan(t *testing.T) {
	v, err := Tags{"Politics", "Economy"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["Politics","Economy"]`, v)

	v, err = Tags(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var tags Tags
	require.NoError(t, tags.Scan([]byte(`["Education"]`)))
	assert.Equal(t, Tags{"Education"}, tags)

	require.NoError(t, tags.Scan(nil))
	assert.Equal(t, Tags{}, tags)

	assert.Error(t, tags.Scan(42))
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, CategoryGeneral.Valid())
	assert.False(t, Category("general").Valid())
	assert.True(t, RoleModerator.Valid())
	assert.False(t, Role("root").Valid())
	assert.True(t, ReasonFalseInformation.Valid())
	assert.False(t, ReportReason("boring").Valid())
	assert.True(t, RatingCategory("food_security").Valid())
	assert.False(t, RatingCategory("sports").Valid())
}

func TestNormalizeIdentity(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeIdentity("  Alice@Example.COM "))
}

func TestPost_DerivedCounts(t *testing.T) {
	bob := uuid.New()
	p := &Post{
		Likes:    []PostLike{{UserID: bob}, {UserID: uuid.New()}},
		Comments: []Comment{{Content: "hi"}},
	}
	assert.Equal(t, 2, p.LikeCount())
	assert.Equal(t, 1, p.CommentCount())
	assert.True(t, p.LikedBy(bob))
	assert.False(t, p.LikedBy(uuid.New()))
}
