package server_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/codev-api/internal/server"
	"github.com/oggyb/codev-api/internal/view"
)

func TestDecode(t *testing.T) {
	id := uuid.New()
	req, err := structpb.NewStruct(map[string]any{"id": id.String(), "page": 2, "name": "Go"})
	require.NoError(t, err)

	var dst struct {
		ID   uuid.UUID `json:"id"`
		Page int       `json:"page"`
		Name *string   `json:"name"`
		Size *int      `json:"size"`
	}
	require.NoError(t, server.Decode(req, &dst))
	assert.Equal(t, id, dst.ID)
	assert.Equal(t, 2, dst.Page)
	require.NotNil(t, dst.Name)
	assert.Equal(t, "Go", *dst.Name)
	assert.Nil(t, dst.Size)
}

func TestEncode(t *testing.T) {
	out, err := server.Encode(&view.Category{ID: uuid.Nil, Name: "Web"})
	require.NoError(t, err)
	assert.Equal(t, "Web", out.Fields["name"].GetStringValue())

	out, err = server.Encode(server.Items([]view.Category(nil)))
	require.NoError(t, err)
	assert.Empty(t, out.Fields["items"].GetListValue().GetValues())

	out, err = server.Encode(int64(3))
	require.NoError(t, err)
	assert.EqualValues(t, 3, out.Fields["result"].GetNumberValue())
}

func TestParseToken(t *testing.T) {
	id := uuid.New()
	token, err := server.IssueToken("s", id, []string{"USER", "ADMIN"}, time.Minute)
	require.NoError(t, err)

	actor, err := server.ParseToken("s", "ADMIN", token)
	require.NoError(t, err)
	assert.Equal(t, id, actor.ID)
	assert.True(t, actor.Admin)

	actor, err = server.ParseToken("s", "OWNER", token)
	require.NoError(t, err)
	assert.False(t, actor.Admin)

	expired, err := server.IssueToken("s", id, nil, -time.Minute)
	require.NoError(t, err)
	_, err = server.ParseToken("s", "ADMIN", expired)
	assert.Error(t, err)
}
