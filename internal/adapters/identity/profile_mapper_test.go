package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/sessionkit/internal/domain/auth"
	apperrors "github.com/target/sessionkit/internal/errors"
)

func TestProfileMapper_DefaultMapping(t *testing.T) {
	t.Parallel()

	mapper, err := NewProfileMapper(DefaultProfileMapping())
	require.NoError(t, err)

	tests := []struct {
		name string
		doc  string
		want auth.Identity
	}{
		{
			name: "stock document",
			doc:  `{"id":"42","email":"ada@example.com","name":"Ada Lovelace","role":"admin","avatar":{"url":"https://example.com/ada.png"}}`,
			want: auth.Identity{
				ID:          "42",
				Email:       "ada@example.com",
				DisplayName: "Ada Lovelace",
				Role:        auth.RoleAdmin,
				AvatarRef:   "https://example.com/ada.png",
			},
		},
		{
			name: "mongo style id and flat avatar",
			doc:  `{"_id":"6500ab","display_name":"Grace Hopper","avatar_url":"https://example.com/grace.png"}`,
			want: auth.Identity{
				ID:          "6500ab",
				DisplayName: "Grace Hopper",
				AvatarRef:   "https://example.com/grace.png",
			},
		},
		{
			name: "numeric id",
			doc:  `{"id":42,"email":"ada@example.com"}`,
			want: auth.Identity{ID: "42", Email: "ada@example.com"},
		},
		{
			name: "image field fallback",
			doc:  `{"id":"7","image":"https://example.com/pic.jpg"}`,
			want: auth.Identity{ID: "7", AvatarRef: "https://example.com/pic.jpg"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			identity, err := mapper.MapJSON([]byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, identity)
		})
	}
}

func TestProfileMapper_MissingSubjectID(t *testing.T) {
	t.Parallel()

	mapper, err := NewProfileMapper(DefaultProfileMapping())
	require.NoError(t, err)

	_, err = mapper.MapJSON([]byte(`{"email":"nobody@example.com"}`))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeRemoteRejected, apperrors.CodeOf(err))
}

func TestProfileMapper_InvalidJSON(t *testing.T) {
	t.Parallel()

	mapper, err := NewProfileMapper(DefaultProfileMapping())
	require.NoError(t, err)

	_, err = mapper.MapJSON([]byte(`{not json`))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeTransport, apperrors.CodeOf(err))
}

func TestNewProfileMapper_BadExpression(t *testing.T) {
	t.Parallel()

	_, err := NewProfileMapper(ProfileMapping{ID: "][not-jmespath"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInternal, apperrors.CodeOf(err))
}

func TestNewProfileMapper_EmptyExpressionsAreOptional(t *testing.T) {
	t.Parallel()

	mapper, err := NewProfileMapper(ProfileMapping{ID: "id"})
	require.NoError(t, err)

	identity, err := mapper.MapJSON([]byte(`{"id":"42","email":"ignored@example.com"}`))
	require.NoError(t, err)
	assert.Equal(t, "42", identity.ID)
	assert.Empty(t, identity.Email)
}
