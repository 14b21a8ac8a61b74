package identity

import (
	"encoding/json"
	"fmt"

	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/target/sessionkit/internal/domain/auth"
	apperrors "github.com/target/sessionkit/internal/errors"
)

// ProfileMapping holds JMESPath expressions extracting identity fields from
// the service's profile document. Deployments with a different profile shape
// override these through configuration instead of forking the client.
type ProfileMapping struct {
	ID          string
	Email       string
	DisplayName string
	Role        string
	AvatarRef   string
}

// DefaultProfileMapping covers the stock /users/me document and the common
// Mongo-style _id variant.
func DefaultProfileMapping() ProfileMapping {
	return ProfileMapping{
		ID:          "id || _id",
		Email:       "email",
		DisplayName: "name || display_name",
		Role:        "role",
		AvatarRef:   "avatar.url || avatar_url || image",
	}
}

// ProfileMapper applies a validated ProfileMapping to profile documents.
type ProfileMapper struct {
	mapping ProfileMapping
}

// NewProfileMapper validates the mapping expressions up front so a bad
// expression fails at construction, not per request.
func NewProfileMapper(m ProfileMapping) (*ProfileMapper, error) {
	validate := func(field, expr string) error {
		if expr == "" {
			return nil
		}
		if _, err := jmespath.Compile(expr); err != nil {
			return apperrors.Internal(fmt.Sprintf("compile %s profile expression", field), err)
		}
		return nil
	}

	for _, e := range []struct{ field, expr string }{
		{"id", m.ID},
		{"email", m.Email},
		{"display name", m.DisplayName},
		{"role", m.Role},
		{"avatar", m.AvatarRef},
	} {
		if err := validate(e.field, e.expr); err != nil {
			return nil, err
		}
	}
	return &ProfileMapper{mapping: m}, nil
}

// MapJSON maps a raw JSON profile document to an Identity.
func (p *ProfileMapper) MapJSON(doc []byte) (auth.Identity, error) {
	var data any
	if err := json.Unmarshal(doc, &data); err != nil {
		return auth.Identity{}, apperrors.Transport("decode profile document", err)
	}
	return p.Map(data)
}

// Map maps a decoded profile document to an Identity.
func (p *ProfileMapper) Map(data any) (auth.Identity, error) {
	identity := auth.Identity{
		ID:          searchString(p.mapping.ID, data),
		Email:       searchString(p.mapping.Email, data),
		DisplayName: searchString(p.mapping.DisplayName, data),
		Role:        auth.Role(searchString(p.mapping.Role, data)),
		AvatarRef:   searchString(p.mapping.AvatarRef, data),
	}
	if identity.ID == "" {
		return auth.Identity{}, apperrors.RemoteRejected("profile document has no subject id")
	}
	return identity, nil
}

func searchString(expr string, data any) string {
	if expr == "" {
		return ""
	}
	result, err := jmespath.Search(expr, data)
	if err != nil {
		return ""
	}
	switch v := result.(type) {
	case string:
		return v
	case float64:
		// Numeric ids arrive as JSON numbers.
		return trimFloat(v)
	default:
		return ""
	}
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	if float64(int64(v)) != v {
		s = fmt.Sprintf("%v", v)
	}
	return s
}
