package auth

// Package auth contains domain-level types for identity and session state.
// It is pure and free of framework/adapter concerns.

// Role represents an application's authorization role.
// Keep string form for easy persistence and serialization.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// Identity represents the application's in-memory view of who is logged in.
// It is created from a decoded credential and later replaced wholesale by the
// authoritative profile fetched from the identity service.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
}

// IsZero reports whether the identity carries no principal.
func (i Identity) IsZero() bool { return i.ID == "" }

// IdentityPatch is a partial identity update. Nil fields are left unchanged.
type IdentityPatch struct {
	Email       *string
	DisplayName *string
	Role        *Role
	AvatarRef   *string
}

// Apply merges the patch into a copy of the identity and returns it.
func (i Identity) Apply(p IdentityPatch) Identity {
	if p.Email != nil {
		i.Email = *p.Email
	}
	if p.DisplayName != nil {
		i.DisplayName = *p.DisplayName
	}
	if p.Role != nil {
		i.Role = *p.Role
	}
	if p.AvatarRef != nil {
		i.AvatarRef = *p.AvatarRef
	}
	return i
}

// Phase is the discriminator of the session state union.
type Phase string

const (
	PhaseAnonymous      Phase = "anonymous"
	PhaseAuthenticating Phase = "authenticating"
	PhaseAuthenticated  Phase = "authenticated"
	PhaseInvalidated    Phase = "invalidated"
)

// State is the process-wide session state. Identity and Credential are only
// meaningful when Phase is PhaseAuthenticated; Reason is only meaningful when
// Phase is PhaseInvalidated.
type State struct {
	Phase      Phase
	Identity   Identity
	Credential string
	Reason     string
}

// Anonymous returns the initial session state.
func Anonymous() State { return State{Phase: PhaseAnonymous} }

// IsAuthenticated reports whether the state holds a live credential.
func (s State) IsAuthenticated() bool { return s.Phase == PhaseAuthenticated }
