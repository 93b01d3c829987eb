package domain

// Role identifies who authored a conversation turn. The string values are the
// wire values used in context_messages.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "ai"
)

// Turn is one curated conversation message.
type Turn struct {
	Role    Role   `json:"type"`
	Content string `json:"content"`
}

// RawTurn is a caller-supplied history entry before curation. Type is kept as
// the raw string so unknown roles survive decoding and can break the lookahead
// during curation. Content is empty when the entry carried no string content.
type RawTurn struct {
	Type    string
	Content string
}

// IsUser reports whether the entry claims to be a user turn.
func (t RawTurn) IsUser() bool { return Role(t.Type) == RoleUser }

// IsModel reports whether the entry claims to be a model turn.
func (t RawTurn) IsModel() bool { return Role(t.Type) == RoleModel }
