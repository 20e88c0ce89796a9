package globals

// Context keys
type ContextKey string

const (
	SessionKey ContextKey = "session"
	TokenKey   ContextKey = "token"
	RoleKey    ContextKey = "role"
)
