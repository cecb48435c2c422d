package model

// Session identifies the caller of a workflow. It is resolved once from the
// bearer token and passed explicitly to every service call.
type Session struct {
	UserID uint
	Role   UserRole
	Email  string
}
