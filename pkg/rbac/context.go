package rbac

import (
	"context"
	"net/http"
)

// Subject is the authenticated identity a request carries. Role is the
// zero value when the identity has no role profile yet.
type Subject struct {
	UserID   int64
	Username string
	Role     Role
}

// Permissions derives the subject's permission set
func (s *Subject) Permissions() PermissionSet {
	if s == nil {
		return PermissionSet{}
	}
	return Derive(s.Role)
}

type contextKey string

const subjectKey contextKey = "rbac_subject"

// WithSubject stores the subject in the context
func WithSubject(ctx context.Context, subject *Subject) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// SubjectFrom retrieves the subject from the context, or nil when the
// request is anonymous
func SubjectFrom(ctx context.Context) *Subject {
	subject, ok := ctx.Value(subjectKey).(*Subject)
	if !ok {
		return nil
	}
	return subject
}

// SubjectFromRequest retrieves the subject from the request context
func SubjectFromRequest(r *http.Request) *Subject {
	return SubjectFrom(r.Context())
}
