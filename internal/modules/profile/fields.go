package profile

import (
	"time"

	"dispatchdesk/internal/docstore"
	"dispatchdesk/internal/domain"
)

// Document field names for users/{uid}. These are the platform's wire
// names and stay camelCase regardless of API casing.
const (
	FieldUID          = "uid"
	FieldEmail        = "email"
	FieldName         = "name"
	FieldPhone        = "phone"
	FieldRole         = "role"
	FieldStatus       = "status"
	FieldAuthProvider = "authProvider"
	FieldCreatedAt    = "createdAt"
	FieldRestoredAt   = "restoredAt"
)

// FromFields decodes a users document into a Profile. Unknown or missing
// fields decode to zero values; merge-written documents may legitimately
// lack optional ones.
func FromFields(doc docstore.Fields) *domain.Profile {
	p := &domain.Profile{
		UID:          str(doc, FieldUID),
		Email:        str(doc, FieldEmail),
		Name:         str(doc, FieldName),
		Phone:        str(doc, FieldPhone),
		Role:         domain.Role(str(doc, FieldRole)),
		Status:       domain.AccountStatus(str(doc, FieldStatus)),
		AuthProvider: domain.AuthProvider(str(doc, FieldAuthProvider)),
	}
	if t, ok := timeField(doc, FieldCreatedAt); ok {
		p.CreatedAt = t
	}
	if t, ok := timeField(doc, FieldRestoredAt); ok {
		p.RestoredAt = &t
	}
	return p
}

func str(doc docstore.Fields, key string) string {
	v, _ := doc[key].(string)
	return v
}

func timeField(doc docstore.Fields, key string) (time.Time, bool) {
	switch v := doc[key].(type) {
	case time.Time:
		return v, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}
