package types

type TenantId string

func (t TenantId) String() string {
	return string(t)
}

type UserId string

func (u UserId) String() string {
	return string(u)
}

// SiteStatus tracks where a tenant is in its provisioning lifecycle. Provisioning
// is asynchronous, so callers poll this instead of waiting on the request.
type SiteStatus string

const (
	SiteStatusProvisioning SiteStatus = "provisioning"
	SiteStatusReady        SiteStatus = "ready"
	SiteStatusPending      SiteStatus = "pending"
	SiteStatusError        SiteStatus = "error"
)

// IndexType enumerates the column types a catalog index declaration may request.
type IndexType string

const (
	IndexTypeString     IndexType = "string"
	IndexTypeInt        IndexType = "int"
	IndexTypeBool       IndexType = "bool"
	IndexTypeDate       IndexType = "date"
	IndexTypeUUID       IndexType = "uuid"
	IndexTypeStringList IndexType = "string_list"
	IndexTypeUUIDList   IndexType = "uuid_list"
	IndexTypeFullText   IndexType = "text"
)

const (
	// DefaultFieldset is the fieldset every resolved schema starts from.
	DefaultFieldset = "default"
	// RootDocumentName is the sentinel file name for the tenant's root document.
	RootDocumentName = "_root"
)

// Reserved account ids that are never treated as a tenant's primary user.
const (
	SystemUserAdmin     = "admin"
	SystemUserSystem    = "system"
	SystemUserAnonymous = "anonymous"
)

func IsSystemUser(id UserId) bool {
	switch string(id) {
	case SystemUserAdmin, SystemUserSystem, SystemUserAnonymous:
		return true
	}
	return false
}
