package enums

// AccessSource identifies how a grant or entitlement decision was obtained.
type AccessSource string

const (
	AccessSourceCode  AccessSource = "code"
	AccessSourceAdmin AccessSource = "admin"
	AccessSourceFree  AccessSource = "free"

	// AccessSourceVideoCode is a derived reporting value for video-level
	// entitlement satisfied by a code-sourced grant. It is never persisted.
	AccessSourceVideoCode AccessSource = "video_code"
)

var validAccessSources = []AccessSource{
	AccessSourceCode,
	AccessSourceAdmin,
	AccessSourceFree,
}

// String implements fmt.Stringer.
func (s AccessSource) String() string {
	return string(s)
}

// IsValid reports whether the value is a persistable AccessSource.
func (s AccessSource) IsValid() bool {
	for _, candidate := range validAccessSources {
		if candidate == s {
			return true
		}
	}
	return false
}
