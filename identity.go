package portal

// DefaultProfileName is the display name given to accounts registered
// without one.
const DefaultProfileName = "New User"

// Identity is the authenticated user as the rest of the portal sees it:
// the provider identifier merged with the stored profile record.
type Identity struct {
	ID      string
	Email   string
	Name    string
	Role    Role
	Phone   string
	Address string
	City    string
	State   string
	ZipCode string
}

// NewIdentity merges a provider identifier with its profile record.
func NewIdentity(providerID string, record *Profile) Identity {
	identity := Identity{
		ID:   providerID,
		Name: DefaultProfileName,
	}

	if record == nil {
		return identity
	}

	identity.Email = record.Email
	identity.Role = record.Role
	identity.Phone = record.Phone
	identity.Address = record.Address
	identity.City = record.City
	identity.State = record.State
	identity.ZipCode = record.ZipCode

	if record.Name != "" {
		identity.Name = record.Name
	}

	return identity
}
