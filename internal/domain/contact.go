package domain

// Contact is one address-book entry, unique per user by ID. Contacts are
// never shared across users.
type Contact struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Company   string `json:"company,omitempty"`
	RoleTitle string `json:"role_title,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Valid reports whether a recovered entry carries the minimal required
// fields. Used as the lenient-decode predicate for the contacts store.
func (c *Contact) Valid() bool {
	return c.ID != "" && c.Name != ""
}
