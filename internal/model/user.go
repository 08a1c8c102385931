package model

// OrgMembership is a person's standing within one organization.
type OrgMembership struct {
	Groups []string `json:"groups"`
	Role   string   `json:"role"`
}

// Person is one roster entry. A person may belong to several organizations
// and several groups within each.
type Person struct {
	ID            ID                       `json:"_id"`
	FullName      string                   `json:"full_name"`
	Organizations map[string]OrgMembership `json:"organizations,omitempty"`
}

// Groups returns the person's group list for an organization, empty when the
// person has no membership record there.
func (p Person) Groups(org string) []string {
	return p.Organizations[org].Groups
}

// Roster maps organization name to its members, as returned by the backend's
// list_my_org_users endpoint.
type Roster map[string][]Person

// User is the authenticated dashboard user, which the backend models as a
// person record.
type User = Person

var editorRoles = map[string]bool{
	"teacher":     true,
	"rabtteacher": true,
	"admin":       true,
	"helper":      true,
}

// RoleIn returns the user's role in an organization, "member" when unknown.
func (p Person) RoleIn(org string) string {
	if m, ok := p.Organizations[org]; ok && m.Role != "" {
		return m.Role
	}
	return "member"
}

// CanEditIn reports whether the user holds an editor role in the organization.
func (p Person) CanEditIn(org string) bool {
	return editorRoles[p.RoleIn(org)]
}

// HasEditorRole reports whether the user holds an editor role anywhere.
func (p Person) HasEditorRole() bool {
	for org := range p.Organizations {
		if p.CanEditIn(org) {
			return true
		}
	}
	return false
}
