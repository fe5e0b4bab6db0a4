package domain

// SpaceRole is the role a member holds inside a team space.
type SpaceRole string

const (
	SpaceRoleViewer SpaceRole = "viewer"
	SpaceRoleEditor SpaceRole = "editor"
	SpaceRoleAdmin  SpaceRole = "admin"
)

// Capabilities granted inside a space.
const (
	PermSpaceUserManage = "spaceUser:manage"
	PermPictureView     = "picture:view"
	PermPictureUpload   = "picture:upload"
	PermPictureEdit     = "picture:edit"
	PermPictureDelete   = "picture:delete"
)

// CapabilitySet is the set of permissions a caller holds for one scope.
type CapabilitySet []string

// Has reports whether the set contains the permission.
func (c CapabilitySet) Has(permission string) bool {
	for _, p := range c {
		if p == permission {
			return true
		}
	}
	return false
}
