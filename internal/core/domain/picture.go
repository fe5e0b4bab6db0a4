package domain

import "time"

// SpaceType classifies the scope a picture lives in.
type SpaceType int

const (
	SpaceTypePrivate SpaceType = 0
	SpaceTypeTeam    SpaceType = 1
)

// SupportsCollaboration reports whether pictures in this space may be edited jointly.
func (t SpaceType) SupportsCollaboration() bool {
	return t == SpaceTypeTeam
}

// Picture is the shared resource being edited. SpaceID is zero for pictures
// in the public gallery.
type Picture struct {
	ID        int64
	Name      string
	SpaceID   int64
	OwnerID   int64
	CreatedAt time.Time
}

// IsPublic reports whether the picture belongs to the public gallery rather than a space.
func (p *Picture) IsPublic() bool {
	return p.SpaceID <= 0
}

// Space is the containing scope of a picture.
type Space struct {
	ID        int64
	Name      string
	Type      SpaceType
	OwnerID   int64
	CreatedAt time.Time
}

// IsOwnedBy reports whether userID created the space.
func (s *Space) IsOwnedBy(userID int64) bool {
	return s.OwnerID == userID
}
