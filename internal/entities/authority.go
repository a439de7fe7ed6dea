package entities

import "strconv"

// AuthorityID is a user's role. Higher values carry more privileges.
type AuthorityID uint

const (
	AuthorityGuest  AuthorityID = 1
	AuthorityMember AuthorityID = 2
	AuthorityAdmin  AuthorityID = 3
)

var AllAuthorities = []AuthorityID{AuthorityGuest, AuthorityMember, AuthorityAdmin}

func (a AuthorityID) Name() string {
	switch a {
	case AuthorityGuest:
		return "guest"
	case AuthorityMember:
		return "member"
	case AuthorityAdmin:
		return "admin"
	default:
		return ""
	}
}

func (a AuthorityID) Valid() bool {
	return a.Name() != ""
}

func (a AuthorityID) String() string {
	if name := a.Name(); name != "" {
		return name
	}
	return "authority(" + strconv.FormatUint(uint64(a), 10) + ")"
}

type Authority struct {
	ID   AuthorityID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name string      `gorm:"uniqueIndex;size:50;not null" json:"name"`
}

func (Authority) TableName() string {
	return "authorities"
}
