package auth

import (
	"strconv"

	"github.com/hoa-ledger/apiserver/types"
)

// Kind tells which table a principal was loaded from.
type Kind int

const (
	KindUser Kind = iota + 1
	KindNeighbor
)

// Principal is an authenticated identity: either a user (admin or generic)
// or a neighbor. Exactly one of User and Neighbor is set, as told by Kind.
type Principal struct {
	Kind     Kind
	User     types.User
	Neighbor types.Neighbor
}

func UserPrincipal(user types.User) Principal {
	return Principal{Kind: KindUser, User: user}
}

func NeighborPrincipal(neighbor types.Neighbor) Principal {
	return Principal{Kind: KindNeighbor, Neighbor: neighbor}
}

// Subject is the token subject: the numeric user id or the neighbor id.
func (p Principal) Subject() string {
	if p.Kind == KindNeighbor {
		return p.Neighbor.UserID
	}
	return strconv.Itoa(p.User.ID)
}

func (p Principal) DisplayName() string {
	if p.Kind == KindNeighbor {
		return p.Neighbor.Name
	}
	return p.User.Username
}

func (p Principal) Role() string {
	if p.Kind == KindNeighbor {
		return types.RoleNeighbor
	}
	return p.User.Role
}

func (p Principal) PasswordHash() string {
	if p.Kind == KindNeighbor {
		return p.Neighbor.PasswordHash
	}
	return p.User.PasswordHash
}
