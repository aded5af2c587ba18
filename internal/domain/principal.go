package domain

// Principal identifies an account: a campaign creator or beneficiary, a contributor,
// a member or the admin.
type Principal string

// NoPrincipal is the null sentinel. A cancelled campaign has its creator cleared to it.
const NoPrincipal Principal = ""

// IsZero reports whether p is the null sentinel
func (p Principal) IsZero() bool {
	return p == NoPrincipal
}

func (p Principal) String() string {
	return string(p)
}
