package domain

// Address identifies a participant or a deployed issuer. The zero value is
// never a valid identity.
type Address string

func (a Address) IsZero() bool {
	return a == ""
}

func (a Address) String() string {
	return string(a)
}
