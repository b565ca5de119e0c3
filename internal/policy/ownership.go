package policy

import "errors"

// Ownable is implemented by every user-owned model. It enables the uniform
// ownership check all mutations run after loading a record by id.
type Ownable interface {
	GetUserID() uint
}

// ErrNotOwner is returned when a record belongs to another user. Callers
// surface it as "not found" so the existence of other tenants' records
// never leaks.
var ErrNotOwner = errors.New("not_owner")

// Authorize verifies that the record belongs to the user.
func Authorize(userID uint, resource Ownable) error {
	if resource == nil || resource.GetUserID() != userID {
		return ErrNotOwner
	}
	return nil
}
