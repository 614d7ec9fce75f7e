package session

// Action is a user action a view may offer.
type Action string

const (
	ActionBrowse        Action = "browse"
	ActionMint          Action = "mint"
	ActionEdit          Action = "edit"
	ActionPurchase      Action = "purchase"
	ActionConnectWallet Action = "connectWallet"
	ActionEditProfile   Action = "editProfile"
	ActionLogout        Action = "logout"
)

// Allowed reports whether action is available in the current state. Edit and
// purchase also depend on the item, see CanEdit and CanPurchase.
func (s *Session) Allowed(action Action) bool {
	if action == ActionBrowse {
		return true
	}
	return s.State() == Authenticated
}

// CanEdit reports whether the current identity owns the item.
func (s *Session) CanEdit(ownerID string) bool {
	current, ok := s.Current()
	return ok && ownerID != "" && current.ID == ownerID
}

// CanPurchase reports whether the current identity may buy an item owned by ownerID.
func (s *Session) CanPurchase(ownerID string) bool {
	current, ok := s.Current()
	return ok && ownerID != "" && current.ID != ownerID
}
