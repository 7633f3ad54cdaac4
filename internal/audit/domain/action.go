package domain

// Action is the closed set of audited operations.
type Action string

const (
	ActionCreate                  Action = "create"
	ActionUpdate                  Action = "update"
	ActionDelete                  Action = "delete"
	ActionView                    Action = "view"
	ActionLogin                   Action = "login"
	ActionLogout                  Action = "logout"
	ActionExport                  Action = "export"
	ActionImport                  Action = "import"
	ActionConsultationGatePassed  Action = "consultation_gate_passed"
	ActionConsultationGateBlocked Action = "consultation_gate_blocked"
	ActionMFAEnabled              Action = "mfa_enabled"
	ActionMFADisabled             Action = "mfa_disabled"
	ActionMFAVerified             Action = "mfa_verified"
	ActionMFAFailed               Action = "mfa_failed"
	ActionKeyRotation             Action = "key_rotation"
)

var actions = []Action{
	ActionCreate,
	ActionUpdate,
	ActionDelete,
	ActionView,
	ActionLogin,
	ActionLogout,
	ActionExport,
	ActionImport,
	ActionConsultationGatePassed,
	ActionConsultationGateBlocked,
	ActionMFAEnabled,
	ActionMFADisabled,
	ActionMFAVerified,
	ActionMFAFailed,
	ActionKeyRotation,
}

// AllActions returns every valid action in declaration order.
func AllActions() []Action {
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

// Valid reports whether a is one of the declared actions.
func (a Action) Valid() bool {
	for _, known := range actions {
		if a == known {
			return true
		}
	}
	return false
}

// ParseAction validates s as an Action.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return "", ErrInvalidAction
	}
	return a, nil
}
