package models

// AlertCategory identifies which threshold a security alert was raised for.
// The set is closed so the dispatcher's priority ordering can be an
// exhaustive switch rather than string comparison.
type AlertCategory int

const (
	AlertIPFlood AlertCategory = iota
	AlertAccountBruteForce
	AlertGlobalAttack
)

func (c AlertCategory) String() string {
	switch c {
	case AlertIPFlood:
		return "ip_flood"
	case AlertAccountBruteForce:
		return "account_brute_force"
	case AlertGlobalAttack:
		return "global_attack"
	default:
		return "unknown"
	}
}

// SecurityAlert is the payload handed to the notification channel when a
// failure threshold is exceeded.
type SecurityAlert struct {
	Category   AlertCategory
	Identifier string // offending IP or account email, empty for global
	Count      int    // the count that tripped the threshold
}
