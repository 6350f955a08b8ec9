package anticheat

// Reason identifies why a submission was rejected. The zero value means accepted.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonGPSCooldown        Reason = "GPS_COOLDOWN"
	ReasonLocationTooClose   Reason = "LOCATION_TOO_CLOSE"
	ReasonSubtypeAlreadyUsed Reason = "SUBTYPE_ALREADY_USED"
	ReasonDailyLimitReached  Reason = "DAILY_LIMIT_REACHED"
	ReasonSuspiciousMovement Reason = "SUSPICIOUS_MOVEMENT"
)

// Reasons lists every rejection reason in check order
func Reasons() []Reason {
	return []Reason{
		ReasonGPSCooldown,
		ReasonLocationTooClose,
		ReasonSubtypeAlreadyUsed,
		ReasonDailyLimitReached,
		ReasonSuspiciousMovement,
	}
}

// Message returns the user-facing text for the reason
func (r Reason) Message() string {
	switch r {
	case ReasonNone:
		return "Disposal accepted"
	case ReasonGPSCooldown:
		return "Please wait before submitting another disposal"
	case ReasonLocationTooClose:
		return "Move to a different location before your next disposal"
	case ReasonSubtypeAlreadyUsed:
		return "You already recorded this type of waste today"
	case ReasonDailyLimitReached:
		return "Daily disposal limit reached, come back tomorrow"
	case ReasonSuspiciousMovement:
		return "Movement between disposals looks unrealistic"
	default:
		return "Disposal rejected"
	}
}

func (r Reason) String() string {
	if r == ReasonNone {
		return "ACCEPTED"
	}
	return string(r)
}
