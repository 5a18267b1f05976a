package domain

// TagStatus is the severity of one classified metric observation.
type TagStatus string

const (
	TagGreen  TagStatus = "GREEN"
	TagYellow TagStatus = "YELLOW"
	TagRed    TagStatus = "RED"
)

// Tag categories. The scoring engine emits exactly one tag per category for
// every run; tags are evidence and are never silently discarded.
const (
	CategoryActivity      = "volume_activity"
	CategoryAcceleration  = "volume_acceleration"
	CategoryHoneypot      = "honeypot"
	CategoryVerification  = "contract_verification"
	CategoryTax           = "tax_levels"
	CategoryLPLock        = "lp_lock"
	CategoryConcentration = "holder_concentration"
)

// TokenTag is one classified metric observation with a severity status.
type TokenTag struct {
	Name      string
	Category  string
	Status    TagStatus
	Value     string // observed value, formatted for display
	Threshold string // threshold description the value was checked against
	Reasoning string
	Weight    float64 // [0, 1], contribution to the additive final score
}
