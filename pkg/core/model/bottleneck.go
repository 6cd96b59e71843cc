package model

// BottleneckReason is the diagnosed cause of an unfilled requirement
type BottleneckReason string

const (
	// ReasonNoCapability means no worker in scope is trained for the service
	ReasonNoCapability BottleneckReason = "NO_CAPABILITY"

	// ReasonAllBlocked means every capable worker is unavailable for the slot
	ReasonAllBlocked BottleneckReason = "ALL_BLOCKED"

	// ReasonPairingConflict means every capable worker is blocked and the pairing
	// calendar accounts for at least one of the blocks
	ReasonPairingConflict BottleneckReason = "PAIRING_CONFLICT"

	// ReasonWorkloadExceeded means the remaining capable workers are at quota or ceiling
	ReasonWorkloadExceeded BottleneckReason = "WORKLOAD_EXCEEDED"

	// ReasonInsufficientAvailable is the generic shortage
	ReasonInsufficientAvailable BottleneckReason = "INSUFFICIENT_AVAILABLE"
)

// Bottleneck is a requirement the engine could not fully staff
type Bottleneck struct {
	Date        string           `json:"date"`
	Timeblock   Timeblock        `json:"timeblock"`
	ServiceCode string           `json:"serviceCode"`
	Team        string           `json:"team"`
	Needed      int              `json:"needed"`
	Assigned    int              `json:"assigned"`
	Shortage    int              `json:"shortage"`
	Reason      BottleneckReason `json:"reason"`
	Suggestion  string           `json:"suggestion"`
}
