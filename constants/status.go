package constants

// IngestState is the state of one ingestion attempt.
type IngestState string

// Stable values; logged and exported as metric labels.
const (
	IngestReceived    IngestState = "received"
	IngestExtracting  IngestState = "extracting"
	IngestSegmenting  IngestState = "segmenting"
	IngestComparing   IngestState = "comparing"
	IngestNormalizing IngestState = "normalizing"
	IngestCommitted   IngestState = "committed"
	IngestFailed      IngestState = "failed"
)

// ChangeStatus is the review state of a change record.
type ChangeStatus string

const (
	ChangeStatusPending     ChangeStatus = "pending"
	ChangeStatusRelevant    ChangeStatus = "relevant"
	ChangeStatusNotRelevant ChangeStatus = "not-relevant"
)

var changeStatuses = []ChangeStatus{ChangeStatusPending, ChangeStatusRelevant, ChangeStatusNotRelevant}

// ChangeStatuses returns the review vocabulary as strings.
func ChangeStatuses() []string {
	out := make([]string, len(changeStatuses))
	for i, s := range changeStatuses {
		out[i] = string(s)
	}
	return out
}

// ParseChangeStatus accepts a review status, ignoring case and surrounding space.
func ParseChangeStatus(s string) (ChangeStatus, bool) {
	for _, cs := range changeStatuses {
		if equalFold(s, string(cs)) {
			return cs, true
		}
	}
	return "", false
}

// RegulationStatus is the workflow state of a whole regulation.
type RegulationStatus string

const (
	RegulationStatusPending   RegulationStatus = "pending"
	RegulationStatusValidated RegulationStatus = "validated"
)

// ParseRegulationStatus accepts pending or validated.
func ParseRegulationStatus(s string) (RegulationStatus, bool) {
	switch {
	case equalFold(s, string(RegulationStatusPending)):
		return RegulationStatusPending, true
	case equalFold(s, string(RegulationStatusValidated)):
		return RegulationStatusValidated, true
	}
	return "", false
}

// Role is a user role.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole accepts admin or user.
func ParseRole(s string) (Role, bool) {
	switch {
	case equalFold(s, string(RoleAdmin)):
		return RoleAdmin, true
	case equalFold(s, string(RoleUser)):
		return RoleUser, true
	}
	return "", false
}
