package domain

import "fmt"

type ResourceKind string

const (
	ResourceMaterial ResourceKind = "material"
	ResourceWorker   ResourceKind = "worker"
	ResourceVehicle  ResourceKind = "vehicle"
	ResourceTeam     ResourceKind = "team"
)

// ValidResourceKinds is the canonical set of accepted resource kind strings.
var ValidResourceKinds = map[string]bool{
	"material": true, "worker": true, "vehicle": true, "team": true,
}

// ParseResourceKind converts a string into a ResourceKind.
func ParseResourceKind(s string) (ResourceKind, error) {
	if !ValidResourceKinds[s] {
		return "", Validationf("unknown resource kind %q (material|worker|vehicle|team)", s)
	}
	return ResourceKind(s), nil
}

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressPaused     ProgressStatus = "paused"
	ProgressCompleted  ProgressStatus = "completed"
)

// progressTransitions lists the allowed forward moves out of each status.
// Completed is terminal.
var progressTransitions = map[ProgressStatus][]ProgressStatus{
	ProgressNotStarted: {ProgressInProgress},
	ProgressInProgress: {ProgressPaused, ProgressCompleted},
	ProgressPaused:     {ProgressInProgress},
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Staying in the same status is always allowed.
func (s ProgressStatus) CanTransitionTo(next ProgressStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range progressTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseProgressStatus converts a string into a ProgressStatus.
func ParseProgressStatus(s string) (ProgressStatus, error) {
	switch ProgressStatus(s) {
	case ProgressNotStarted, ProgressInProgress, ProgressPaused, ProgressCompleted:
		return ProgressStatus(s), nil
	}
	return "", Validationf("unknown progress status %q", s)
}

type TransferKind string

const (
	TransferAllocation   TransferKind = "allocation"
	TransferMobilization TransferKind = "mobilization"
)

// ParseTransferKind converts a string into a TransferKind.
func ParseTransferKind(s string) (TransferKind, error) {
	switch TransferKind(s) {
	case TransferAllocation, TransferMobilization:
		return TransferKind(s), nil
	}
	return "", Validationf("unknown transfer kind %q (allocation|mobilization)", s)
}

type TransferStatus string

const (
	TransferDraft    TransferStatus = "draft"
	TransferPending  TransferStatus = "pending"
	TransferApproved TransferStatus = "approved"
	TransferRejected TransferStatus = "rejected"
)

// Terminal reports whether no transition can leave the status.
func (s TransferStatus) Terminal() bool {
	return s == TransferApproved || s == TransferRejected
}

type TransferPriority string

const (
	PriorityLow    TransferPriority = "low"
	PriorityNormal TransferPriority = "normal"
	PriorityHigh   TransferPriority = "high"
	PriorityUrgent TransferPriority = "urgent"
)

// ParseTransferPriority converts a string into a TransferPriority.
// The empty string maps to PriorityNormal.
func ParseTransferPriority(s string) (TransferPriority, error) {
	switch TransferPriority(s) {
	case "":
		return PriorityNormal, nil
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return TransferPriority(s), nil
	}
	return "", fmt.Errorf("%w: unknown priority %q", ErrValidation, s)
}

// DefaultRequestType is recorded when a transfer request names no type.
const DefaultRequestType = "standard"
