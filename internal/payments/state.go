package payments

import (
	"github.com/shopcore-io/shopcore-backend/pkg/enums"
	pkgerrors "github.com/shopcore-io/shopcore-backend/pkg/errors"
)

// forwardRank orders the settlement path. Events targeting a rank at or
// below the payment's current rank are stale deliveries, not errors.
var forwardRank = map[enums.PaymentStatus]int{
	enums.PaymentStatusPending:    1,
	enums.PaymentStatusProcessing: 2,
	enums.PaymentStatusCompleted:  3,
}

// gatewayToPayment normalizes gateway statuses onto payment statuses.
var gatewayToPayment = map[enums.GatewayStatus]enums.PaymentStatus{
	enums.GatewayStatusPending:    enums.PaymentStatusPending,
	enums.GatewayStatusProcessing: enums.PaymentStatusProcessing,
	enums.GatewayStatusSuccess:    enums.PaymentStatusCompleted,
	enums.GatewayStatusFailed:     enums.PaymentStatusFailed,
	enums.GatewayStatusRefunded:   enums.PaymentStatusRefunded,
}

type transitionAction int

const (
	actionApply transitionAction = iota
	actionNoop
	actionReject
)

// decide classifies a requested payment transition.
func decide(current, target enums.PaymentStatus) transitionAction {
	if current == target {
		return actionNoop
	}

	currentRank, currentOnPath := forwardRank[current]
	targetRank, targetOnPath := forwardRank[target]
	if currentOnPath && targetOnPath {
		if targetRank > currentRank {
			return actionApply
		}
		return actionNoop
	}

	switch target {
	case enums.PaymentStatusFailed:
		// A failure event arriving after settlement is stale gateway noise.
		if currentOnPath && current != enums.PaymentStatusCompleted {
			return actionApply
		}
		return actionNoop
	case enums.PaymentStatusRefunded, enums.PaymentStatusCancelled:
		if current == enums.PaymentStatusCompleted {
			return actionApply
		}
		return actionReject
	}

	// current is terminal (failed/refunded/cancelled) and target is on the
	// forward path; that cannot be a late duplicate of anything valid.
	return actionReject
}

func paymentTransitionError(current, target enums.PaymentStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "payment transition disallowed").
		WithDetails(map[string]any{"from": current.String(), "to": target.String()})
}
