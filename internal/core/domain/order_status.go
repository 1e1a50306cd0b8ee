package domain

// AggregateStatus is the order-level status derived from its lines.
type AggregateStatus string

const (
	OrderRegistered AggregateStatus = "REGISTERED"
	OrderConfirmed  AggregateStatus = "CONFIRMED"
	OrderPartial    AggregateStatus = "PARTIAL"
	OrderComplete   AggregateStatus = "COMPLETE"
	OrderCancelled  AggregateStatus = "CANCELLED"
)

// DeriveStatus computes the aggregate status from a multiset of line statuses.
// The first matching rule wins:
//
//  1. every line CANCELLED                          -> CANCELLED
//  2. every non-cancelled line RECEIVED/FULFILLED   -> COMPLETE
//  3. some done and some REGISTERED/CONFIRMED       -> PARTIAL
//  4. some CONFIRMED, none done                     -> CONFIRMED
//  5. otherwise (including no lines)                -> REGISTERED
func DeriveStatus(statuses []LineStatus) AggregateStatus {
	if len(statuses) == 0 {
		return OrderRegistered
	}

	var cancelled, done, registered, confirmed int
	for _, s := range statuses {
		switch {
		case s == LineCancelled:
			cancelled++
		case s.IsDone():
			done++
		case s == LineConfirmed:
			confirmed++
		default:
			registered++
		}
	}

	switch {
	case cancelled == len(statuses):
		return OrderCancelled
	case done > 0 && done+cancelled == len(statuses):
		return OrderComplete
	case done > 0 && registered+confirmed > 0:
		return OrderPartial
	case confirmed > 0:
		return OrderConfirmed
	default:
		return OrderRegistered
	}
}
