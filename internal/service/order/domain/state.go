package domain

// State 订单状态。迁移只认白名单，绝不强转。
type State string

const (
	StatePending    State = "pending"
	StateConfirmed  State = "confirmed"
	StateProcessing State = "processing"
	StatePacked     State = "packed"
	StateShipped    State = "shipped"
	StateInTransit  State = "in_transit"
	StateDelivered  State = "delivered"
	StateCancelled  State = "cancelled"
	StateReturned   State = "returned"
)

// validNext 白名单：正向链逐级推进，交付前任一状态可取消，
// 已交付只能退货。cancelled 与 returned 是终态。
var validNext = map[State]map[State]bool{
	StatePending:    {StateConfirmed: true, StateCancelled: true},
	StateConfirmed:  {StateProcessing: true, StateCancelled: true},
	StateProcessing: {StatePacked: true, StateCancelled: true},
	StatePacked:     {StateShipped: true, StateCancelled: true},
	StateShipped:    {StateInTransit: true, StateCancelled: true},
	StateInTransit:  {StateDelivered: true, StateCancelled: true},
	StateDelivered:  {StateReturned: true},
	StateCancelled:  {},
	StateReturned:   {},
}

// CanTransition 迁移是否被允许。
func CanTransition(from, to State) bool {
	return validNext[from][to]
}

// IsTerminal 是否终态。
func IsTerminal(s State) bool {
	return len(validNext[s]) == 0
}

// Valid 是否已知状态。
func (s State) Valid() bool {
	_, ok := validNext[s]
	return ok
}
