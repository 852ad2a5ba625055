package domain

import "context"

// CartFact 规则引擎可见的购物车事实。
type CartFact struct {
	UserID     string
	Subtotal   float64
	ItemCount  int
	Categories []string
}

// RuleEngine 券的附加准入规则。表达式为空时直接放行。
type RuleEngine interface {
	Evaluate(ctx context.Context, expr string, fact CartFact) (bool, error)
}
