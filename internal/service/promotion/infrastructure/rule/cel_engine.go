package rule

import (
	"context"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"

	"vivero/internal/service/promotion/domain"
)

// CelEngine 用 CEL 表达式评估券的附加准入规则。
// 表达式可见变量：subtotal、item_count、categories、user_id。
// 编译结果按表达式缓存。
type CelEngine struct {
	env   *cel.Env
	mu    sync.RWMutex
	cache map[string]cel.Program
}

func NewCelEngine() (*CelEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("subtotal", cel.DoubleType),
		cel.Variable("item_count", cel.IntType),
		cel.Variable("categories", cel.ListType(cel.StringType)),
		cel.Variable("user_id", cel.StringType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create cel environment")
	}
	return &CelEngine{env: env, cache: make(map[string]cel.Program)}, nil
}

var _ domain.RuleEngine = (*CelEngine)(nil)

func (e *CelEngine) Evaluate(_ context.Context, expr string, fact domain.CartFact) (bool, error) {
	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(map[string]any{
		"subtotal":   fact.Subtotal,
		"item_count": fact.ItemCount,
		"categories": fact.Categories,
		"user_id":    fact.UserID,
	})
	if err != nil {
		return false, errors.Wrap(err, "evaluate coupon rule")
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, errors.Errorf("coupon rule %q did not evaluate to bool", expr)
	}
	return result, nil
}

func (e *CelEngine) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.cache[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrapf(issues.Err(), "compile coupon rule %q", expr)
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, errors.Wrap(err, "build coupon rule program")
	}

	e.mu.Lock()
	e.cache[expr] = prg
	e.mu.Unlock()
	return prg, nil
}
