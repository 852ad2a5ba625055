// Package errs 定义贯穿各业务域的错误分类。
// 分类在领域层产生，HTTP 状态码映射只发生在 interfaces 层。
package errs

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// FieldIssue 单项校验失败，机器可读。
type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError 输入或业务前置条件不满足，整体拒绝，无副作用。
type ValidationError struct {
	Msg    string
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return e.Msg
	}
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", is.Field, is.Reason))
	}
	return fmt.Sprintf("%s: %s", e.Msg, strings.Join(parts, "; "))
}

func NewValidation(msg string, issues ...FieldIssue) *ValidationError {
	return &ValidationError{Msg: msg, Issues: issues}
}

// ConflictError 并发竞争或唯一性约束落败，可重试读到新状态。
type ConflictError struct {
	Resource string
	Reason   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", e.Resource, e.Reason)
}

func NewConflict(resource, reason string) *ConflictError {
	return &ConflictError{Resource: resource, Reason: reason}
}

// NotFoundError 资源不存在。
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// Shortfall 单个商品的缺口明细。
type Shortfall struct {
	ProductID string `json:"product_id"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

// InsufficientStockError 库存守卫拒绝写入，逐项列出缺口。
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("%s need %d have %d", s.ProductID, s.Required, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// InvalidStateTransitionError 状态机白名单之外的迁移，绝不强转。
type InvalidStateTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("%s cannot transition from %s to %s", e.Entity, e.From, e.To)
}

// ExternalDependencyError 下游依赖（支付、通知、渲染）失败，
// 永远不回滚已确认的订单。
type ExternalDependencyError struct {
	Dependency string
	Err        error
}

func (e *ExternalDependencyError) Error() string {
	return fmt.Sprintf("external dependency %s failed: %v", e.Dependency, e.Err)
}

func (e *ExternalDependencyError) Unwrap() error { return e.Err }

func NewExternal(dependency string, err error) *ExternalDependencyError {
	return &ExternalDependencyError{Dependency: dependency, Err: err}
}

// 分类判断辅助，供 interfaces 层做状态码映射。

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}

func IsInvalidTransition(err error) bool {
	var target *InvalidStateTransitionError
	return errors.As(err, &target)
}

func IsExternal(err error) bool {
	var target *ExternalDependencyError
	return errors.As(err, &target)
}
