package application

import (
	"context"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"vivero/internal/errs"
	"vivero/internal/pkg/logger"
	"vivero/internal/service/promotion/domain"
)

// CartLine 参与折扣计算的一行商品。
type CartLine struct {
	ProductID string
	Category  string
	Qty       int
	UnitPrice float64
}

// ResolveInput 解析请求。Subtotal 必须是刷新过的当前小计。
type ResolveInput struct {
	UserID   string
	Lines    []CartLine
	Subtotal float64
	Codes    []string
}

// AppliedCoupon 生效的券及其折扣额。
type AppliedCoupon struct {
	CouponID string  `json:"coupon_id"`
	Code     string  `json:"code"`
	Discount float64 `json:"discount"`
}

// SkippedCoupon 被跳过的券及机器可读原因。
type SkippedCoupon struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Resolution 解析结果。无效券不报错，只进 Skipped。
type Resolution struct {
	Applied       []AppliedCoupon
	Skipped       []SkippedCoupon
	TotalDiscount float64
}

// Resolver 优惠券解析与核销。
type Resolver struct {
	coupons domain.CouponRepository
	usages  domain.UsageRepository
	rules   domain.RuleEngine
	tracer  trace.Tracer
}

func NewResolver(coupons domain.CouponRepository, usages domain.UsageRepository, rules domain.RuleEngine, tracer trace.Tracer) *Resolver {
	return &Resolver{coupons: coupons, usages: usages, rules: rules, tracer: tracer}
}

// Resolve 逐个校验券码并计算折扣。无效码静默跳过并记录原因，
// 折扣总额不超过小计。
func (r *Resolver) Resolve(ctx context.Context, in ResolveInput) (*Resolution, error) {
	ctx, span := r.tracer.Start(ctx, "promotion.Resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", in.UserID),
		attribute.Int("code_count", len(in.Codes)),
	)

	now := time.Now()
	resolution := &Resolution{}
	seen := make(map[string]bool, len(in.Codes))

	for _, code := range in.Codes {
		if seen[code] {
			resolution.Skipped = append(resolution.Skipped, SkippedCoupon{Code: code, Reason: domain.SkipDuplicate})
			continue
		}
		seen[code] = true

		coupon, err := r.coupons.FindByCode(ctx, code)
		if err != nil {
			if errs.IsNotFound(err) {
				resolution.Skipped = append(resolution.Skipped, SkippedCoupon{Code: code, Reason: domain.SkipNotFound})
				continue
			}
			span.RecordError(err)
			return nil, err
		}

		userUses, err := r.usages.CountFor(ctx, coupon.ID, in.UserID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if reason := coupon.ValidateAt(now, in.Subtotal, userUses); reason != "" {
			resolution.Skipped = append(resolution.Skipped, SkippedCoupon{Code: code, Reason: reason})
			continue
		}

		if coupon.RuleDefinition != "" {
			ok, err := r.rules.Evaluate(ctx, coupon.RuleDefinition, factFrom(in))
			if err != nil {
				logger.Ctx(ctx).Warn().Err(err).Str("code", code).Msg("coupon rule evaluation failed")
				resolution.Skipped = append(resolution.Skipped, SkippedCoupon{Code: code, Reason: domain.SkipRuleError})
				continue
			}
			if !ok {
				resolution.Skipped = append(resolution.Skipped, SkippedCoupon{Code: code, Reason: domain.SkipRuleRejected})
				continue
			}
		}

		eligible := eligibleAmount(coupon, in.Lines)
		if eligible <= 0 {
			resolution.Skipped = append(resolution.Skipped, SkippedCoupon{Code: code, Reason: domain.SkipNoEligibleItems})
			continue
		}
		discount := coupon.Discount(eligible)
		resolution.Applied = append(resolution.Applied, AppliedCoupon{
			CouponID: coupon.ID,
			Code:     coupon.Code,
			Discount: discount,
		})
		resolution.TotalDiscount += discount
	}

	resolution.TotalDiscount = math.Min(resolution.TotalDiscount, in.Subtotal)
	span.SetAttributes(
		attribute.Int("applied", len(resolution.Applied)),
		attribute.Int("skipped", len(resolution.Skipped)),
		attribute.Float64("total_discount", resolution.TotalDiscount),
	)
	return resolution, nil
}

// Consume 在订单确认事务里核销已解析的券：守卫式全局加一，
// 锁行后单人加一。任何一个守卫落败都报冲突，由调用方回滚整单，
// 两个并发结算绝不会把单次券各核销一次。
func (r *Resolver) Consume(ctx context.Context, resolution *Resolution, userID string) error {
	ctx, span := r.tracer.Start(ctx, "promotion.Consume")
	defer span.End()

	for _, applied := range resolution.Applied {
		ok, err := r.coupons.IncrementUsesGuarded(ctx, applied.CouponID)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if !ok {
			return errs.NewConflict("coupon", "coupon "+applied.Code+" is no longer available")
		}
		coupon, err := r.coupons.FindByCode(ctx, applied.Code)
		if err != nil {
			span.RecordError(err)
			return err
		}
		ok, err = r.usages.IncrementLocked(ctx, applied.CouponID, userID, coupon.MaxUsesPerUser)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if !ok {
			return errs.NewConflict("coupon", "per-user limit reached for coupon "+applied.Code)
		}
	}
	return nil
}

// Unconsume 补偿：回退全局与单人用量。尽力而为，错误只记日志。
func (r *Resolver) Unconsume(ctx context.Context, resolution *Resolution, userID string) {
	ctx, span := r.tracer.Start(ctx, "promotion.Unconsume")
	defer span.End()

	for _, applied := range resolution.Applied {
		if err := r.coupons.DecrementUses(ctx, applied.CouponID); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("code", applied.Code).Msg("failed to revert coupon uses")
		}
		if err := r.usages.Decrement(ctx, applied.CouponID, userID); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("code", applied.Code).Msg("failed to revert coupon usage")
		}
	}
}

func eligibleAmount(coupon *domain.Coupon, lines []CartLine) float64 {
	var sum float64
	for _, line := range lines {
		if coupon.AppliesToCategory(line.Category) {
			sum += line.UnitPrice * float64(line.Qty)
		}
	}
	return sum
}

func factFrom(in ResolveInput) domain.CartFact {
	categories := make([]string, 0, len(in.Lines))
	seen := make(map[string]bool)
	itemCount := 0
	for _, line := range in.Lines {
		itemCount += line.Qty
		if !seen[line.Category] {
			seen[line.Category] = true
			categories = append(categories, line.Category)
		}
	}
	return domain.CartFact{
		UserID:     in.UserID,
		Subtotal:   in.Subtotal,
		ItemCount:  itemCount,
		Categories: categories,
	}
}
