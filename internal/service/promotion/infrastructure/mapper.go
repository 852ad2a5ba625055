package infrastructure

import (
	"encoding/json"

	"vivero/internal/service/promotion/domain"
)

func toDomainCoupon(m *CouponModel) *domain.Coupon {
	var categories []string
	if m.Categories != "" {
		_ = json.Unmarshal([]byte(m.Categories), &categories)
	}
	return &domain.Coupon{
		ID:             m.ID,
		Code:           m.Code,
		Active:         m.Active,
		StartsAt:       m.StartsAt,
		EndsAt:         m.EndsAt,
		Type:           domain.CouponType(m.Type),
		Value:          m.Value,
		MaxDiscount:    m.MaxDiscount,
		MinSubtotal:    m.MinSubtotal,
		Categories:     categories,
		RuleDefinition: m.RuleDefinition,
		MaxUses:        m.MaxUses,
		MaxUsesPerUser: m.MaxUsesPerUser,
		TimesUsed:      m.TimesUsed,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
