// Package rules holds the per-record detection rules. Each rule is a pure
// function of one or more input streams plus the product catalog and the
// configured thresholds, and returns zero or more detections.
package rules

import (
	"shelfguard/internal/config"
	"shelfguard/internal/model"
	"shelfguard/internal/risk"
)

type Set struct {
	cfg      config.RulesConfig
	fraud    risk.Ladder
	ops      risk.Ladder
	products map[string]model.Product
}

func New(cfg config.RulesConfig, products map[string]model.Product) *Set {
	return &Set{
		cfg:      cfg,
		fraud:    risk.Ladder{High: cfg.FraudSeverity.High, Medium: cfg.FraudSeverity.Medium},
		ops:      risk.Ladder{High: cfg.OpsSeverity.High, Medium: cfg.OpsSeverity.Medium},
		products: products,
	}
}

func (s *Set) product(sku string) (model.Product, bool) {
	p, ok := s.products[sku]
	return p, ok
}

// price returns the catalog price for a SKU, or ok=false when the SKU is
// unknown. Unknown SKUs contribute a zero price factor, never an error.
func (s *Set) price(sku string) (float64, bool) {
	if p, ok := s.products[sku]; ok {
		return p.Price, true
	}
	return 0, false
}
