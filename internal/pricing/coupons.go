package pricing

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// CouponCatalog maps coupon codes to a percentage off the subtotal.
// Codes are matched case-insensitively.
type CouponCatalog struct {
	percentOff map[string]int
}

func NewCouponCatalog(codes map[string]int) *CouponCatalog {
	normalized := make(map[string]int, len(codes))
	for code, percent := range codes {
		normalized[strings.ToUpper(strings.TrimSpace(code))] = percent
	}
	return &CouponCatalog{percentOff: normalized}
}

func DefaultCouponCatalog() *CouponCatalog {
	return NewCouponCatalog(map[string]int{
		"MASAPP10":  10,
		"MASAPP20":  20,
		"WELCOME15": 15,
	})
}

func (c *CouponCatalog) Lookup(code string) (int, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return 0, false
	}
	percent, ok := c.percentOff[code]
	return percent, ok
}

type couponFile struct {
	Coupons map[string]int `yaml:"coupons"`
}

// LoadCouponCatalog reads a YAML file of the form:
//
//	coupons:
//	  MASAPP10: 10
func LoadCouponCatalog(path string) (*CouponCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading coupon file: %w", err)
	}

	var f couponFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing coupon file: %w", err)
	}

	for code, percent := range f.Coupons {
		if percent <= 0 || percent > 100 {
			return nil, fmt.Errorf("coupon %s: percent off must be between 1 and 100, got %d", code, percent)
		}
	}

	return NewCouponCatalog(f.Coupons), nil
}
