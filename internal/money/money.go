// Package money 处理金额在十进制表示与最小单位整数之间的换算
package money

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var maxUnits = decimal.NewFromInt(math.MaxInt64)

// Registry 支持的币种及其小数位数
type Registry struct {
	decimals map[string]int32
}

func NewRegistry(decimals map[string]int32) *Registry {
	m := make(map[string]int32, len(decimals))
	for code, d := range decimals {
		m[strings.ToUpper(code)] = d
	}
	return &Registry{decimals: m}
}

// Supports 币种是否受支持
func (r *Registry) Supports(code string) bool {
	_, ok := r.decimals[code]
	return ok
}

func (r *Registry) Decimals(code string) (int32, bool) {
	d, ok := r.decimals[code]
	return d, ok
}

// Codes 已排序的币种列表
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.decimals))
	for code := range r.decimals {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// ToUnits 十进制金额转换为最小单位
func (r *Registry) ToUnits(code string, amount decimal.Decimal) (int64, error) {
	d, ok := r.decimals[code]
	if !ok {
		return 0, fmt.Errorf("unsupported currency %q", code)
	}
	shifted := amount.Shift(d)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", amount.String(), d)
	}
	if shifted.Abs().GreaterThan(maxUnits) {
		return 0, fmt.Errorf("amount %s is out of range", amount.String())
	}
	return shifted.IntPart(), nil
}

// FromUnits 最小单位转换为十进制金额
func (r *Registry) FromUnits(code string, units int64) decimal.Decimal {
	d, ok := r.decimals[code]
	if !ok {
		return decimal.NewFromInt(units)
	}
	return decimal.New(units, -d)
}

// Format 金额的展示字符串，例如 "12.5 USDC"
func (r *Registry) Format(code string, units int64) string {
	return r.FromUnits(code, units).String() + " " + code
}
