// Package money converts between the internal 만원 (10,000 KRW) unit and
// won, and renders amounts for display. Every boundary that accepts or
// emits won goes through here so scales are never mixed.
package money

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// WonPerManwon is the scale factor between won and the internal unit.
const WonPerManwon = 10000

// ManwonPerEok is the number of 만원 in one 억.
const ManwonPerEok = 10000

var wonPerManwon = decimal.NewFromInt(WonPerManwon)

// FromWon converts won to 만원.
func FromWon(won int64) float64 {
	f, _ := decimal.NewFromInt(won).Div(wonPerManwon).Float64()
	return f
}

// Round rounds a 만원 amount half away from zero.
func Round(manwon float64) int64 {
	return decimal.NewFromFloat(manwon).Round(0).IntPart()
}

// Percent renders a ratio as a percentage with one decimal place.
func Percent(ratio float64) float64 {
	f, _ := decimal.NewFromFloat(ratio).Mul(decimal.NewFromInt(100)).Round(1).Float64()
	return f
}

// FormatManwon renders a 만원 amount in 억/만원 notation, e.g.
// 35000 -> "3억 5,000만원", 7000 -> "7,000만원", 30000 -> "3억원".
func FormatManwon(manwon float64) string {
	total := Round(manwon)
	if total == 0 {
		return "0원"
	}
	sign := ""
	if total < 0 {
		sign = "-"
		total = -total
	}
	eok, rest := total/ManwonPerEok, total%ManwonPerEok

	var b strings.Builder
	b.WriteString(sign)
	switch {
	case eok > 0 && rest > 0:
		b.WriteString(group(eok))
		b.WriteString("억 ")
		b.WriteString(group(rest))
		b.WriteString("만원")
	case eok > 0:
		b.WriteString(group(eok))
		b.WriteString("억원")
	default:
		b.WriteString(group(rest))
		b.WriteString("만원")
	}
	return b.String()
}

// group inserts thousands separators.
func group(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
