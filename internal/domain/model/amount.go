package model

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrAmountOverflow = errors.New("amount too large")
)

// ParseAmount は "12", "12.5", "12.50" のような10進文字列を
// 小数2桁の最小単位（例: セント）に変換する。負数と3桁以上の小数は不可。
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" || (hasDot && (frac == "" || len(frac) > 2)) {
		return 0, ErrInvalidAmount
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, ErrInvalidAmount
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}

	for len(frac) < 2 {
		frac += "0"
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}

	if w > (1<<62)/100 {
		return 0, ErrInvalidAmount
	}
	return w*100 + f, nil
}

// FormatAmount は ParseAmount の逆。
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	frac := strconv.FormatInt(minor%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	return sign + strconv.FormatInt(minor/100, 10) + "." + frac
}

// MulAmount は単価×数量（どちらも0以上）。int64に収まらなければ ErrAmountOverflow。
func MulAmount(unit, qty int64) (int64, error) {
	if unit < 0 || qty < 0 {
		return 0, ErrInvalidAmount
	}
	if unit != 0 && qty > math.MaxInt64/unit {
		return 0, ErrAmountOverflow
	}
	return unit * qty, nil
}

// AddAmount は0以上の値同士の和。
func AddAmount(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, ErrInvalidAmount
	}
	if a > math.MaxInt64-b {
		return 0, ErrAmountOverflow
	}
	return a + b, nil
}

// ParseStock は QUANTITY 属性値（0以上の整数）を読む。
func ParseStock(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if !isDigits(s) || s == "" {
		return 0, ErrInvalidAmount
	}
	return strconv.ParseInt(s, 10, 64)
}

// FormatStock は在庫値を属性値の文字列にする。
func FormatStock(n int64) string {
	return strconv.FormatInt(n, 10)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
