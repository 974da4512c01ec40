package service

import (
	"crypto/rand"
	"fmt"
	"io"
)

const (
	couponCodeLength      = 6
	couponCodeMaxAttempts = 100
	couponCodeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// CouponCodeSet 已占用优惠码集合
type CouponCodeSet interface {
	Contains(code string) (bool, error)
}

// CouponCodeSetFunc 函数适配器
type CouponCodeSetFunc func(code string) (bool, error)

// Contains 实现 CouponCodeSet
func (f CouponCodeSetFunc) Contains(code string) (bool, error) {
	return f(code)
}

// GenerateCouponCode 生成 6 位大写字母优惠码，最多尝试 100 次。
// rnd 为空时使用 crypto/rand。
func GenerateCouponCode(used CouponCodeSet, rnd io.Reader) (string, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	buf := make([]byte, couponCodeLength)
	for attempt := 0; attempt < couponCodeMaxAttempts; attempt++ {
		code, err := randomCouponCode(rnd, buf)
		if err != nil {
			return "", err
		}
		if used == nil {
			return code, nil
		}
		taken, err := used.Contains(code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrCouponCodeExhausted
}

// randomCouponCode 拒绝采样，避免取模偏差
func randomCouponCode(rnd io.Reader, buf []byte) (string, error) {
	const limit = 256 - 256%len(couponCodeAlphabet)
	out := make([]byte, 0, couponCodeLength)
	one := buf[:1]
	for len(out) < couponCodeLength {
		if _, err := io.ReadFull(rnd, one); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		if int(one[0]) >= limit {
			continue
		}
		out = append(out, couponCodeAlphabet[int(one[0])%len(couponCodeAlphabet)])
	}
	return string(out), nil
}
