// Package resell は再販リンクのスラッグ生成を扱う。
package resell

import (
	"crypto/rand"
	"errors"
	"io"
)

const (
	Alphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	SlugLength = 12
	//衝突時の再生成回数の上限
	MaxSlugAttempts = 5
)

// 248 = 62*4。これ以上の値は捨てて偏りをなくす
const rejectAbove = byte(len(Alphabet) * 4)

var ErrSlugExhausted = errors.New("could not allocate unique slug")

// Generator はスラッグを1つ生成する。テストで差し替えられるよう関数型にしている
type Generator func() (string, error)

func NewSlug() (string, error) {
	return newSlugFrom(rand.Reader)
}

func newSlugFrom(r io.Reader) (string, error) {
	out := make([]byte, 0, SlugLength)
	buf := make([]byte, SlugLength*2)
	for len(out) < SlugLength {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= rejectAbove {
				continue
			}
			out = append(out, Alphabet[b%byte(len(Alphabet))])
			if len(out) == SlugLength {
				break
			}
		}
	}
	return string(out), nil
}

func IsValidSlug(s string) bool {
	if len(s) != SlugLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// Allocate は gen で作ったスラッグを try に渡し、衝突（taken=true）なら作り直す。
// MaxSlugAttempts 回で見つからなければ ErrSlugExhausted。
// 戻り値の int は衝突回数。
func Allocate(gen Generator, try func(slug string) (taken bool, err error)) (string, int, error) {
	collisions := 0
	for i := 0; i < MaxSlugAttempts; i++ {
		slug, err := gen()
		if err != nil {
			return "", collisions, err
		}
		taken, err := try(slug)
		if err != nil {
			return "", collisions, err
		}
		if !taken {
			return slug, collisions, nil
		}
		collisions++
	}
	return "", collisions, ErrSlugExhausted
}
