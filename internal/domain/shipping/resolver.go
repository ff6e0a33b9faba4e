// Package shipping は県（wilaya）と配送方法から固定の配送料を引く。
// 距離計算はしない。料金表の参照だけ。
package shipping

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type Mode string

const (
	ModeHome     Mode = "home"
	ModeStopDesk Mode = "stopDesk"
)

var (
	FallbackHome = decimal.NewFromInt(800)
	FallbackDesk = decimal.NewFromInt(500)
)

// Quote は解決結果。Wilaya は表に無ければ nil
type Quote struct {
	Fee      decimal.Decimal `json:"fee"`
	Wilaya   *Wilaya         `json:"wilaya,omitempty"`
	Fallback bool            `json:"fallback"`
}

var (
	byCode  = map[int]*Wilaya{}
	byName  = map[string]*Wilaya{}
	byLatin = map[string]*Wilaya{}
)

func init() {
	for i := range wilayas {
		wl := &wilayas[i]
		byCode[wl.Code] = wl
		byName[strings.TrimSpace(wl.Name)] = wl
		byLatin[foldLatin(wl.Latin)] = wl
	}
}

// Resolve は配送料を返す。不明な県はフォールバック（自宅800 / デスク500）
func Resolve(region string, mode Mode) decimal.Decimal {
	return Lookup(region, mode).Fee
}

func Lookup(region string, mode Mode) Quote {
	wl, ok := Find(region)
	if !ok {
		fee := FallbackHome
		if mode == ModeStopDesk {
			fee = FallbackDesk
		}
		return Quote{Fee: fee, Fallback: true}
	}
	cp := *wl
	fee := cp.HomeRate
	if mode == ModeStopDesk {
		fee = cp.DeskRate
	}
	return Quote{Fee: fee, Wilaya: &cp}
}

// Find はコード（"16" / "07"）、アラビア語名、ラテン文字名、"16 - الجزائر" 形式を受け付ける
func Find(region string) (*Wilaya, bool) {
	s := strings.Join(strings.Fields(region), " ")
	if s == "" {
		return nil, false
	}

	if code, rest, ok := splitCode(s); ok {
		wl, found := byCode[code]
		if !found {
			return nil, false
		}
		//コードと名前が両方あるときは食い違いを許さない
		if rest != "" && !matchesName(wl, rest) {
			return nil, false
		}
		return wl, true
	}

	if wl, ok := byName[s]; ok {
		return wl, true
	}
	if wl, ok := byLatin[foldLatin(s)]; ok {
		return wl, true
	}
	return nil, false
}

// List は料金表のコピー
func List() []Wilaya {
	out := make([]Wilaya, len(wilayas))
	copy(out, wilayas[:])
	return out
}

func splitCode(s string) (int, string, bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, "", false
	}
	code, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, "", false
	}
	rest := strings.TrimSpace(strings.TrimLeft(s[i:], " -–:|"))
	return code, rest, true
}

func matchesName(wl *Wilaya, name string) bool {
	return name == wl.Name || foldLatin(name) == foldLatin(wl.Latin)
}

// アクセント・大小文字・記号の差を吸収する
func foldLatin(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	out = strings.NewReplacer("-", " ", "'", "", "’", "").Replace(out)
	return strings.Join(strings.Fields(out), " ")
}
