package usecase

import (
	"fmt"
	"strconv"
	"strings"
)

// Callback data understood by the Telegram router.
const (
	CbSubMain    = "sub:main"
	CbSubProcess = "sub:process"
	CbSubExtend  = "sub:extend"
	CbSubChange  = "sub:change"

	CbCheckSubscription = "check_subscription"

	CbAdminTools  = "admin:tools"
	CbPromoEditor = "promo:editor"
	CbPromoCreate = "promo:create"
	CbPromoDelete = "promo:delete"
	CbPromoEdit   = "promo:edit"

	cbSubDevices    = "sub:devices:"
	cbSubDuration   = "sub:duration:"
	cbSubPay        = "sub:pay:"
	cbPromoDuration = "promo:duration:"
)

func CbSubDevices(n int) string       { return cbSubDevices + strconv.Itoa(n) }
func CbSubDuration(days int) string   { return cbSubDuration + strconv.Itoa(days) }
func CbSubPay(method string) string   { return cbSubPay + method }
func CbPromoDuration(days int) string { return cbPromoDuration + strconv.Itoa(days) }

// Callback is parsed callback data: Action is the data without its argument.
type Callback struct {
	Action string
	Int    int
	Str    string
}

// ParseCallback splits data into an action and its argument.
func ParseCallback(data string) (Callback, error) {
	for _, p := range []string{cbSubDevices, cbSubDuration, cbPromoDuration} {
		if rest, ok := strings.CutPrefix(data, p); ok {
			n, err := strconv.Atoi(rest)
			if err != nil {
				return Callback{}, fmt.Errorf("callback %q: %w", data, err)
			}
			return Callback{Action: p, Int: n}, nil
		}
	}
	if rest, ok := strings.CutPrefix(data, cbSubPay); ok {
		if rest == "" {
			return Callback{}, fmt.Errorf("callback %q: empty payment method", data)
		}
		return Callback{Action: cbSubPay, Str: rest}, nil
	}
	switch data {
	case CbSubMain, CbSubProcess, CbSubExtend, CbSubChange, CbCheckSubscription,
		CbAdminTools, CbPromoEditor, CbPromoCreate, CbPromoDelete, CbPromoEdit:
		return Callback{Action: data}, nil
	}
	return Callback{}, fmt.Errorf("unknown callback %q", data)
}

// Parsed actions carrying an argument.
const (
	ActSubDevices    = cbSubDevices
	ActSubDuration   = cbSubDuration
	ActSubPay        = cbSubPay
	ActPromoDuration = cbPromoDuration
)
