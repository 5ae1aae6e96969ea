package payments

import (
	"errors"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/subgate/subgate-bot/internal/config"
)

// ErrRouteNotConfigured means the destination address for the selected tier
// is missing from configuration. The caller reports it and keeps the
// workflow where it was.
var ErrRouteNotConfigured = errors.New("payment route not configured")

// LocalInstructions describe a domestic VPA transfer. SplitSuggestion is
// populated only for the distinguished high-value amount; it affects the
// user-facing instructions, never the recorded payment amount.
type LocalInstructions struct {
	VPA             string
	Amount          float64
	SplitSuggestion []float64
	QR              []byte
}

// IntlInstructions describe the fixed-format remittance corridor transfer.
type IntlInstructions struct {
	Service      string
	AccountAlias string
	PayeeName    string
	Reason       string
	Amount       float64
}

type Router struct {
	cfg config.Config
}

func NewRouter(cfg config.Config) *Router {
	return &Router{cfg: cfg}
}

// Local picks the VPA by price tier: amounts at or below the threshold use
// the primary address, anything above uses the high-tier address.
func (r *Router) Local(amount float64) (*LocalInstructions, error) {
	vpa := r.cfg.VPAPrimary
	if amount > r.cfg.LocalTierThreshold {
		vpa = r.cfg.VPAHigh
	}
	if vpa == "" {
		return nil, ErrRouteNotConfigured
	}

	inst := &LocalInstructions{
		VPA:    vpa,
		Amount: amount,
	}
	if r.cfg.SplitAmount > 0 && amount == r.cfg.SplitAmount {
		inst.SplitSuggestion = splitThirds(amount)
	}

	qr, err := qrcode.Encode(upiURI(vpa), qrcode.Medium, 256)
	if err != nil {
		return nil, err
	}
	inst.QR = qr
	return inst, nil
}

func (r *Router) International(amount float64) (*IntlInstructions, error) {
	if r.cfg.IntlAccountAlias == "" {
		return nil, ErrRouteNotConfigured
	}
	return &IntlInstructions{
		Service:      r.cfg.RemittanceService,
		AccountAlias: r.cfg.IntlAccountAlias,
		PayeeName:    r.cfg.IntlPayeeName,
		Reason:       r.cfg.IntlReason,
		Amount:       amount,
	}, nil
}

func upiURI(vpa string) string {
	return fmt.Sprintf("upi://pay?pa=%s&pn=Subscription", vpa)
}

// splitThirds suggests three partial transfers summing to the amount, with
// the remainder folded into the first part.
func splitThirds(amount float64) []float64 {
	whole := int64(amount)
	part := whole / 3
	first := whole - 2*part
	return []float64{float64(first), float64(part), float64(part)}
}
