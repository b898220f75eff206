package handlers

import (
	"net/http"

	"github.com/halcyonlabs/gatehouse/engine/pkg/curve"
	"github.com/halcyonlabs/gatehouse/engine/pkg/fees"
)

// The config surface trusts the caller address in the request body; an
// authenticating proxy in front of the API is expected to have verified it.

// GetProtocolConfig handles GET /api/v1/config.
func (h *Handler) GetProtocolConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.eng.ProtocolConfig(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cfg)
}

// SetFeesRequest is the body of PUT /api/v1/config/fees.
type SetFeesRequest struct {
	Caller   string `json:"caller"`
	Protocol uint64 `json:"protocol_pct"`
	Subject  uint64 `json:"subject_pct"`
	Referral uint64 `json:"referral_pct"`
}

// SetFees handles PUT /api/v1/config/fees.
func (h *Handler) SetFees(w http.ResponseWriter, r *http.Request) {
	var req SetFeesRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	err = h.eng.SetFees(r.Context(), caller, fees.Percents{
		Protocol: req.Protocol,
		Subject:  req.Subject,
		Referral: req.Referral,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetCurveRequest is the body of PUT /api/v1/config/curve.
type SetCurveRequest struct {
	Caller          string `json:"caller"`
	WeightA         uint64 `json:"weight_a"`
	WeightB         uint64 `json:"weight_b"`
	WeightC         uint64 `json:"weight_c"`
	InitialPrice    uint64 `json:"initial_price"`
	SellDiscountPct uint64 `json:"sell_discount_pct"`
}

// SetCurve handles PUT /api/v1/config/curve.
func (h *Handler) SetCurve(w http.ResponseWriter, r *http.Request) {
	var req SetCurveRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	err = h.eng.SetCurve(r.Context(), caller, curve.Params{
		WeightA:         req.WeightA,
		WeightB:         req.WeightB,
		WeightC:         req.WeightC,
		InitialPrice:    req.InitialPrice,
		SellDiscountPct: req.SellDiscountPct,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetTreasuryRequest is the body of PUT /api/v1/config/treasury.
type SetTreasuryRequest struct {
	Caller   string `json:"caller"`
	Treasury string `json:"treasury"`
}

// SetTreasury handles PUT /api/v1/config/treasury.
func (h *Handler) SetTreasury(w http.ResponseWriter, r *http.Request) {
	var req SetTreasuryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	treasury, err := parseAddress("treasury", req.Treasury)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.eng.SetTreasury(r.Context(), caller, treasury); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterAssetRequest is the body of POST /api/v1/assets.
type RegisterAssetRequest struct {
	AssetID string `json:"asset_id"`
	Owner   string `json:"owner"`
	Label   string `json:"label,omitempty"`
}

// RegisterAsset handles POST /api/v1/assets.
func (h *Handler) RegisterAsset(w http.ResponseWriter, r *http.Request) {
	var req RegisterAssetRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	asset, err := parseAddress("asset_id", req.AssetID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	owner, err := parseAddress("owner", req.Owner)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.eng.RegisterAsset(r.Context(), asset, owner, req.Label); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// DepositRequest is the body of POST /api/v1/accounts/{addr}/deposit.
type DepositRequest struct {
	Amount uint64 `json:"amount"`
}

// Deposit handles POST /api/v1/accounts/{addr}/deposit. Bootstrap surface
// for the value ledger.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	account, err := pathAddress(r, "addr")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req DepositRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.eng.Deposit(r.Context(), account, req.Amount); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BalanceResponse is the body of GET /api/v1/accounts/{addr}/balance.
type BalanceResponse struct {
	Account string `json:"account"`
	Balance uint64 `json:"balance"`
}

// GetBalance handles GET /api/v1/accounts/{addr}/balance.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	account, err := pathAddress(r, "addr")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	bal, err := h.eng.BalanceOf(r.Context(), account)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, BalanceResponse{Account: account.String(), Balance: bal})
}
