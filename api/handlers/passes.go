package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// BuyPassRequest is the body of POST /api/v1/assets/{asset}/passes/buy.
type BuyPassRequest struct {
	Buyer    string `json:"buyer"`
	Amount   uint64 `json:"amount"`
	Referrer string `json:"referrer,omitempty"`
}

// BuyPass handles POST /api/v1/assets/{asset}/passes/buy.
func (h *Handler) BuyPass(w http.ResponseWriter, r *http.Request) {
	asset, err := pathAddress(r, "asset")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req BuyPassRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	buyer, err := parseAddress("buyer", req.Buyer)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	referrer, err := optionalAddress("referrer", req.Referrer)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.eng.BuyPass(r.Context(), asset, buyer, req.Amount, referrer)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// SellPassRequest is the body of POST /api/v1/assets/{asset}/passes/sell.
type SellPassRequest struct {
	Seller string `json:"seller"`
	Amount uint64 `json:"amount"`
}

// SellPass handles POST /api/v1/assets/{asset}/passes/sell.
func (h *Handler) SellPass(w http.ResponseWriter, r *http.Request) {
	asset, err := pathAddress(r, "asset")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req SellPassRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	seller, err := parseAddress("seller", req.Seller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.eng.SellPass(r.Context(), asset, seller, req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// GetPassState handles GET /api/v1/assets/{asset}/passes.
func (h *Handler) GetPassState(w http.ResponseWriter, r *http.Request) {
	asset, err := pathAddress(r, "asset")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	state, err := h.eng.PassState(r.Context(), asset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, state)
}

// HoldingsResponse reports a holder's pass position for one asset.
type HoldingsResponse struct {
	AssetID string `json:"asset_id"`
	Holder  string `json:"holder"`
	Units   uint64 `json:"units"`
	Holds   bool   `json:"holds"`
}

// GetPassHoldings handles GET /api/v1/assets/{asset}/passes/{holder}.
func (h *Handler) GetPassHoldings(w http.ResponseWriter, r *http.Request) {
	asset, err := pathAddress(r, "asset")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	holder, err := pathAddress(r, "holder")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	units, err := h.eng.PassHoldings(r.Context(), asset, holder)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, HoldingsResponse{
		AssetID: chi.URLParam(r, "asset"),
		Holder:  chi.URLParam(r, "holder"),
		Units:   units,
		Holds:   units > 0,
	})
}
