package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/halcyonlabs/gatehouse/engine/pkg/subs"
)

// TierRequest is the body of tier create/update calls.
type TierRequest struct {
	Caller     string `json:"caller"`
	Name       string `json:"name,omitempty"`
	WeekPrice  uint64 `json:"week_price"`
	MonthPrice uint64 `json:"month_price"`
	YearPrice  uint64 `json:"year_price"`
}

// CreateTier handles POST /api/v1/assets/{asset}/tiers.
func (h *Handler) CreateTier(w http.ResponseWriter, r *http.Request) {
	asset, err := pathAddress(r, "asset")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req TierRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	err = h.eng.CreateSubscriptionTier(r.Context(), asset, caller, req.Name,
		req.WeekPrice, req.MonthPrice, req.YearPrice)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// UpdateTier handles PUT /api/v1/assets/{asset}/tiers/{name}.
func (h *Handler) UpdateTier(w http.ResponseWriter, r *http.Request) {
	asset, err := pathAddress(r, "asset")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	name := chi.URLParam(r, "name")

	var req TierRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	err = h.eng.UpdateSubscriptionTier(r.Context(), asset, caller, name,
		req.WeekPrice, req.MonthPrice, req.YearPrice)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTiers handles GET /api/v1/assets/{asset}/tiers.
func (h *Handler) ListTiers(w http.ResponseWriter, r *http.Request) {
	asset, err := pathAddress(r, "asset")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tiers, err := h.eng.Tiers(r.Context(), asset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tiers)
}

// SubscribeRequest is the body of POST /api/v1/assets/{asset}/subscriptions.
type SubscribeRequest struct {
	Subscriber string `json:"subscriber"`
	Tier       string `json:"tier"`
	Duration   string `json:"duration"`
	Referrer   string `json:"referrer,omitempty"`
}

// Subscribe handles POST /api/v1/assets/{asset}/subscriptions.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	asset, err := pathAddress(r, "asset")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req SubscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	subscriber, err := parseAddress("subscriber", req.Subscriber)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	referrer, err := optionalAddress("referrer", req.Referrer)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	duration, err := subs.ParseDuration(req.Duration)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.eng.Subscribe(r.Context(), asset, subscriber, req.Tier, duration, referrer)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// CancelSubscription handles DELETE /api/v1/assets/{asset}/subscriptions/{subscriber}.
func (h *Handler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	asset, err := pathAddress(r, "asset")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	subscriber, err := pathAddress(r, "subscriber")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.eng.CancelSubscription(r.Context(), asset, subscriber); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubscriptionResponse is the body of subscription reads. Active reflects
// the requested tier at the time of the request.
type SubscriptionResponse struct {
	Subscription *subs.Subscription `json:"subscription,omitempty"`
	Active       bool               `json:"active"`
}

// GetSubscription handles GET /api/v1/assets/{asset}/subscriptions/{subscriber}.
// An optional ?tier= query selects which tier to verify against; without it
// the subscription's own tier is used.
func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	asset, err := pathAddress(r, "asset")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	subscriber, err := pathAddress(r, "subscriber")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	sub, err := h.eng.Subscription(r.Context(), asset, subscriber)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tier := r.URL.Query().Get("tier")
	if tier == "" {
		tier = sub.Tier
	}
	active, err := h.eng.VerifySubscription(r.Context(), asset, subscriber, tier)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, SubscriptionResponse{Subscription: sub, Active: active})
}
