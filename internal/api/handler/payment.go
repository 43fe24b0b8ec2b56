package handler

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/remboglow/facefit/internal/api/middleware"
	"github.com/remboglow/facefit/internal/domain"
	"github.com/remboglow/facefit/internal/payment"
	"github.com/remboglow/facefit/internal/service"
)

// PaymentFlow is the payment service surface the handler uses.
type PaymentFlow interface {
	HandleReturn(ctx context.Context, ident domain.Identity, reference string) payment.ReturnResult
	HasPendingCharge(ctx context.Context, ident domain.Identity) bool
	AmountKES() int
}

// UsageReader exposes the ledger state to clients.
type UsageReader interface {
	FreeUploadsConsumed(ctx context.Context, ident domain.Identity) int
	FreeLimit() int
	IsPaid(ctx context.Context, ident domain.Identity) bool
	ConsumeJustPaidFlag(ctx context.Context, ident domain.Identity) bool
}

// AccessDecider answers whether another analysis may start.
type AccessDecider interface {
	RequestMore(ctx context.Context, ident domain.Identity, email string) (*service.Decision, error)
}

// PaymentHandler handles checkout and usage requests.
type PaymentHandler struct {
	payments PaymentFlow
	usage    UsageReader
	access   AccessDecider
	logger   *slog.Logger
}

// NewPaymentHandler creates a new PaymentHandler instance.
func NewPaymentHandler(payments PaymentFlow, usage UsageReader, access AccessDecider, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		usage:    usage,
		access:   access,
		logger:   logger,
	}
}

// AccessRequest request body for the access endpoint
type AccessRequest struct {
	Email string `json:"email"`
}

// AccessResponse response for the access endpoint
type AccessResponse struct {
	Allowed          bool   `json:"allowed"`
	AuthorizationURL string `json:"authorization_url,omitempty"`
	Reference        string `json:"reference,omitempty"`
	AmountKES        int    `json:"amount_kes,omitempty"`
}

// RequestAccess POST /v1/access - ask to run another analysis. When the free
// quota is spent and the user is unpaid, a checkout is created and the
// client must navigate to the authorization URL.
func (h *PaymentHandler) RequestAccess(c *fiber.Ctx) error {
	ident, err := middleware.GetIdentity(c)
	if err != nil {
		return err
	}

	var req AccessRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return domain.ErrValidationFailed.WithError(err)
		}
	}

	decision, err := h.access.RequestMore(c.Context(), ident, strings.TrimSpace(req.Email))
	if err != nil {
		return err
	}

	resp := AccessResponse{Allowed: decision.Allowed}
	if decision.Checkout != nil {
		resp.AuthorizationURL = decision.Checkout.AuthorizationURL
		resp.Reference = decision.Checkout.Reference
		resp.AmountKES = decision.Checkout.AmountKES
	}

	return c.JSON(resp)
}

// Callback GET /pay/callback - landing from the hosted checkout. Always
// redirects to the canonical URL; the outcome travels as query parameters.
func (h *PaymentHandler) Callback(c *fiber.Ctx) error {
	ident, err := middleware.GetIdentity(c)
	if err != nil {
		return err
	}

	reference := strings.TrimSpace(c.Query("reference"))
	if reference == "" {
		reference = strings.TrimSpace(c.Query("trxref"))
	}

	result := h.payments.HandleReturn(c.Context(), ident, reference)

	target := result.RedirectURL
	if reference != "" {
		status := "failed"
		if result.Verified {
			status = "success"
		}
		target = appendQuery(target, "payment", status)
	}

	return c.Redirect(target, fiber.StatusFound)
}

// UsageResponse response for the usage endpoint
type UsageResponse struct {
	FreeUploadsUsed  int  `json:"free_uploads_used"`
	FreeUploadsLimit int  `json:"free_uploads_limit"`
	Paid             bool `json:"paid"`
	PendingCharge    bool `json:"pending_charge"`
	PremiumPriceKES  int  `json:"premium_price_kes"`
}

// GetUsage GET /v1/usage - the caller's quota and payment state
func (h *PaymentHandler) GetUsage(c *fiber.Ctx) error {
	ident, err := middleware.GetIdentity(c)
	if err != nil {
		return err
	}

	return c.JSON(UsageResponse{
		FreeUploadsUsed:  h.usage.FreeUploadsConsumed(c.Context(), ident),
		FreeUploadsLimit: h.usage.FreeLimit(),
		Paid:             h.usage.IsPaid(c.Context(), ident),
		PendingCharge:    h.payments.HasPendingCharge(c.Context(), ident),
		PremiumPriceKES:  h.payments.AmountKES(),
	})
}

// ConsumeJustPaid POST /v1/usage/just-paid - one-shot read of the "returned
// from a successful payment" signal. True once, false after.
func (h *PaymentHandler) ConsumeJustPaid(c *fiber.Ctx) error {
	ident, err := middleware.GetIdentity(c)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"just_paid": h.usage.ConsumeJustPaidFlag(c.Context(), ident),
	})
}

func appendQuery(rawURL, key, value string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
