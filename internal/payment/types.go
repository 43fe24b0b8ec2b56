package payment

// initiateRequest is the body sent to the gateway backend.
type initiateRequest struct {
	Email  string `json:"email"`
	Amount int    `json:"amount"`
}

// initiateResponse mirrors the gateway's checkout-creation response.
type initiateResponse struct {
	Status bool `json:"status"`
	Data   struct {
		AuthorizationURL string `json:"authorization_url"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// verifyResponse mirrors the gateway's verification response.
type verifyResponse struct {
	Data struct {
		Status string `json:"status"`
	} `json:"data"`
}

// CheckoutIntent is what the caller needs to hand the browser off to the
// hosted checkout page.
type CheckoutIntent struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference,omitempty"`
	AmountKES        int    `json:"amount_kes"`
}

// ReturnResult is the outcome of handling the redirect back from the
// gateway. RedirectURL is always set; the user is never left on the
// callback page.
type ReturnResult struct {
	Verified    bool
	Alert       string
	RedirectURL string
}
