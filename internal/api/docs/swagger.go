package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// UploadResponse represents the response for a staged image
type UploadResponse struct {
	Phase  string `json:"phase" example:"image_selected"`
	Size   int    `json:"size" example:"204800"`
	Source string `json:"source" example:"file"`
}

// SkinProfileData represents the analyzed skin profile
type SkinProfileData struct {
	SkinTone    string   `json:"skinTone" example:"deep"`
	Undertone   string   `json:"undertone" example:"warm"`
	FacialShape string   `json:"facialShape" example:"oval"`
	SkinType    string   `json:"skinType" example:"combination"`
	Concerns    []string `json:"concerns" example:"hyperpigmentation"`
}

// AnalyzeResponse represents the response for a completed analysis
type AnalyzeResponse struct {
	RecordID      string   `json:"record_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	ParseQuality  string   `json:"parse_quality" example:"strict"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

// HistoryItemData represents one analysis in the history listing
type HistoryItemData struct {
	ID           string           `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	CreatedAt    string           `json:"created_at" example:"2026-01-01T00:00:00Z"`
	ParseQuality string           `json:"parse_quality" example:"strict"`
	BudgetKES    int              `json:"budget_kes" example:"5000"`
	SkinProfile  *SkinProfileData `json:"skin_profile,omitempty"`
}

// HistoryResponse wraps the history listing
type HistoryResponse struct {
	Analyses []HistoryItemData `json:"analyses"`
}

// AccessRequest represents a request to run another analysis
type AccessRequest struct {
	Email string `json:"email" example:"user@example.com"`
}

// AccessResponse represents the access decision
type AccessResponse struct {
	Allowed          bool   `json:"allowed" example:"false"`
	AuthorizationURL string `json:"authorization_url,omitempty" example:"https://checkout.paystack.com/abc123"`
	Reference        string `json:"reference,omitempty" example:"T123456789"`
	AmountKES        int    `json:"amount_kes,omitempty" example:"500"`
}

// UsageResponse represents quota and payment state
type UsageResponse struct {
	FreeUploadsUsed  int  `json:"free_uploads_used" example:"1"`
	FreeUploadsLimit int  `json:"free_uploads_limit" example:"1"`
	Paid             bool `json:"paid" example:"false"`
	PendingCharge    bool `json:"pending_charge" example:"false"`
	PremiumPriceKES  int  `json:"premium_price_kes" example:"500"`
}

// JustPaidResponse represents the one-shot payment signal
type JustPaidResponse struct {
	JustPaid bool `json:"just_paid" example:"true"`
}

// RoutineRequest represents a routine regeneration request
type RoutineRequest struct {
	BudgetKES int `json:"budget_kes" example:"5000"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

// NewSwagger creates and configures the Swagger documentation
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Face-Fit API",
		Version:     "v0.1.0",
		Description: "AI beauty and fashion recommendation API: selfie analysis, budget-aware product suggestions, and skincare routines",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /v1/analyses/image - stage a selfie
		endpoint.New(
			endpoint.POST,
			"/analyses/image",
			endpoint.WithTags("Analyses"),
			endpoint.WithSummary("Stage a selfie for analysis"),
			endpoint.WithDescription("Uploads and validates a selfie. Selecting a new image supersedes any in-flight analysis."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(UploadResponse{}, "201", "Image staged successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "FILE_TOO_LARGE", Message: "Image exceeds the 5MB upload limit"}, "413", "Payload Too Large"),
				response.New(ErrorResponse{Code: "UNSUPPORTED_IMAGE_TYPE", Message: "Image must be JPEG, PNG or WebP"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "image file is required"}, "422", "Unprocessable Entity"),
			}),
		),

		// POST /v1/analyses - run the analysis
		endpoint.New(
			endpoint.POST,
			"/analyses",
			endpoint.WithTags("Analyses"),
			endpoint.WithSummary("Analyze the staged selfie"),
			endpoint.WithDescription("Runs the staged image through the model and returns the recommendation bundle. Consumes the free upload on success."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AnalyzeResponse{}, "200", "Analysis completed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NO_IMAGE_SELECTED", Message: "Select an image before requesting analysis"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "ANALYSIS_IN_FLIGHT", Message: "An analysis is already in progress"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "PAYMENT_REQUIRED", Message: "Free analysis used, payment required"}, "402", "Payment Required"),
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in the image"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "NO_STRUCTURED_DATA", Message: "No usable analysis could be extracted"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "ANALYSIS_UNAVAILABLE", Message: "The analysis service is unreachable"}, "503", "Service Unavailable"),
			}),
		),

		// GET /v1/analyses - history
		endpoint.New(
			endpoint.GET,
			"/analyses",
			endpoint.WithTags("Analyses"),
			endpoint.WithSummary("List past analyses"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Maximum number of records (default: 20, max: 100)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HistoryResponse{}, "200", "History retrieved"),
			}),
		),

		// GET /v1/analyses/{id}
		endpoint.New(
			endpoint.GET,
			"/analyses/{id}",
			endpoint.WithTags("Analyses"),
			endpoint.WithSummary("Fetch one analysis"),
			endpoint.WithDescription("Returns a single stored analysis with its full recommendation bundle."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Analysis UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HistoryItemData{}, "200", "Analysis retrieved"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "ANALYSIS_NOT_FOUND", Message: "Analysis not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "invalid analysis id"}, "422", "Unprocessable Entity"),
			}),
		),

		// DELETE /v1/analyses/{id}
		endpoint.New(
			endpoint.DELETE,
			"/analyses/{id}",
			endpoint.WithTags("Analyses"),
			endpoint.WithSummary("Delete one analysis"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Analysis UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Deleted"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "ANALYSIS_NOT_FOUND", Message: "Analysis not found"}, "404", "Not Found"),
			}),
		),

		// POST /v1/access - quota gate / checkout
		endpoint.New(
			endpoint.POST,
			"/access",
			endpoint.WithTags("Payments"),
			endpoint.WithSummary("Request access to another analysis"),
			endpoint.WithDescription("Allowed while free quota remains or the user is paid. Otherwise a hosted checkout is created and the client must navigate to the authorization URL."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AccessResponse{}, "200", "Decision returned"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "invalid payer email"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "GATEWAY_INIT_FAILED", Message: "Could not start the payment checkout"}, "502", "Bad Gateway"),
			}),
		),

		// GET /v1/usage
		endpoint.New(
			endpoint.GET,
			"/usage",
			endpoint.WithTags("Payments"),
			endpoint.WithSummary("Get quota and payment state"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(UsageResponse{}, "200", "Usage retrieved"),
			}),
		),

		// POST /v1/usage/just-paid
		endpoint.New(
			endpoint.POST,
			"/usage/just-paid",
			endpoint.WithTags("Payments"),
			endpoint.WithSummary("Consume the just-paid signal"),
			endpoint.WithDescription("One-shot read of the returned-from-successful-payment flag. True once, false after."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(JustPaidResponse{}, "200", "Signal consumed"),
			}),
		),

		// POST /v1/routines
		endpoint.New(
			endpoint.POST,
			"/routines",
			endpoint.WithTags("Routines"),
			endpoint.WithSummary("Regenerate a skincare routine"),
			endpoint.WithDescription("Builds a fresh daily routine from the most recent stored skin profile without spending quota."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RoutineRequest{}, "200", "Routine generated"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NO_PROFILE_AVAILABLE", Message: "No skin profile found, analyze a photo first"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "ANALYSIS_UNAVAILABLE", Message: "The analysis service is unreachable"}, "503", "Service Unavailable"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
