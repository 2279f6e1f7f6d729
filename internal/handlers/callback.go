package handlers

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/bazarioapp/bazario/internal/payment"
	"github.com/bazarioapp/bazario/internal/sslcommerz"
)

var statusPageTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{if .RedirectPath}}<meta http-equiv="refresh" content="{{.RedirectSeconds}};url={{.RedirectPath}}">{{end}}
<style>
body { font-family: system-ui, sans-serif; max-width: 32rem; margin: 4rem auto; padding: 0 1rem; text-align: center; }
h1 { font-size: 1.4rem; }
p { color: #444; }
.state-success h1 { color: #15803d; }
.state-failed h1, .state-canceled h1 { color: #b91c1c; }
</style>
</head>
<body class="state-{{.State}}">
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{if .OrderIDs}}<p>Order reference: {{.OrderIDs}}</p>{{end}}
{{if .RedirectPath}}<p><a href="{{.RedirectPath}}">Continue</a></p>{{end}}
</body>
</html>
`))

type statusPageData struct {
	State           string
	Title           string
	Message         string
	OrderIDs        string
	RedirectPath    string
	RedirectSeconds int
}

// PaymentCallback handles GET and POST hops on /payment/sslcommerz/callback.
// The gateway POSTs its parameters; browsers may also land here via GET on
// manual navigation or a replayed redirect.
func (h *Handlers) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := r.ParseForm(); err != nil {
		logger.Warn("failed to parse callback form", "error", err)
		h.renderStatusPage(w, r, statusPageData{
			State:   string(payment.StateFailed),
			Title:   "Payment failed",
			Message: "We could not read the gateway response.",
		})
		return
	}

	// The callback leg never mints a session. The cookie may be withheld
	// on the gateway's cross-site POST, so the session reference echoed
	// through the gateway's passthrough field is the fallback.
	params := sslcommerz.ParseCallback(r.Form)
	sessionID := h.draftManager.SessionIDFromRequest(r)
	if sessionID == "" {
		sessionID = params.SessionReference
	}

	outcome, err := h.callbackService.Reconcile(ctx, sessionID, params)
	if err != nil {
		logger.Error("failed to reconcile callback", "tran_id", params.TransactionID, "error", err)
		h.renderStatusPage(w, r, statusPageData{
			State:   string(payment.StateFailed),
			Title:   "Payment failed",
			Message: "Something went wrong while confirming your payment. Please contact support.",
		})
		return
	}

	data := statusPageData{
		State:           string(outcome.State),
		Title:           statusTitle(outcome.State),
		Message:         outcome.Message,
		RedirectPath:    outcome.RedirectPath,
		RedirectSeconds: int(outcome.RedirectDelay.Seconds()),
	}
	if len(outcome.OrderIDs) > 0 {
		ids := make([]string, 0, len(outcome.OrderIDs))
		for _, id := range outcome.OrderIDs {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		data.OrderIDs = "#" + strings.Join(ids, ", #")
	}
	h.renderStatusPage(w, r, data)
}

func statusTitle(state payment.State) string {
	switch state {
	case payment.StateSuccess:
		return "Payment successful"
	case payment.StateFailed:
		return "Payment failed"
	case payment.StateCanceled:
		return "Payment canceled"
	default:
		return "Processing payment"
	}
}

func (h *Handlers) renderStatusPage(w http.ResponseWriter, r *http.Request, data statusPageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := statusPageTemplate.Execute(w, data); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to render status page", "error", err)
	}
}
