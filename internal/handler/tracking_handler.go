// internal/handler/tracking_handler.go
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bulkwave/bulkwave-backend/internal/model"
	"github.com/bulkwave/bulkwave-backend/internal/service"
)

// TransparentPixel is a 1x1 transparent PNG. The open endpoint returns
// it unconditionally so a broken token never breaks the mail client.
var TransparentPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

// TrackingHandler serves the ingestion endpoints embedded in sent
// messages: open pixel, click redirect and unsubscribe.
type TrackingHandler struct {
	Tracker *service.EventTracker
}

// OpenPixel records an opened event and always answers with the pixel,
// decodable token or not.
func (h *TrackingHandler) OpenPixel(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	messageID, email, _, err := service.DecodeTrackingToken(token)
	if err == nil {
		h.Tracker.Record(r.Context(), messageID, email, model.EventOpened, model.EventDetail{
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
		})
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(TransparentPixel)
}

// ClickRedirect records a clicked event and 302s to the wrapped URL.
// Without a decodable URL there is nowhere to send the visitor: 400.
func (h *TrackingHandler) ClickRedirect(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	messageID, email, url, err := service.DecodeTrackingToken(token)
	if err != nil || url == "" {
		http.Error(w, "invalid tracking link", http.StatusBadRequest)
		return
	}

	h.Tracker.Record(r.Context(), messageID, email, model.EventClicked, model.EventDetail{
		IPAddress:  clientIP(r),
		UserAgent:  r.UserAgent(),
		ClickedURL: url,
	})

	http.Redirect(w, r, url, http.StatusFound)
}

func (h *TrackingHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	messageID, email, _, err := service.DecodeTrackingToken(token)
	if err != nil {
		writeUnsubscribeResponse(w, http.StatusBadRequest, "error", "invalid unsubscribe link")
		return
	}

	h.Tracker.Record(r.Context(), messageID, email, model.EventUnsubscribed, model.EventDetail{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})

	writeUnsubscribeResponse(w, http.StatusOK, "ok", "you have been unsubscribed")
}

func writeUnsubscribeResponse(w http.ResponseWriter, code int, status, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  status,
		"message": message,
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
