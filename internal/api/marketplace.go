package api

import (
	"context"
	"net/http"

	"github.com/raine/bookrelist/internal/book"
	"github.com/raine/bookrelist/internal/marketplace"
)

type marketplaceOp func(ctx context.Context, id int64) (*book.Record, marketplace.Result, error)

func (h *Handler) runMarketplace(w http.ResponseWriter, r *http.Request, op marketplaceOp) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	rec, res, err := op(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, rec, res)
}

func (h *Handler) PublishBooklooker(w http.ResponseWriter, r *http.Request) {
	h.runMarketplace(w, r, h.svc.PublishBooklooker)
}

func (h *Handler) BooklookerStatus(w http.ResponseWriter, r *http.Request) {
	h.runMarketplace(w, r, h.svc.BooklookerStatus)
}

func (h *Handler) PublishEbay(w http.ResponseWriter, r *http.Request) {
	h.runMarketplace(w, r, h.svc.PublishEbay)
}

func (h *Handler) EbayStatus(w http.ResponseWriter, r *http.Request) {
	h.runMarketplace(w, r, h.svc.EbayStatus)
}

func (h *Handler) VerifyBooklooker(w http.ResponseWriter, r *http.Request) {
	res := h.svc.VerifyBooklooker(r.Context())
	writeResult(w, nil, res)
}

func (h *Handler) VerifyEbay(w http.ResponseWriter, r *http.Request) {
	res := h.svc.VerifyEbay(r.Context())
	writeResult(w, nil, res)
}
