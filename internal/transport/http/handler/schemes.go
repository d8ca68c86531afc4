package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/govscheme-portal/internal/application/scheme"
	"github.com/govscheme-portal/internal/domain"
)

// maxUploadBytes caps scheme document uploads.
const maxUploadBytes = 10 << 20

// SchemeHandler handles the public catalog and admin scheme management.
type SchemeHandler struct {
	svc scheme.Service
}

func NewSchemeHandler(svc scheme.Service) *SchemeHandler { return &SchemeHandler{svc: svc} }

func (h *SchemeHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListActive(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeSchemes(w, list)
}

func (h *SchemeHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (h *SchemeHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListByCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeSchemes(w, list)
}

func (h *SchemeHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("query") {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}
	list, err := h.svc.Search(r.Context(), q.Get("query"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeSchemes(w, list)
}

func (h *SchemeHandler) ListEligible(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListEligible(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeSchemes(w, list)
}

func (h *SchemeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.SchemeInput
	if !decodeJSON(w, r, &in) {
		return
	}
	sc, err := h.svc.Create(r.Context(), in)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

func (h *SchemeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in domain.SchemeInput
	if !decodeJSON(w, r, &in) {
		return
	}
	sc, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (h *SchemeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Scheme deleted successfully"})
}

// UploadDocument accepts a multipart "file" field and attaches it as the
// scheme's PDF or image.
func (h *SchemeHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	sc, err := h.svc.AttachDocument(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "kind"), scheme.Document{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// writeSchemes always encodes a JSON array, never null.
func writeSchemes(w http.ResponseWriter, list []domain.Scheme) {
	if list == nil {
		list = []domain.Scheme{}
	}
	writeJSON(w, http.StatusOK, list)
}
