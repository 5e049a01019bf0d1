package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	respond "github.com/charstore/charstore/internal/api/respond"
	"github.com/charstore/charstore/internal/api/validate"
	"github.com/charstore/charstore/internal/images"
	"github.com/charstore/charstore/internal/model"
	"github.com/charstore/charstore/internal/services"
	"github.com/charstore/charstore/internal/store/jsonfile"
)

// multipart overhead allowed on top of the image limit
const formSlack = 1 << 20

// CharacterHandler is the HTTP transport for CharacterService.
type CharacterHandler struct {
	svc       *services.CharacterService
	maxUpload int64
	log       zerolog.Logger
}

func NewCharacterHandler(svc *services.CharacterService, maxUpload int64, log zerolog.Logger) *CharacterHandler {
	return &CharacterHandler{svc: svc, maxUpload: maxUpload, log: log}
}

// ListCharacters GET /api/characters
func (h *CharacterHandler) ListCharacters(w http.ResponseWriter, r *http.Request) {
	cards, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, cards)
}

// SearchCharacters GET /api/search?keyword=
func (h *CharacterHandler) SearchCharacters(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	h.log.Debug().Str("keyword", keyword).Msg("search")
	cards, err := h.svc.Search(r.Context(), keyword)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, cards)
}

// GetCharacter GET /api/character/{id}
func (h *CharacterHandler) GetCharacter(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, rec)
}

// CreateCharacter POST /api/character
func (h *CharacterHandler) CreateCharacter(w http.ResponseWriter, r *http.Request) {
	fields, image, err := h.decode(w, r)
	if err != nil {
		h.writeDecodeError(w, err)
		return
	}
	if image != nil {
		defer image.Close()
	}

	in := model.NewCharacter{
		Name:  deref(fields.Name),
		Alias: deref(fields.Alias),
		Tags:  deref(fields.Tags),
		Bio:   deref(fields.Bio),
	}
	if err := validate.CreateCharacter(in); err != nil {
		h.writeError(w, r, err)
		return
	}

	id, err := h.svc.Create(r.Context(), in, reader(image))
	if err != nil {
		if id != "" {
			h.log.Error().Err(err).Str("id", id).Msg("character created without image")
		}
		h.writeError(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, respond.Status{Status: "success", ID: id})
}

// UpdateCharacter PUT /api/character/{id}
func (h *CharacterHandler) UpdateCharacter(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	upd, image, err := h.decode(w, r)
	if err != nil {
		h.writeDecodeError(w, err)
		return
	}
	if image != nil {
		defer image.Close()
	}
	if upd.IsEmpty() && image == nil {
		h.writeError(w, r, fmt.Errorf("%w: nothing to update", model.ErrValidation))
		return
	}
	if err := validate.UpdateCharacter(upd); err != nil {
		h.writeError(w, r, err)
		return
	}

	found, err := h.svc.Update(r.Context(), id, upd, reader(image))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !found {
		respond.WriteNotFound(w, fmt.Sprintf("character %s not found", id))
		return
	}
	respond.WriteJSON(w, http.StatusOK, respond.Status{Status: "updated"})
}

// DeleteCharacter DELETE /api/character/{id}
func (h *CharacterHandler) DeleteCharacter(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	removed, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !removed {
		respond.WriteNotFound(w, fmt.Sprintf("character %s not found", id))
		return
	}
	respond.WriteJSON(w, http.StatusOK, respond.Status{Status: "deleted"})
}

var errImageTooLarge = errors.New("image too large")

// decode reads character fields from a JSON body or a form. Absent fields
// stay nil. The returned file, if any, is the "image" part of a multipart form.
func (h *CharacterHandler) decode(w http.ResponseWriter, r *http.Request) (model.CharacterUpdate, multipart.File, error) {
	var upd model.CharacterUpdate
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+formSlack)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(formSlack); err != nil {
			return upd, nil, err
		}
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return upd, nil, err
		}
	default:
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil && !errors.Is(err, io.EOF) {
			return upd, nil, err
		}
		return upd, nil, nil
	}

	upd.Name = formValue(r, "name")
	upd.Alias = formValue(r, "alias")
	upd.Tags = formValue(r, "tags")
	upd.Bio = formValue(r, "bio")

	if r.MultipartForm == nil {
		return upd, nil, nil
	}
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return upd, nil, nil
	}
	if err != nil {
		return upd, nil, err
	}
	if header.Size > h.maxUpload {
		_ = file.Close()
		return upd, nil, errImageTooLarge
	}
	return upd, file, nil
}

func (h *CharacterHandler) writeDecodeError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, errImageTooLarge), errors.As(err, &maxErr):
		respond.WriteTooLarge(w, fmt.Sprintf("image exceeds %d bytes", h.maxUpload))
	default:
		respond.WriteBadRequest(w, "Invalid request body")
	}
}

// writeError maps service errors to HTTP statuses. Unexpected failures are
// logged and reported without detail.
func (h *CharacterHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		respond.WriteNotFound(w, err.Error())
	case errors.Is(err, model.ErrValidation), errors.Is(err, images.ErrInvalidName):
		respond.WriteBadRequest(w, err.Error())
	case errors.Is(err, images.ErrTooLarge):
		respond.WriteTooLarge(w, err.Error())
	case errors.Is(err, jsonfile.ErrLockTimeout):
		respond.WriteError(w, http.StatusServiceUnavailable, "store busy, retry later")
	default:
		h.log.Error().Stack().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		respond.WriteInternalError(w, "internal error")
	}
}

func formValue(r *http.Request, key string) *string {
	if _, ok := r.Form[key]; !ok {
		return nil
	}
	v := r.Form.Get(key)
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// reader avoids handing the service a non-nil interface holding a nil file.
func reader(f multipart.File) io.Reader {
	if f == nil {
		return nil
	}
	return f
}
