package http

import (
	"net/http"

	"subtrack/internal/core"
	"subtrack/internal/log"
)

func (s *Server) handleListFiltered(w http.ResponseWriter, r *http.Request) {
	subs := s.store.FilteredSubscriptions()
	NewJSONResponse().Body(map[string]any{
		"subscriptions": nonNil(subs),
		"filter":        s.store.Filter(),
		"count":         len(subs),
	}).Write(w)
}

func (s *Server) handleListAll(w http.ResponseWriter, r *http.Request) {
	subs := s.store.Subscriptions()
	NewJSONResponse().Body(map[string]any{
		"subscriptions": nonNil(subs),
		"count":         len(subs),
	}).Write(w)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sub, ok := s.store.Subscription(id)
	if !ok {
		NotFoundError("subscription not found").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{"subscription": sub}).Write(w)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	// New subscriptions start active unless the body says otherwise.
	in := core.SubscriptionInput{IsActive: true}
	if err := decodeJSON(w, r, &in); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if in.Icon == "" {
		in.Icon = core.DefaultIcon
	}
	if err := in.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	sub, err := s.store.AddSubscription(r.Context(), in)
	resp := NewJSONResponse().Status(http.StatusCreated).
		Header("Location", "/api/subscriptions/"+sub.ID).
		Body(map[string]any{"subscription": sub})
	if !s.persistOK(w, r, resp, err, log.OpCreate) {
		return
	}
	resp.Write(w)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var patch core.SubscriptionPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if patch.IsEmpty() {
		UnprocessableEntityError("no fields to update").Write(w)
		return
	}
	if err := patch.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	err := s.store.UpdateSubscription(r.Context(), id, patch)
	s.respondWithRecord(w, r, id, err, log.OpUpdate)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.store.ToggleSubscriptionStatus(r.Context(), id)
	s.respondWithRecord(w, r, id, err, log.OpToggle)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.store.DeleteSubscription(r.Context(), id)
	resp := NewJSONResponse().Status(http.StatusNoContent)
	if !s.persistOK(w, r, resp, err, log.OpDelete) {
		return
	}
	resp.Write(w)
}

// respondWithRecord answers a mutation of id with the record as it is now,
// or 204 when no such record exists.
func (s *Server) respondWithRecord(w http.ResponseWriter, r *http.Request, id string, err error, op string) {
	resp := NewJSONResponse()
	if sub, ok := s.store.Subscription(id); ok {
		resp.Body(map[string]any{"subscription": sub})
	} else {
		resp.Status(http.StatusNoContent)
	}
	if !s.persistOK(w, r, resp, err, op) {
		return
	}
	resp.Write(w)
}

// persistOK folds a save failure into resp as a warning. Any other error
// is answered with 500 here and persistOK returns false.
func (s *Server) persistOK(w http.ResponseWriter, r *http.Request, resp *JSONResponseBuilder, err error, op string) bool {
	if err == nil || resp.PersistWarning(err) {
		return true
	}
	s.events.LogError(r.Context(), "Subscription mutation failed", err, log.ComponentHTTP, op, nil)
	InternalServerError("internal error").Write(w)
	return false
}

func nonNil(subs []core.Subscription) []core.Subscription {
	if subs == nil {
		return []core.Subscription{}
	}
	return subs
}
