package web

import (
	"net/http"

	"github.com/malvinas3d/backoffice/internal/store"
)

// subscriberFilter reads the listing filters from query parameters.
func subscriberFilter(r *http.Request) store.SubscriberFilter {
	q := r.URL.Query()
	return store.SubscriberFilter{
		Kind:          store.Kind(q.Get("kind")),
		Email:         q.Get("email"),
		NameContains:  q.Get("name"),
		HasBlocksOnly: q.Get("hasBlocks") == "true",
	}
}

func (s *Server) handleListSubscribers(w http.ResponseWriter, r *http.Request) {
	subs, err := s.store.ListSubscribers(r.Context(), subscriberFilter(r))
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (s *Server) handleGetSubscriber(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	sub, err := s.store.GetSubscriber(r.Context(), id)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleUpsertSubscriber(w http.ResponseWriter, r *http.Request) {
	var sub store.Subscriber
	if err := decodeJSON(r, &sub); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	created, err := s.store.UpsertSubscriber(r.Context(), &sub)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, sub)
}

func (s *Server) handleUpdateSubscriber(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	// The record must exist; upsert-by-email handles the rest.
	if _, err := s.store.GetSubscriber(r.Context(), id); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	var sub store.Subscriber
	if err := decodeJSON(r, &sub); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	sub.ID = id
	if _, err := s.store.UpsertSubscriber(r.Context(), &sub); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleDeleteSubscriber(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if err := s.store.DeleteSubscriber(r.Context(), id); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetCapability(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	c, err := s.store.GetCapability(r.Context(), id)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleSubscriberBlocks(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	blocks, err := s.store.ListBlocksForSubscriber(r.Context(), id)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, blocks)
}

func (s *Server) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	parts, err := s.store.ListParticipants(r.Context(), subscriberFilter(r))
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, parts)
}
