package web

import (
	"net/http"

	"github.com/malvinas3d/backoffice/internal/store"
)

// Receiving nodes

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.store.ListNodes(r.Context())
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	n, err := s.store.GetNode(r.Context(), id)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleUpsertNode(w http.ResponseWriter, r *http.Request) {
	var n store.Node
	if err := decodeJSON(r, &n); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	created, err := s.store.UpsertNode(r.Context(), &n)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, n)
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if _, err := s.store.GetNode(r.Context(), id); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	var n store.Node
	if err := decodeJSON(r, &n); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	n.ID = id
	if _, err := s.store.UpsertNode(r.Context(), &n); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if err := s.store.DeleteNode(r.Context(), id); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Blocks

func (s *Server) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	blocks, err := s.store.ListBlocks(r.Context())
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, blocks)
}

func (s *Server) handleGetBlock(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	b, err := s.store.GetBlock(r.Context(), id)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleUpsertBlock(w http.ResponseWriter, r *http.Request) {
	var b store.Block
	if err := decodeJSON(r, &b); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	created, err := s.store.UpsertBlock(r.Context(), &b)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, b)
}

func (s *Server) handleUpdateBlock(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if _, err := s.store.GetBlock(r.Context(), id); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	var b store.Block
	if err := decodeJSON(r, &b); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	b.ID = id
	if _, err := s.store.UpsertBlock(r.Context(), &b); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBlock(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if err := s.store.DeleteBlock(r.Context(), id); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Map-block catalog

func (s *Server) handleListMapBlocks(w http.ResponseWriter, r *http.Request) {
	mbs, err := s.store.ListMapBlocks(r.Context())
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, mbs)
}

func (s *Server) handleGetMapBlock(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	mb, err := s.store.GetMapBlock(r.Context(), id)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, mb)
}

func (s *Server) handleUpsertMapBlock(w http.ResponseWriter, r *http.Request) {
	var mb store.MapBlock
	if err := decodeJSON(r, &mb); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	created, err := s.store.UpsertMapBlock(r.Context(), &mb)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, mb)
}

func (s *Server) handleUpdateMapBlock(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if _, err := s.store.GetMapBlock(r.Context(), id); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	var mb store.MapBlock
	if err := decodeJSON(r, &mb); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	mb.ID = id
	if _, err := s.store.UpsertMapBlock(r.Context(), &mb); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, mb)
}

func (s *Server) handleDeleteMapBlock(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if err := s.store.DeleteMapBlock(r.Context(), id); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
