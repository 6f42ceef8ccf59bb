package daemon

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/0ximu/mu/internal/graph"
	"github.com/0ximu/mu/internal/graphalgo"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, env := statusFor(err)
	writeJSON(w, status, map[string]errorEnvelope{"error": env})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

func edgeTypes(raw []string) []graph.EdgeType {
	out := make([]graph.EdgeType, 0, len(raw))
	for _, s := range raw {
		out = append(out, graph.EdgeType(strings.ToUpper(s)))
	}
	return out
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	p, err := s.registry.resolve(r.URL.Query().Get("cwd"))
	stats := map[string]any{}
	mubase := ""
	if err == nil {
		st, serr := p.store.Stats()
		if serr == nil {
			stats = map[string]any{
				"node_count":    st.NodeCount,
				"edge_count":    st.EdgeCount,
				"nodes_by_type": st.NodesByType,
				"edges_by_type": st.EdgesByType,
			}
		}
		mubase = p.store.Path()
	}

	status := "ok"
	if err == nil && p.degraded() {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status:        status,
		UptimeSeconds: s.uptime().Seconds(),
		Connections:   s.hub.connectionCount(),
		Stats:         stats,
		PID:           s.pid,
		MubasePath:    mubase,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]errorEnvelope{"error": {Kind: "IOError", Message: err.Error()}})
		return
	}
	p, err := s.registry.resolve(req.Cwd)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := p.engine.Execute(r.Context(), req.MUQL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleContext answers a natural-language question with the nodes
// whose names contain one of the question's words longer than two
// characters, in store order and capped at max_tokens nodes — a
// heuristic placeholder for a real ranking model, which is explicitly
// out of scope. Node paths are not searched and matches are not ranked.
func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	var req contextRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]errorEnvelope{"error": {Kind: "IOError", Message: err.Error()}})
		return
	}
	p, err := s.registry.resolve(req.Cwd)
	if err != nil {
		writeError(w, err)
		return
	}

	nodes, err := p.store.AllNodes()
	if err != nil {
		writeError(w, err)
		return
	}

	words := strings.Fields(strings.ToLower(req.Question))
	var matched []string
	for _, n := range nodes {
		name := strings.ToLower(n.Name)
		for _, word := range words {
			if len(word) > 2 && strings.Contains(name, word) {
				matched = append(matched, n.ID)
				break
			}
		}
	}

	limit := req.MaxTokens
	if limit <= 0 || limit > len(matched) {
		limit = len(matched)
	}
	matched = matched[:limit]

	writeJSON(w, http.StatusOK, contextResponse{
		Text:  fmt.Sprintf("%d node(s) matched the question", len(matched)),
		Nodes: matched,
	})
}

func (s *Server) handleImpact(w http.ResponseWriter, r *http.Request) {
	s.handleReachability(w, r, func(snap *graphalgo.Snapshot, req nodeRequest) ([]string, error) {
		return snap.Impact(req.Node, edgeTypes(req.EdgeTypes)...)
	})
}

func (s *Server) handleAncestors(w http.ResponseWriter, r *http.Request) {
	s.handleReachability(w, r, func(snap *graphalgo.Snapshot, req nodeRequest) ([]string, error) {
		return snap.Ancestors(req.Node, edgeTypes(req.EdgeTypes)...)
	})
}

func (s *Server) handleDeps(w http.ResponseWriter, r *http.Request) {
	s.handleReachability(w, r, func(snap *graphalgo.Snapshot, req nodeRequest) ([]string, error) {
		var (
			ids []string
			err error
		)
		if strings.EqualFold(req.Direction, "reverse") {
			ids, err = snap.Ancestors(req.Node, edgeTypes(req.EdgeTypes)...)
		} else {
			ids, err = snap.Impact(req.Node, edgeTypes(req.EdgeTypes)...)
		}
		if err != nil {
			return nil, err
		}
		return capDepth(ids, req.Depth), nil
	})
}

// capDepth is a coarse cap on result size proportional to depth, since
// Snapshot.Impact/Ancestors do not themselves take a depth limit.
func capDepth(ids []string, depth int) []string {
	if depth <= 0 {
		return ids
	}
	limit := depth * 200
	if len(ids) > limit {
		return ids[:limit]
	}
	return ids
}

func (s *Server) handleReachability(w http.ResponseWriter, r *http.Request, fn func(*graphalgo.Snapshot, nodeRequest) ([]string, error)) {
	var req nodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]errorEnvelope{"error": {Kind: "IOError", Message: err.Error()}})
		return
	}
	p, err := s.registry.resolve(req.Cwd)
	if err != nil {
		writeError(w, err)
		return
	}

	key := cacheKey(r.URL.Path, req)
	if cached, ok := p.cache.get(key); ok {
		writeJSON(w, http.StatusOK, idsResponse{Nodes: cached.([]string)})
		return
	}

	snap, err := p.snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	ids, err := fn(snap, req)
	if err != nil {
		writeError(w, err)
		return
	}
	p.cache.put(key, ids)
	writeJSON(w, http.StatusOK, idsResponse{Nodes: ids})
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	var req cyclesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]errorEnvelope{"error": {Kind: "IOError", Message: err.Error()}})
		return
	}
	p, err := s.registry.resolve(req.Cwd)
	if err != nil {
		writeError(w, err)
		return
	}

	key := cacheKey(r.URL.Path, req)
	if cached, ok := p.cache.get(key); ok {
		writeJSON(w, http.StatusOK, cyclesResponse{Cycles: cached.([][]string)})
		return
	}

	snap, err := p.snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	cycles := snap.FindCycles(edgeTypes(req.EdgeTypes)...)
	p.cache.put(key, cycles)
	writeJSON(w, http.StatusOK, cyclesResponse{Cycles: cycles})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.hub.serveHTTP(w, r)
}

func cacheKey(path string, req any) string {
	data, _ := json.Marshal(req)
	return path + "|" + string(data)
}
