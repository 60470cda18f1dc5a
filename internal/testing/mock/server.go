package mock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Record is a JSON object held by the fake API.
type Record = map[string]any

// Request is one call received by the server.
type Request struct {
	Method string
	Path   string
	Body   any
}

func (r Request) String() string {
	return r.Method + " " + r.Path
}

// Default credentials accepted by the server.
const (
	Username = "admin"
	Password = "secret"
)

// Server is an in-memory ALPACA Operator API.
type Server struct {
	t   testing.TB
	srv *httptest.Server

	mu       sync.Mutex
	nextID   int
	logins   int
	tokens   map[string]bool
	requests []Request
	failures map[string]int

	agents    []Record
	groups    []Record
	systems   []Record
	variables []Record
	processes []Record

	systemAgents    map[int][]int
	systemVariables map[int][]Record
	commands        map[int][]Record

	// unassignLag lets DELETE /systems/{id}/agents/{agentId} report success
	// without removing the assignment, the given number of times.
	unassignLag int
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	s := &Server{
		t:               t,
		nextID:          1,
		tokens:          map[string]bool{},
		failures:        map[string]int{},
		systemAgents:    map[int][]int{},
		systemVariables: map[int][]Record{},
		commands:        map[int][]Record{},
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

// APIURL returns the base URL clients should use, ending in /api.
func (s *Server) APIURL() string {
	return s.srv.URL + "/api"
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	mux.HandleFunc("GET /api/agents", s.list(&s.agents))
	mux.HandleFunc("POST /api/agents", s.create(&s.agents, nil))
	mux.HandleFunc("GET /api/agents/{id}", s.get(&s.agents))
	mux.HandleFunc("PUT /api/agents/{id}", s.update(&s.agents, http.StatusOK, nil))
	mux.HandleFunc("DELETE /api/agents/{id}", s.remove(&s.agents, http.StatusNoContent))

	mux.HandleFunc("GET /api/groups", s.list(&s.groups))
	mux.HandleFunc("POST /api/groups", s.create(&s.groups, nil))
	mux.HandleFunc("PUT /api/groups/{id}", s.update(&s.groups, http.StatusOK, nil))
	mux.HandleFunc("DELETE /api/groups/{id}", s.remove(&s.groups, http.StatusNoContent))

	mux.HandleFunc("GET /api/systems", s.list(&s.systems))
	mux.HandleFunc("POST /api/systems", s.create(&s.systems, stripPassword))
	mux.HandleFunc("GET /api/systems/{id}", s.get(&s.systems))
	mux.HandleFunc("PUT /api/systems/{id}", s.update(&s.systems, http.StatusOK, stripPassword))
	mux.HandleFunc("DELETE /api/systems/{id}", s.remove(&s.systems, http.StatusNoContent))

	mux.HandleFunc("GET /api/systems/{id}/agents", s.handleSystemAgents)
	mux.HandleFunc("POST /api/systems/{id}/agents", s.handleAssignAgent)
	mux.HandleFunc("DELETE /api/systems/{id}/agents/{agentId}", s.handleUnassignAgent)
	mux.HandleFunc("GET /api/systems/{id}/variables", s.handleSystemVariables)
	mux.HandleFunc("POST /api/systems/{id}/variables", s.handleSetVariables)

	mux.HandleFunc("GET /api/systems/{id}/commands", s.handleCommands)
	mux.HandleFunc("POST /api/systems/{id}/commands", s.handleCreateCommand)
	mux.HandleFunc("GET /api/systems/{id}/commands/{cid}", s.handleCommand)
	mux.HandleFunc("PUT /api/systems/{id}/commands/{cid}", s.handleUpdateCommand)
	mux.HandleFunc("DELETE /api/systems/{id}/commands/{cid}", s.handleDeleteCommand)

	mux.HandleFunc("GET /api/variables", s.list(&s.variables))
	mux.HandleFunc("GET /api/processes/tree", s.handleProcessTree)

	return s.record(mux)
}

// record logs every request, enforces authentication and applies injected
// failures before handing over to the mux.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body any
		if r.Body != nil {
			var buf bytes.Buffer
			_, _ = buf.ReadFrom(r.Body)
			if buf.Len() > 0 {
				dec := json.NewDecoder(bytes.NewReader(buf.Bytes()))
				dec.UseNumber()
				if err := dec.Decode(&body); err != nil {
					http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
					return
				}
			}
		}
		path := strings.TrimPrefix(r.URL.Path, "/api")

		s.mu.Lock()
		if path != "/auth/login" {
			s.requests = append(s.requests, Request{Method: r.Method, Path: path, Body: body})
		}
		status, fail := s.failures[r.Method+" "+path]
		if fail {
			delete(s.failures, r.Method+" "+path)
		}
		authorized := s.tokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		s.mu.Unlock()

		if fail {
			http.Error(w, fmt.Sprintf("injected failure for %s %s", r.Method, path), status)
			return
		}
		if path != "/auth/login" && !authorized {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		r = r.WithContext(withBody(r.Context(), body))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	creds, _ := bodyOf(r).(map[string]any)
	if creds["username"] != Username || creds["password"] != Password {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	s.mu.Lock()
	s.logins++
	token := fmt.Sprintf("token-%d", s.logins)
	s.tokens[token] = true
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, Record{"token": token})
}

func (s *Server) list(items *[]Record) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, *items)
	}
}

func (s *Server) get(items *[]Record) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if i := indexOf(*items, pathID(r, "id")); i >= 0 {
			writeJSON(w, http.StatusOK, (*items)[i])
			return
		}
		http.NotFound(w, r)
	}
}

func (s *Server) create(items *[]Record, sanitize func(Record)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := bodyOf(r).(map[string]any)
		if !ok {
			http.Error(w, "expected an object", http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		rec = copyRecord(rec)
		if sanitize != nil {
			sanitize(rec)
		}
		rec["id"] = s.allocID()
		*items = append(*items, rec)
		writeJSON(w, http.StatusCreated, rec)
	}
}

func (s *Server) update(items *[]Record, status int, sanitize func(Record)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := bodyOf(r).(map[string]any)
		if !ok {
			http.Error(w, "expected an object", http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		i := indexOf(*items, pathID(r, "id"))
		if i < 0 {
			http.NotFound(w, r)
			return
		}
		updated := copyRecord((*items)[i])
		for k, v := range rec {
			updated[k] = v
		}
		if sanitize != nil {
			sanitize(updated)
		}
		updated["id"] = (*items)[i]["id"]
		(*items)[i] = updated
		writeJSON(w, status, updated)
	}
}

func (s *Server) remove(items *[]Record, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		i := indexOf(*items, pathID(r, "id"))
		if i < 0 {
			http.NotFound(w, r)
			return
		}
		*items = append((*items)[:i], (*items)[i+1:]...)
		w.WriteHeader(status)
	}
}

func (s *Server) handleSystemAgents(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sysID := pathID(r, "id")
	if indexOf(s.systems, sysID) < 0 {
		http.NotFound(w, r)
		return
	}
	out := []Record{}
	for _, agentID := range s.systemAgents[sysID] {
		if i := indexOf(s.agents, agentID); i >= 0 {
			out = append(out, Record{"id": agentID, "name": s.agents[i]["hostname"]})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAssignAgent(w http.ResponseWriter, r *http.Request) {
	rec, _ := bodyOf(r).(map[string]any)
	agentID := toInt(rec["id"])

	s.mu.Lock()
	defer s.mu.Unlock()
	sysID := pathID(r, "id")
	if indexOf(s.systems, sysID) < 0 || indexOf(s.agents, agentID) < 0 {
		http.NotFound(w, r)
		return
	}
	for _, id := range s.systemAgents[sysID] {
		if id == agentID {
			http.Error(w, "agent already assigned", http.StatusConflict)
			return
		}
	}
	s.systemAgents[sysID] = append(s.systemAgents[sysID], agentID)
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleUnassignAgent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sysID, agentID := pathID(r, "id"), pathID(r, "agentId")
	if s.unassignLag > 0 {
		s.unassignLag--
		w.WriteHeader(http.StatusNoContent)
		return
	}
	assigned := s.systemAgents[sysID]
	for i, id := range assigned {
		if id == agentID {
			s.systemAgents[sysID] = append(assigned[:i:i], assigned[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	http.NotFound(w, r)
}

func (s *Server) handleSystemVariables(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sysID := pathID(r, "id")
	if indexOf(s.systems, sysID) < 0 {
		http.NotFound(w, r)
		return
	}
	out := []Record{}
	out = append(out, s.systemVariables[sysID]...)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSetVariables(w http.ResponseWriter, r *http.Request) {
	assignments, ok := bodyOf(r).([]any)
	if !ok {
		http.Error(w, "expected a list", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sysID := pathID(r, "id")
	if indexOf(s.systems, sysID) < 0 {
		http.NotFound(w, r)
		return
	}
	vars := []Record{}
	for _, a := range assignments {
		rec, _ := a.(map[string]any)
		varID := toInt(rec["id"])
		i := indexOf(s.variables, varID)
		if i < 0 {
			http.Error(w, fmt.Sprintf("unknown variable %d", varID), http.StatusBadRequest)
			return
		}
		vars = append(vars, Record{"id": varID, "name": s.variables[i]["name"], "value": rec["value"]})
	}
	s.systemVariables[sysID] = vars
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sysID := pathID(r, "id")
	if indexOf(s.systems, sysID) < 0 {
		http.NotFound(w, r)
		return
	}
	out := []Record{}
	for _, c := range s.commands[sysID] {
		out = append(out, Record{
			"id":            c["id"],
			"name":          c["name"],
			"processId":     c["processId"],
			"agentHostname": c["agentHostname"],
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cmds := s.commands[pathID(r, "id")]
	if i := indexOf(cmds, pathID(r, "cid")); i >= 0 {
		writeJSON(w, http.StatusOK, cmds[i])
		return
	}
	http.NotFound(w, r)
}

func (s *Server) handleCreateCommand(w http.ResponseWriter, r *http.Request) {
	rec, ok := bodyOf(r).(map[string]any)
	if !ok {
		http.Error(w, "expected an object", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sysID := pathID(r, "id")
	if indexOf(s.systems, sysID) < 0 {
		http.NotFound(w, r)
		return
	}
	rec = copyRecord(rec)
	rec["id"] = s.allocID()
	s.decorateCommand(rec)
	s.commands[sysID] = append(s.commands[sysID], rec)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleUpdateCommand(w http.ResponseWriter, r *http.Request) {
	rec, ok := bodyOf(r).(map[string]any)
	if !ok {
		http.Error(w, "expected an object", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sysID := pathID(r, "id")
	cmds := s.commands[sysID]
	i := indexOf(cmds, pathID(r, "cid"))
	if i < 0 {
		http.NotFound(w, r)
		return
	}
	updated := copyRecord(rec)
	updated["id"] = cmds[i]["id"]
	s.decorateCommand(updated)
	cmds[i] = updated
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCommand(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sysID := pathID(r, "id")
	cmds := s.commands[sysID]
	i := indexOf(cmds, pathID(r, "cid"))
	if i < 0 {
		http.NotFound(w, r)
		return
	}
	s.commands[sysID] = append(cmds[:i:i], cmds[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProcessTree(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, []Record{{"name": "Default", "processes": s.processes}})
}

func (s *Server) decorateCommand(rec Record) {
	if i := indexOf(s.agents, toInt(rec["agentId"])); i >= 0 {
		rec["agentHostname"] = s.agents[i]["hostname"]
	}
}

func (s *Server) allocID() int {
	id := s.nextID
	s.nextID++
	return id
}

func stripPassword(rec Record) {
	if rfc, ok := rec["rfcConnection"].(map[string]any); ok {
		rfc = copyRecord(rfc)
		delete(rfc, "password")
		rec["rfcConnection"] = rfc
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func pathID(r *http.Request, name string) int {
	id, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return -1
	}
	return id
}

func indexOf(items []Record, id int) int {
	for i, item := range items {
		if toInt(item["id"]) == id {
			return i
		}
	}
	return -1
}

func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case float64:
		return int(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}
	case string:
		if i, err := strconv.Atoi(t); err == nil {
			return i
		}
	}
	return -1
}

func copyRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
