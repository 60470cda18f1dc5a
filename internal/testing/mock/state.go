package mock

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"
)

type bodyKey struct{}

func withBody(ctx context.Context, body any) context.Context {
	return context.WithValue(ctx, bodyKey{}, body)
}

func bodyOf(r *http.Request) any {
	return r.Context().Value(bodyKey{})
}

// AddAgent stores an agent and returns its id.
func (s *Server) AddAgent(hostname string, fields Record) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := copyRecord(fields)
	rec["hostname"] = hostname
	rec["id"] = s.allocID()
	s.agents = append(s.agents, rec)
	return rec["id"].(int)
}

// AddGroup stores a group and returns its id.
func (s *Server) AddGroup(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.allocID()
	s.groups = append(s.groups, Record{"id": id, "name": name})
	return id
}

// AddSystem stores a system and returns its id.
func (s *Server) AddSystem(name string, fields Record) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := copyRecord(fields)
	rec["name"] = name
	rec["id"] = s.allocID()
	s.systems = append(s.systems, rec)
	return rec["id"].(int)
}

// AddVariable defines a variable that systems can be assigned.
func (s *Server) AddVariable(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.allocID()
	s.variables = append(s.variables, Record{"id": id, "name": name})
	return id
}

// AddProcess adds a process to the process tree and returns its id.
func (s *Server) AddProcess(fields Record) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := copyRecord(fields)
	rec["id"] = s.allocID()
	s.processes = append(s.processes, rec)
	return rec["id"].(int)
}

// AssignAgent assigns an agent to a system.
func (s *Server) AssignAgent(systemID, agentID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.systemAgents[systemID] = append(s.systemAgents[systemID], agentID)
}

// SetVariable assigns a variable value to a system.
func (s *Server) SetVariable(systemID, variableID int, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.variables, variableID)
	if i < 0 {
		s.t.Fatalf("variable %d does not exist", variableID)
	}
	s.systemVariables[systemID] = append(s.systemVariables[systemID],
		Record{"id": variableID, "name": s.variables[i]["name"], "value": value})
}

// AddCommand stores a command in a system and returns its id.
func (s *Server) AddCommand(systemID int, fields Record) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := copyRecord(fields)
	rec["id"] = s.allocID()
	s.decorateCommand(rec)
	s.commands[systemID] = append(s.commands[systemID], rec)
	return rec["id"].(int)
}

// Agents returns the stored agents.
func (s *Server) Agents() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.agents...)
}

// Groups returns the stored groups.
func (s *Server) Groups() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.groups...)
}

// Systems returns the stored systems.
func (s *Server) Systems() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.systems...)
}

// SystemAgentIDs returns the agent ids assigned to a system.
func (s *Server) SystemAgentIDs(systemID int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.systemAgents[systemID]...)
}

// SystemVariables returns the variables assigned to a system.
func (s *Server) SystemVariables(systemID int) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.systemVariables[systemID]...)
}

// Commands returns the commands of a system.
func (s *Server) Commands(systemID int) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.commands[systemID]...)
}

// Requests returns every authenticated request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Mutations returns the non-GET requests received so far.
func (s *Server) Mutations() []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method != http.MethodGet {
			out = append(out, r)
		}
	}
	return out
}

// ResetRequests clears the request log.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// FailNext makes the next request matching method and path (relative to
// /api) fail with status.
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = status
}

// ExpireTokens invalidates every issued token.
func (s *Server) ExpireTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = map[string]bool{}
}

// LagUnassign makes the next n agent unassignments report success without
// taking effect.
func (s *Server) LagUnassign(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unassignLag = n
}

// Fixture is the seed state read by LoadFixture.
type Fixture struct {
	Agents []struct {
		Hostname string `yaml:"hostname"`
		Fields   Record `yaml:"fields"`
	} `yaml:"agents"`
	Groups  []string `yaml:"groups"`
	Systems []struct {
		Name      string         `yaml:"name"`
		Fields    Record         `yaml:"fields"`
		Agents    []string       `yaml:"agents"`
		Variables map[string]any `yaml:"variables"`
		Commands  []Record       `yaml:"commands"`
	} `yaml:"systems"`
	Variables []string `yaml:"variables"`
	Processes []Record `yaml:"processes"`
}

// LoadFixture seeds the server from a YAML file.
func (s *Server) LoadFixture(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read fixture: %w", err)
	}
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}

	agentIDs := map[string]int{}
	for _, a := range fx.Agents {
		agentIDs[a.Hostname] = s.AddAgent(a.Hostname, a.Fields)
	}
	for _, g := range fx.Groups {
		s.AddGroup(g)
	}
	variableIDs := map[string]int{}
	for _, v := range fx.Variables {
		variableIDs[v] = s.AddVariable(v)
	}
	for _, p := range fx.Processes {
		s.AddProcess(p)
	}
	for _, sys := range fx.Systems {
		id := s.AddSystem(sys.Name, sys.Fields)
		for _, hostname := range sys.Agents {
			agentID, ok := agentIDs[hostname]
			if !ok {
				return fmt.Errorf("system %s: unknown agent %s", sys.Name, hostname)
			}
			s.AssignAgent(id, agentID)
		}
		for name, value := range sys.Variables {
			varID, ok := variableIDs[name]
			if !ok {
				return fmt.Errorf("system %s: unknown variable %s", sys.Name, name)
			}
			s.SetVariable(id, varID, value)
		}
		for _, cmd := range sys.Commands {
			s.AddCommand(id, cmd)
		}
	}
	return nil
}
