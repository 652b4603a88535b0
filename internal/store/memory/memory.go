// Package memory provides an in-memory Store used when no database is
// configured. All data is lost on process exit.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/forgeline/stageflow/internal/model"
	"github.com/forgeline/stageflow/internal/store"
)

// MemoryStore keeps all workflow state in process memory, guarded by a
// single mutex. Transactions clone the full state and swap it back in
// on success, so a failed transaction leaves nothing behind.
type MemoryStore struct {
	mu sync.Mutex
	st *state
}

// state holds every table. Commits and events are append-only slices in
// id order; everything else is keyed by project.
type state struct {
	cursors    map[string]*model.Cursor
	viewStates map[string]map[string]*model.ViewState
	gates      map[string]map[string]*model.GateRecord
	commits    map[string][]*model.Commit
	events     map[string][]*model.Event

	nextCommitID map[string]int64
	nextEventID  int64
}

func newState() *state {
	return &state{
		cursors:      make(map[string]*model.Cursor),
		viewStates:   make(map[string]map[string]*model.ViewState),
		gates:        make(map[string]map[string]*model.GateRecord),
		commits:      make(map[string][]*model.Commit),
		events:       make(map[string][]*model.Event),
		nextCommitID: make(map[string]int64),
		nextEventID:  1,
	}
}

// New creates an empty in-memory store.
func New() *MemoryStore {
	return &MemoryStore{st: newState()}
}

var _ store.Store = (*MemoryStore)(nil)

func (m *MemoryStore) CreateCursor(ctx context.Context, cursor *model.Cursor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.createCursor(cursor)
}

func (m *MemoryStore) GetCursor(ctx context.Context, project string) (*model.Cursor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.getCursor(project)
}

func (m *MemoryStore) UpdateCursor(ctx context.Context, cursor *model.Cursor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.updateCursor(cursor)
}

func (m *MemoryStore) ListCursors(ctx context.Context) ([]*model.Cursor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.listCursors()
}

func (m *MemoryStore) GetViewState(ctx context.Context, project, user string) (*model.ViewState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.getViewState(project, user)
}

func (m *MemoryStore) PutViewState(ctx context.Context, vs *model.ViewState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.putViewState(vs)
}

func (m *MemoryStore) ListViewStates(ctx context.Context, project string) ([]*model.ViewState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.listViewStates(project)
}

func (m *MemoryStore) CreateGate(ctx context.Context, gate *model.GateRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.createGate(gate)
}

func (m *MemoryStore) GetGate(ctx context.Context, project, stageID string) (*model.GateRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.getGate(project, stageID)
}

func (m *MemoryStore) SaveGate(ctx context.Context, gate *model.GateRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.saveGate(gate)
}

func (m *MemoryStore) ListGates(ctx context.Context, project string) ([]*model.GateRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.listGates(project)
}

func (m *MemoryStore) AppendCommit(ctx context.Context, commit *model.Commit) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.appendCommit(commit)
}

func (m *MemoryStore) GetCommit(ctx context.Context, project string, id int64) (*model.Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.getCommit(project, id)
}

func (m *MemoryStore) ListCommits(ctx context.Context, project string, filter model.CommitFilter) ([]*model.Commit, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.listCommits(project, filter)
}

func (m *MemoryStore) ArtifactHead(ctx context.Context, project, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.artifactHead(project, name)
}

func (m *MemoryStore) ListArtifacts(ctx context.Context, project string) ([]*model.ArtifactState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.listArtifacts(project)
}

func (m *MemoryStore) RecordEvent(ctx context.Context, event *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.recordEvent(event)
}

func (m *MemoryStore) ListEvents(ctx context.Context, project string) ([]*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.listEvents(project)
}

// RunInTransaction clones the state, runs fn against the clone, and swaps
// the clone in only when fn succeeds.
func (m *MemoryStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := m.st.clone()
	if err := fn(&txStore{st: clone}); err != nil {
		return err
	}
	m.st = clone
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// txStore operates on a cloned state without locking; the outer mutex is
// held for the whole transaction.
type txStore struct {
	st *state
}

var _ store.Store = (*txStore)(nil)

func (t *txStore) CreateCursor(ctx context.Context, cursor *model.Cursor) error {
	return t.st.createCursor(cursor)
}

func (t *txStore) GetCursor(ctx context.Context, project string) (*model.Cursor, error) {
	return t.st.getCursor(project)
}

func (t *txStore) UpdateCursor(ctx context.Context, cursor *model.Cursor) error {
	return t.st.updateCursor(cursor)
}

func (t *txStore) ListCursors(ctx context.Context) ([]*model.Cursor, error) {
	return t.st.listCursors()
}

func (t *txStore) GetViewState(ctx context.Context, project, user string) (*model.ViewState, error) {
	return t.st.getViewState(project, user)
}

func (t *txStore) PutViewState(ctx context.Context, vs *model.ViewState) error {
	return t.st.putViewState(vs)
}

func (t *txStore) ListViewStates(ctx context.Context, project string) ([]*model.ViewState, error) {
	return t.st.listViewStates(project)
}

func (t *txStore) CreateGate(ctx context.Context, gate *model.GateRecord) error {
	return t.st.createGate(gate)
}

func (t *txStore) GetGate(ctx context.Context, project, stageID string) (*model.GateRecord, error) {
	return t.st.getGate(project, stageID)
}

func (t *txStore) SaveGate(ctx context.Context, gate *model.GateRecord) error {
	return t.st.saveGate(gate)
}

func (t *txStore) ListGates(ctx context.Context, project string) ([]*model.GateRecord, error) {
	return t.st.listGates(project)
}

func (t *txStore) AppendCommit(ctx context.Context, commit *model.Commit) (int64, error) {
	return t.st.appendCommit(commit)
}

func (t *txStore) GetCommit(ctx context.Context, project string, id int64) (*model.Commit, error) {
	return t.st.getCommit(project, id)
}

func (t *txStore) ListCommits(ctx context.Context, project string, filter model.CommitFilter) ([]*model.Commit, int, error) {
	return t.st.listCommits(project, filter)
}

func (t *txStore) ArtifactHead(ctx context.Context, project, name string) (int64, error) {
	return t.st.artifactHead(project, name)
}

func (t *txStore) ListArtifacts(ctx context.Context, project string) ([]*model.ArtifactState, error) {
	return t.st.listArtifacts(project)
}

func (t *txStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return t.st.recordEvent(event)
}

func (t *txStore) ListEvents(ctx context.Context, project string) ([]*model.Event, error) {
	return t.st.listEvents(project)
}

func (t *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	// Already inside a transaction; run against the same clone.
	return fn(t)
}

func (t *txStore) Close() error {
	return nil
}

func (s *state) createCursor(cursor *model.Cursor) error {
	s.cursors[cursor.Project] = cloneCursor(cursor)
	return nil
}

func (s *state) getCursor(project string) (*model.Cursor, error) {
	c, ok := s.cursors[project]
	if !ok {
		return nil, nil
	}
	return cloneCursor(c), nil
}

func (s *state) updateCursor(cursor *model.Cursor) error {
	s.cursors[cursor.Project] = cloneCursor(cursor)
	return nil
}

func (s *state) listCursors() ([]*model.Cursor, error) {
	out := make([]*model.Cursor, 0, len(s.cursors))
	for _, c := range s.cursors {
		out = append(out, cloneCursor(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Project < out[j].Project })
	return out, nil
}

func (s *state) getViewState(project, user string) (*model.ViewState, error) {
	vs, ok := s.viewStates[project][user]
	if !ok {
		return nil, nil
	}
	out := *vs
	return &out, nil
}

func (s *state) putViewState(vs *model.ViewState) error {
	if s.viewStates[vs.Project] == nil {
		s.viewStates[vs.Project] = make(map[string]*model.ViewState)
	}
	cp := *vs
	s.viewStates[vs.Project][vs.User] = &cp
	return nil
}

func (s *state) listViewStates(project string) ([]*model.ViewState, error) {
	out := make([]*model.ViewState, 0, len(s.viewStates[project]))
	for _, vs := range s.viewStates[project] {
		cp := *vs
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User < out[j].User })
	return out, nil
}

func (s *state) createGate(gate *model.GateRecord) error {
	if s.gates[gate.Project] == nil {
		s.gates[gate.Project] = make(map[string]*model.GateRecord)
	}
	s.gates[gate.Project][gate.StageID] = cloneGate(gate)
	return nil
}

func (s *state) getGate(project, stageID string) (*model.GateRecord, error) {
	g, ok := s.gates[project][stageID]
	if !ok {
		return nil, nil
	}
	return cloneGate(g), nil
}

func (s *state) saveGate(gate *model.GateRecord) error {
	if s.gates[gate.Project] == nil {
		s.gates[gate.Project] = make(map[string]*model.GateRecord)
	}
	s.gates[gate.Project][gate.StageID] = cloneGate(gate)
	return nil
}

func (s *state) listGates(project string) ([]*model.GateRecord, error) {
	out := make([]*model.GateRecord, 0, len(s.gates[project]))
	for _, g := range s.gates[project] {
		out = append(out, cloneGate(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StageID < out[j].StageID })
	return out, nil
}

func (s *state) appendCommit(commit *model.Commit) (int64, error) {
	id := s.nextCommitID[commit.Project]
	if id == 0 {
		id = 1
	}
	s.nextCommitID[commit.Project] = id + 1

	cp := cloneCommit(commit)
	cp.ID = id
	if cp.Timestamp.IsZero() {
		cp.Timestamp = time.Now().UTC()
	}
	s.commits[commit.Project] = append(s.commits[commit.Project], cp)
	return id, nil
}

func (s *state) getCommit(project string, id int64) (*model.Commit, error) {
	for _, c := range s.commits[project] {
		if c.ID == id {
			return cloneCommit(c), nil
		}
	}
	return nil, nil
}

func (s *state) listCommits(project string, filter model.CommitFilter) ([]*model.Commit, int, error) {
	var matched []*model.Commit
	for _, c := range s.commits[project] {
		if filter.Stage != "" && c.StageID != filter.Stage {
			continue
		}
		if filter.Author != "" && c.Author != filter.Author {
			continue
		}
		matched = append(matched, c)
	}
	// Newest first.
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	out := make([]*model.Commit, 0, len(matched))
	for _, c := range matched {
		out = append(out, cloneCommit(c))
	}
	return out, total, nil
}

func (s *state) artifactHead(project, name string) (int64, error) {
	var head int64
	for _, c := range s.commits[project] {
		for _, a := range c.Artifacts {
			if a.Name == name && c.ID > head {
				head = c.ID
			}
		}
	}
	return head, nil
}

func (s *state) listArtifacts(project string) ([]*model.ArtifactState, error) {
	latest := make(map[string]*model.ArtifactState)
	for _, c := range s.commits[project] {
		for _, a := range c.Artifacts {
			prev, ok := latest[a.Name]
			if ok && prev.LastCommitID >= c.ID {
				continue
			}
			latest[a.Name] = &model.ArtifactState{
				Project:      project,
				StageID:      c.StageID,
				Name:         a.Name,
				LastCommitID: c.ID,
				LastAuthor:   c.Author,
				LastEditedAt: c.Timestamp,
			}
		}
	}
	out := make([]*model.ArtifactState, 0, len(latest))
	for _, st := range latest {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *state) recordEvent(event *model.Event) error {
	cp := *event
	cp.ID = s.nextEventID
	s.nextEventID++
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	if cp.Payload != nil {
		cp.Payload = append([]byte(nil), cp.Payload...)
	}
	s.events[event.Project] = append(s.events[event.Project], &cp)
	event.ID = cp.ID
	return nil
}

func (s *state) listEvents(project string) ([]*model.Event, error) {
	out := make([]*model.Event, 0, len(s.events[project]))
	for _, e := range s.events[project] {
		cp := *e
		if cp.Payload != nil {
			cp.Payload = append([]byte(nil), cp.Payload...)
		}
		out = append(out, &cp)
	}
	return out, nil
}

func (s *state) clone() *state {
	cp := newState()
	for k, v := range s.cursors {
		cp.cursors[k] = cloneCursor(v)
	}
	for proj, users := range s.viewStates {
		cp.viewStates[proj] = make(map[string]*model.ViewState, len(users))
		for u, vs := range users {
			v := *vs
			cp.viewStates[proj][u] = &v
		}
	}
	for proj, gates := range s.gates {
		cp.gates[proj] = make(map[string]*model.GateRecord, len(gates))
		for id, g := range gates {
			cp.gates[proj][id] = cloneGate(g)
		}
	}
	for proj, commits := range s.commits {
		list := make([]*model.Commit, 0, len(commits))
		for _, c := range commits {
			list = append(list, cloneCommit(c))
		}
		cp.commits[proj] = list
	}
	for proj, events := range s.events {
		list := make([]*model.Event, 0, len(events))
		for _, e := range events {
			ev := *e
			if ev.Payload != nil {
				ev.Payload = append([]byte(nil), ev.Payload...)
			}
			list = append(list, &ev)
		}
		cp.events[proj] = list
	}
	for k, v := range s.nextCommitID {
		cp.nextCommitID[k] = v
	}
	cp.nextEventID = s.nextEventID
	return cp
}

func cloneCursor(c *model.Cursor) *model.Cursor {
	cp := *c
	return &cp
}

func cloneGate(g *model.GateRecord) *model.GateRecord {
	cp := *g
	cp.Checklist = append([]model.ChecklistItem(nil), g.Checklist...)
	cp.Approvals = append([]model.Approval(nil), g.Approvals...)
	cp.AutoChecks = append([]model.AutoCheck(nil), g.AutoChecks...)
	return &cp
}

func cloneCommit(c *model.Commit) *model.Commit {
	cp := *c
	cp.Artifacts = append([]model.CommitArtifact(nil), c.Artifacts...)
	cp.LinkedItems = append([]model.LinkedItem(nil), c.LinkedItems...)
	if c.RollbackOf != nil {
		v := *c.RollbackOf
		cp.RollbackOf = &v
	}
	return &cp
}
