package kernel

import "sync"

// State is the shared, mutable map a task inherits from the task that spawned it.
// Nested tasks hold the same instance as their parent.
type State struct {
	mu   sync.RWMutex
	data map[string]any
}

func NewState(seed map[string]any) *State {
	s := &State{data: make(map[string]any, len(seed))}
	for k, v := range seed {
		s.data[k] = v
	}
	return s
}

func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *State) Set(key string, value any) {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
}

func (s *State) Delete(key string) {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
}

func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Snapshot copies the current contents.
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// Merge writes every entry of m into s; incoming keys win. Empty input is a no-op.
func (s *State) Merge(m map[string]any) {
	if len(m) == 0 {
		return
	}
	s.mu.Lock()
	for k, v := range m {
		s.data[k] = v
	}
	s.mu.Unlock()
}

// NewTaskState picks the state for a new task: the parent's instance with the
// explicit entries merged in, or a fresh state for a top-level task.
func NewTaskState(parent *Task, explicit map[string]any) *State {
	if parent == nil || parent.state == nil {
		return NewState(explicit)
	}
	parent.state.Merge(explicit)
	return parent.state
}
