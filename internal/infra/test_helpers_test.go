package infra

import (
	"errors"
	"os"
	"sync"

	"github.com/eliteGoblin/focusd/winfit/internal/domain"
)

// mockProcessManager is a test double for ProcessManager
type mockProcessManager struct {
	mu      sync.Mutex
	pids    []int
	apps    map[int]domain.App
	names   map[int]string
	listErr error
}

func newMockProcessManager() *mockProcessManager {
	return &mockProcessManager{
		apps:  make(map[int]domain.App),
		names: make(map[int]string),
	}
}

func (m *mockProcessManager) ListPIDs() ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]int(nil), m.pids...), nil
}

func (m *mockProcessManager) LookupApp(pid int) (domain.App, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[pid]
	return app, ok
}

func (m *mockProcessManager) AppName(pid int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if app, ok := m.apps[pid]; ok {
		return app.Name, nil
	}
	if name, ok := m.names[pid]; ok {
		return name, nil
	}
	return "", errors.New("no such process")
}

func (m *mockProcessManager) IsRunning(pid int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pids {
		if p == pid {
			return true
		}
	}
	return false
}

func (m *mockProcessManager) GetCurrentPID() int {
	return os.Getpid()
}

// addApp makes pid a running bundled application.
func (m *mockProcessManager) addApp(pid int, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pids = append(m.pids, pid)
	m.apps[pid] = domain.App{PID: pid, Name: name}
}

// addProcess makes pid a running non-bundled process.
func (m *mockProcessManager) addProcess(pid int, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pids = append(m.pids, pid)
	m.names[pid] = name
}

// Ensure mockProcessManager implements domain.ProcessManager
var _ domain.ProcessManager = (*mockProcessManager)(nil)
