package daemon

import (
	"context"
	"errors"
	"testing"

	"github.com/harunnryd/bursar/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubComponent struct {
	name    string
	deps    []string
	initErr error
	events  *[]string
}

func (s *stubComponent) Name() string           { return s.name }
func (s *stubComponent) Dependencies() []string { return s.deps }

func (s *stubComponent) Init(ctx context.Context) error {
	if s.events != nil {
		*s.events = append(*s.events, "init:"+s.name)
	}
	return s.initErr
}

func (s *stubComponent) Start(ctx context.Context) error {
	if s.events != nil {
		*s.events = append(*s.events, "start:"+s.name)
	}
	return nil
}

func (s *stubComponent) Stop(ctx context.Context) error {
	if s.events != nil {
		*s.events = append(*s.events, "stop:"+s.name)
	}
	return nil
}

func (s *stubComponent) Health(ctx context.Context) (*ComponentHealth, error) {
	return &ComponentHealth{Name: s.name, Healthy: true}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:  config.ServerConfig{Port: 8080},
		Context: config.ContextConfig{Workspace: t.TempDir()},
	}
}

func TestNewDaemonRequiresConfig(t *testing.T) {
	_, err := NewDaemon(nil)
	require.Error(t, err)
}

func TestInitOrderFollowsDependencies(t *testing.T) {
	d, err := NewDaemon(testConfig(t))
	require.NoError(t, err)

	var events []string
	// Registered out of dependency order on purpose.
	d.AddComponent(&stubComponent{name: "c", deps: []string{"b"}, events: &events})
	d.AddComponent(&stubComponent{name: "a", events: &events})
	d.AddComponent(&stubComponent{name: "b", deps: []string{"a"}, events: &events})

	require.NoError(t, d.initializeComponents(context.Background()))
	assert.Equal(t, []string{"init:a", "init:b", "init:c"}, events)
}

func TestShutdownReversesRegistrationOrder(t *testing.T) {
	d, err := NewDaemon(testConfig(t))
	require.NoError(t, err)

	var events []string
	d.AddComponent(&stubComponent{name: "first", events: &events})
	d.AddComponent(&stubComponent{name: "second", events: &events})

	require.NoError(t, d.shutdownComponents(context.Background()))
	assert.Equal(t, []string{"stop:second", "stop:first"}, events)
	assert.Equal(t, StatusStopped, d.Health())
}

func TestMissingDependencyIsRejected(t *testing.T) {
	d, err := NewDaemon(testConfig(t))
	require.NoError(t, err)

	d.AddComponent(&stubComponent{name: "a", deps: []string{"ghost"}})
	err = d.initializeComponents(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestCircularDependencyIsRejected(t *testing.T) {
	d, err := NewDaemon(testConfig(t))
	require.NoError(t, err)

	d.AddComponent(&stubComponent{name: "a", deps: []string{"b"}})
	d.AddComponent(&stubComponent{name: "b", deps: []string{"a"}})

	err = d.initializeComponents(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular")
}

func TestInitFailureSurfacesComponentName(t *testing.T) {
	d, err := NewDaemon(testConfig(t))
	require.NoError(t, err)

	d.AddComponent(&stubComponent{name: "broken", initErr: errors.New("no disk")})
	err = d.initializeComponents(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestValidateConfigRejectsBadPort(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Port = 0
	d, err := NewDaemon(cfg)
	require.NoError(t, err)

	require.Error(t, d.validateConfig())
}

func TestComponentLookup(t *testing.T) {
	d, err := NewDaemon(testConfig(t))
	require.NoError(t, err)

	comp := &stubComponent{name: "a"}
	d.AddComponent(comp)

	assert.Equal(t, comp, d.Component("a"))
	assert.Nil(t, d.Component("missing"))
}
