package hass

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

func CreateTestClient() *TestClient {
	return &TestClient{
		states: make(map[string]State),
	}
}

// TestClient is an in-memory Client with scriptable entity states.
// Every service call is recorded for later inspection.
type TestClient struct {
	mu            sync.Mutex
	states        map[string]State
	calls         []ServiceCall
	FailGetStates bool
	FailCalls     bool
}

func (c *TestClient) Open(ctx context.Context) error {
	return nil
}

func (c *TestClient) Close() error {
	return nil
}

func (c *TestClient) GetStates(ctx context.Context) (map[string]State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailGetStates {
		return nil, errors.New("get_states failed")
	}
	states := make(map[string]State, len(c.states))
	for k, v := range c.states {
		states[k] = v
	}
	return states, nil
}

func (c *TestClient) CallService(ctx context.Context, call ServiceCall) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailCalls {
		return errors.New("call_service failed")
	}
	c.calls = append(c.calls, call)
	return nil
}

func (c *TestClient) SetState(entityId, state string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[entityId] = State{EntityId: entityId, State: state}
}

func (c *TestClient) SetFloatState(entityId string, value float64) {
	c.SetState(entityId, fmt.Sprintf("%g", value))
}

// Calls returns a copy of the recorded service calls.
func (c *TestClient) Calls() []ServiceCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	calls := make([]ServiceCall, len(c.calls))
	copy(calls, c.calls)
	return calls
}

// CallsTo returns the recorded calls targeting the given entity.
func (c *TestClient) CallsTo(entityId string) []ServiceCall {
	var matching []ServiceCall
	for _, call := range c.Calls() {
		for _, id := range call.Target.EntityId {
			if id == entityId {
				matching = append(matching, call)
			}
		}
	}
	return matching
}

// ensure interface compliance
var _ Client = (*TestClient)(nil)
