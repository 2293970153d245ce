package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/renovatehq/sowgen/internal/agents"
	"github.com/renovatehq/sowgen/pkg/models"
)

// recordingInvoker returns canned responses and records invocation order.
type recordingInvoker struct {
	mu        sync.Mutex
	order     []string
	failIDs   map[string]bool
	responses map[string]*models.AgentResponse
	priorSeen map[string][]string
}

func newRecordingInvoker() *recordingInvoker {
	return &recordingInvoker{
		failIDs:   make(map[string]bool),
		responses: make(map[string]*models.AgentResponse),
		priorSeen: make(map[string][]string),
	}
}

func (r *recordingInvoker) Invoke(ctx context.Context, agentID string, ic agents.InvocationContext) (*models.AgentResponse, error) {
	r.mu.Lock()
	r.order = append(r.order, agentID)
	for _, p := range ic.Prior {
		r.priorSeen[agentID] = append(r.priorSeen[agentID], p.AgentID)
	}
	r.mu.Unlock()

	if r.failIDs[agentID] {
		return nil, fmt.Errorf("%w: boom", agents.ErrInvocationFailed)
	}
	if resp, ok := r.responses[agentID]; ok {
		return resp, nil
	}
	return &models.AgentResponse{AgentID: agentID, Content: "ok"}, nil
}

func (r *recordingInvoker) pos(agentID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, id := range r.order {
		if id == agentID {
			return i
		}
	}
	return -1
}

func kitchenContext() models.ProjectContext {
	return models.ProjectContext{
		ProjectID:     "proj-1",
		Type:          models.ProjectTypeKitchen,
		UserResponses: map[string]string{"budget": "£25000"},
	}
}

func testOrchestrator(t *testing.T, inv Invoker) *Orchestrator {
	t.Helper()
	r, err := agents.NewRegistry(agents.DefaultCatalog())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return New(r, inv)
}

func TestGenerateDependencyOrder(t *testing.T) {
	inv := newRecordingInvoker()
	o := testOrchestrator(t, inv)

	_, used, err := o.Generate(context.Background(), GenerateInput{Context: kitchenContext()})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(used) == 0 {
		t.Fatal("expected agents to be used")
	}

	// Plastering depends on electrical and plumbing; tiling on plastering.
	if inv.pos("plastering-specialist") < inv.pos("electrical-specialist") {
		t.Error("plastering invoked before electrical")
	}
	if inv.pos("plastering-specialist") < inv.pos("plumbing-specialist") {
		t.Error("plastering invoked before plumbing")
	}
	if inv.pos("tiling-specialist") < inv.pos("plastering-specialist") {
		t.Error("tiling invoked before plastering")
	}
}

func TestGeneratePassesDependencyResponses(t *testing.T) {
	inv := newRecordingInvoker()
	o := testOrchestrator(t, inv)

	if _, _, err := o.Generate(context.Background(), GenerateInput{Context: kitchenContext()}); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	prior := inv.priorSeen["plastering-specialist"]
	want := map[string]bool{"electrical-specialist": false, "plumbing-specialist": false}
	for _, id := range prior {
		if _, ok := want[id]; ok {
			want[id] = true
		}
	}
	for id, seen := range want {
		if !seen {
			t.Errorf("plastering did not receive prior response from %s", id)
		}
	}
}

func TestGenerateRequiredFailureNoPartial(t *testing.T) {
	inv := newRecordingInvoker()
	inv.failIDs["plumbing-specialist"] = true
	o := testOrchestrator(t, inv)

	doc, used, err := o.Generate(context.Background(), GenerateInput{Context: kitchenContext()})
	if !errors.Is(err, ErrOrchestrationIncomplete) {
		t.Fatalf("error = %v, want ErrOrchestrationIncomplete", err)
	}
	if len(doc.Sections) != 0 || len(used) != 0 {
		t.Error("no partial document may be returned on required-agent failure")
	}
}

func TestGenerateOptionalFailureContinues(t *testing.T) {
	inv := newRecordingInvoker()
	inv.failIDs["decorating-specialist"] = true // optional in the default catalog
	o := testOrchestrator(t, inv)

	_, used, err := o.Generate(context.Background(), GenerateInput{Context: kitchenContext()})
	if err != nil {
		t.Fatalf("optional failure must not fail the pass: %v", err)
	}
	for _, id := range used {
		if id == "decorating-specialist" {
			t.Error("failed optional agent must not be listed as used")
		}
	}
}

func TestGenerateUnknownProjectType(t *testing.T) {
	r, err := agents.NewRegistry([]models.AIAgent{
		{ID: "custom-orchestrator", IsOrchestrator: true, ProjectTypes: []models.ProjectType{models.ProjectTypeCustom}},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	o := New(r, newRecordingInvoker())

	_, _, err = o.Generate(context.Background(), GenerateInput{
		Context: models.ProjectContext{ProjectID: "p", Type: models.ProjectTypeBathroom},
	})
	if !errors.Is(err, agents.ErrUnknownProjectType) {
		t.Errorf("error = %v, want ErrUnknownProjectType", err)
	}
}

func TestGenerateAgentsUsedIncludesOrchestrator(t *testing.T) {
	inv := newRecordingInvoker()
	o := testOrchestrator(t, inv)

	_, used, err := o.Generate(context.Background(), GenerateInput{Context: kitchenContext()})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if used[0] != "kitchen-orchestrator" {
		t.Errorf("agentsUsed[0] = %s, want kitchen-orchestrator", used[0])
	}
	if len(used) < 2 {
		t.Errorf("agentsUsed = %v, want orchestrator plus specialists", used)
	}
}
