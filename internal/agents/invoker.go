package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/renovatehq/sowgen/pkg/models"
)

// Runner is the completion transport behind agent invocations.
// api.Client implements it; tests substitute a stub.
type Runner interface {
	// Complete sends one single-turn request and returns the response text.
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// InvocationContext is the structured context handed to one agent invocation.
type InvocationContext struct {
	// Project is the immutable project input.
	Project models.ProjectContext
	// Prior holds responses from the agent's already-completed dependencies.
	Prior []models.AgentResponse
	// Instructions carries extra directives, e.g. modification requests
	// from a review pass. May be empty.
	Instructions string
}

// InvokerConfig configures retry behavior for the Invoker.
type InvokerConfig struct {
	// MaxAttempts is the bound on invocation attempts. Defaults to 3.
	MaxAttempts int
	// Backoff is the base delay between attempts, doubled each retry.
	// Defaults to 2s.
	Backoff time.Duration
}

// Invoker invokes agents over a Runner with bounded retries.
// ErrInvocationFailed is retried with backoff; ErrAgentNotFound is not.
type Invoker struct {
	registry    *Registry
	runner      Runner
	maxAttempts int
	backoff     time.Duration
}

// NewInvoker creates an Invoker over the given registry and runner.
func NewInvoker(registry *Registry, runner Runner, cfg InvokerConfig) *Invoker {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	return &Invoker{
		registry:    registry,
		runner:      runner,
		maxAttempts: maxAttempts,
		backoff:     backoff,
	}
}

// Invoke runs one agent against the invocation context and returns its
// structured response. Transport failures are retried up to the configured
// bound; the final error wraps ErrInvocationFailed.
func (inv *Invoker) Invoke(ctx context.Context, agentID string, ic InvocationContext) (*models.AgentResponse, error) {
	agent, err := inv.registry.Agent(agentID)
	if err != nil {
		return nil, err
	}

	system := systemPrompt(agent)
	prompt := userPrompt(agent, ic)

	var lastErr error
	for attempt := 1; attempt <= inv.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := inv.backoff * time.Duration(1<<(attempt-2))
			log.Printf("[agents] %s: attempt %d/%d after %v", agentID, attempt, inv.maxAttempts, delay)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrInvocationFailed, ctx.Err())
			case <-time.After(delay):
			}
		}

		text, err := inv.runner.Complete(ctx, system, prompt)
		if err != nil {
			lastErr = err
			continue
		}

		resp := parseResponse(agent, text)
		return resp, nil
	}

	return nil, fmt.Errorf("%w: agent %s after %d attempts: %v",
		ErrInvocationFailed, agentID, inv.maxAttempts, lastErr)
}

// agentPayload is the JSON structure agents are instructed to reply with.
type agentPayload struct {
	Summary  string `json:"summary"`
	Sections []struct {
		Title          string   `json:"title"`
		Description    string   `json:"description"`
		Specifications []string `json:"specifications"`
		DependsOn      []string `json:"depends_on"`
	} `json:"sections"`
	Materials []struct {
		Name          string  `json:"name"`
		Quantity      float64 `json:"quantity"`
		Unit          string  `json:"unit"`
		EstimatedCost float64 `json:"estimated_cost"`
	} `json:"materials"`
	Labor []struct {
		Trade          string   `json:"trade"`
		Description    string   `json:"description"`
		PersonDays     float64  `json:"person_days"`
		Qualifications []string `json:"qualifications"`
		Section        string   `json:"section"`
		Parallel       bool     `json:"parallel"`
	} `json:"labor"`
	FollowUpQuestions []string `json:"follow_up_questions"`
	Recommendations   []string `json:"recommendations"`
}

// parseResponse extracts the structured payload from the raw response text.
// When no JSON payload can be parsed, the text is kept as free-form content
// so an orchestration pass never loses an agent's answer outright.
func parseResponse(agent *models.AIAgent, text string) *models.AgentResponse {
	resp := &models.AgentResponse{
		AgentID:         agent.ID,
		Content:         text,
		DependenciesMet: append([]string(nil), agent.Dependencies...),
	}

	raw := extractJSON(text)
	if raw == "" {
		return resp
	}

	var payload agentPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		log.Printf("[agents] %s: payload parse failed, keeping free-text response: %v", agent.ID, err)
		return resp
	}

	if payload.Summary != "" {
		resp.Content = payload.Summary
	}
	for _, s := range payload.Sections {
		resp.Sections = append(resp.Sections, models.Section{
			Title:          s.Title,
			Description:    s.Description,
			Specifications: s.Specifications,
			DependsOn:      s.DependsOn, // titles at this stage, resolved during aggregation
		})
	}
	for _, m := range payload.Materials {
		resp.Materials = append(resp.Materials, models.Material{
			Name:          m.Name,
			Quantity:      m.Quantity,
			Unit:          m.Unit,
			EstimatedCost: m.EstimatedCost,
		})
	}
	for _, l := range payload.Labor {
		resp.Labor = append(resp.Labor, models.LaborRequirement{
			Trade:            l.Trade,
			Description:      l.Description,
			PersonDays:       l.PersonDays,
			Qualifications:   l.Qualifications,
			SectionID:        l.Section, // section title, resolved during aggregation
			CanRunInParallel: l.Parallel,
		})
	}
	resp.FollowUpQuestions = payload.FollowUpQuestions
	resp.Recommendations = payload.Recommendations
	return resp
}

// extractJSON returns the outermost JSON object in the text, tolerating
// markdown code fences around it. Returns "" when no object is present.
func extractJSON(text string) string {
	cleaned := text
	if idx := strings.Index(cleaned, "```"); idx >= 0 {
		cleaned = strings.ReplaceAll(cleaned, "```json", "")
		cleaned = strings.ReplaceAll(cleaned, "```", "")
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return ""
	}
	return cleaned[start : end+1]
}
