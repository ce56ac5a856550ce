package service

import (
	"context"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/guard"
	"github.com/boddenberg/project-portal-go/internal/port"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
)

// PhasesHook owns the ordered phases of one project for one caller.
type PhasesHook struct {
	state[domain.Phase]
	base

	store     port.PhaseStore
	projects  port.ProjectStore
	projectID string
	status    domain.PhaseStatus
}

// NewPhasesHook creates a hook scoped to projectID, optionally filtered by status.
func NewPhasesHook(deps HookDeps, caller *guard.Identity, projectID string, status domain.PhaseStatus) *PhasesHook {
	return &PhasesHook{
		base:      newBase("phases", deps, caller),
		store:     deps.Store,
		projects:  deps.Store,
		projectID: projectID,
		status:    status,
	}
}

// Fetch loads the phases by order_index ascending.
func (h *PhasesHook) Fetch(ctx context.Context) bool {
	ctx, span := hookTracer.Start(ctx, "PhasesHook.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("project_id", h.projectID))

	h.begin()
	items, err := h.load(ctx)
	if err != nil {
		h.fail(h.report(ctx, "load phases", err), err)
		return false
	}
	h.succeed(items)
	return true
}

func (h *PhasesHook) load(ctx context.Context) ([]domain.Phase, error) {
	if _, err := authorizeProject(ctx, h.projects, h.caller, h.projectID); err != nil {
		return nil, err
	}
	items, err := h.store.ListPhases(ctx, domain.PhaseFilter{ProjectID: h.projectID, Status: h.status})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Phase{}
	}
	domain.SortPhases(items)
	return items, nil
}

// Create appends a phase (order_index defaults to last+1), then refetches.
func (h *PhasesHook) Create(ctx context.Context, in domain.PhaseInput) bool {
	ctx, span := hookTracer.Start(ctx, "PhasesHook.Create")
	defer span.End()

	h.begin()
	in.ProjectID = h.projectID
	err := h.ensureLoaded(ctx, "create phases")
	if err == nil {
		err = in.Validate()
	}
	if err == nil {
		if in.OrderIndex <= 0 {
			in.OrderIndex, err = h.nextOrderIndex(ctx)
		}
	}
	if err == nil {
		_, err = h.store.CreatePhase(ctx, in)
	}
	if err != nil {
		h.fail(h.report(ctx, "create phase", err), err)
		return false
	}
	h.success(ctx, "Phase created")
	return h.Fetch(ctx)
}

// nextOrderIndex appends after the project's last phase. A status-filtered
// hook holds only a subset, so it asks the store for the full list.
func (h *PhasesHook) nextOrderIndex(ctx context.Context) (int, error) {
	if h.status == "" {
		return domain.NextOrderIndex(h.Items()), nil
	}
	all, err := h.store.ListPhases(ctx, domain.PhaseFilter{ProjectID: h.projectID})
	if err != nil {
		return 0, err
	}
	return domain.NextOrderIndex(all), nil
}

// Update writes the change and patches the held phase in place, keeping order.
func (h *PhasesHook) Update(ctx context.Context, phaseID string, update domain.PhaseUpdate) bool {
	ctx, span := hookTracer.Start(ctx, "PhasesHook.Update")
	defer span.End()

	h.begin()
	updated, err := h.update(ctx, phaseID, update)
	if err != nil {
		h.fail(h.report(ctx, "update phase", err), err)
		return false
	}
	h.patch(*updated)
	h.success(ctx, "Phase updated")
	return true
}

// UpdateProgress clamps progress into [0,100] and derives the status change.
func (h *PhasesHook) UpdateProgress(ctx context.Context, phaseID string, progress int) bool {
	ctx, span := hookTracer.Start(ctx, "PhasesHook.UpdateProgress")
	defer span.End()

	if err := h.ensureLoaded(ctx, "update phases"); err != nil {
		h.fail(h.report(ctx, "update phase progress", err), err)
		return false
	}
	current, ok := h.Item(phaseID)
	if !ok {
		err := &domain.ErrNotFound{Resource: "phase", ID: phaseID}
		h.fail(h.report(ctx, "update phase progress", err), err)
		return false
	}
	return h.Update(ctx, phaseID, domain.ProgressUpdate(current.Status, progress))
}

// Delete removes a phase, then refetches.
func (h *PhasesHook) Delete(ctx context.Context, phaseID string) bool {
	ctx, span := hookTracer.Start(ctx, "PhasesHook.Delete")
	defer span.End()

	h.begin()
	err := h.checkMember(ctx, phaseID, "delete phases")
	if err == nil {
		err = h.store.DeletePhase(ctx, phaseID)
	}
	if err != nil {
		h.fail(h.report(ctx, "delete phase", err), err)
		return false
	}
	h.success(ctx, "Phase deleted")
	return h.Fetch(ctx)
}

// Reorder persists the full ordering in one write and replaces local state
// with order_index 1..N.
func (h *PhasesHook) Reorder(ctx context.Context, phaseIDs []string) bool {
	ctx, span := hookTracer.Start(ctx, "PhasesHook.Reorder")
	defer span.End()
	span.SetAttributes(attribute.Int("phases", len(phaseIDs)))

	h.begin()
	ordered, err := h.reorder(ctx, phaseIDs)
	if err != nil {
		h.fail(h.report(ctx, "reorder phases", err), err)
		return false
	}
	h.succeed(domain.Reindex(ordered))
	h.success(ctx, "Phases reordered")
	return true
}

func (h *PhasesHook) reorder(ctx context.Context, phaseIDs []string) ([]domain.Phase, error) {
	if err := h.ensureLoaded(ctx, "reorder phases"); err != nil {
		return nil, err
	}
	if h.status != "" {
		return nil, &domain.ErrValidation{Field: "phase_ids", Message: "cannot reorder a status-filtered list"}
	}
	held := lo.KeyBy(h.Items(), func(p domain.Phase) string { return p.ID })
	if len(phaseIDs) != len(held) || len(lo.Uniq(phaseIDs)) != len(phaseIDs) {
		return nil, &domain.ErrValidation{Field: "phase_ids", Message: "must list every phase of the project exactly once"}
	}
	ordered := make([]domain.Phase, 0, len(phaseIDs))
	for _, id := range phaseIDs {
		p, ok := held[id]
		if !ok {
			return nil, &domain.ErrValidation{Field: "phase_ids", Message: "unknown phase " + id}
		}
		ordered = append(ordered, p)
	}
	if err := h.store.ReorderPhases(ctx, h.projectID, phaseIDs); err != nil {
		return nil, err
	}
	return ordered, nil
}

// Item returns a held phase by id.
func (h *PhasesHook) Item(phaseID string) (domain.Phase, bool) {
	return lo.Find(h.Items(), func(p domain.Phase) bool { return p.ID == phaseID })
}

// Stats derives counts and average progress from the held phases.
func (h *PhasesHook) Stats() domain.PhaseStats {
	return domain.ComputePhaseStats(h.Items())
}

func (h *PhasesHook) update(ctx context.Context, phaseID string, update domain.PhaseUpdate) (*domain.Phase, error) {
	if err := h.checkMember(ctx, phaseID, "update phases"); err != nil {
		return nil, err
	}
	if err := update.Validate(); err != nil {
		return nil, err
	}
	return h.store.UpdatePhase(ctx, phaseID, update)
}

func (h *PhasesHook) patch(updated domain.Phase) {
	items := lo.Map(h.Items(), func(p domain.Phase, _ int) domain.Phase {
		if p.ID == updated.ID {
			return updated
		}
		return p
	})
	domain.SortPhases(items)
	h.succeed(items)
}

// ensureLoaded enforces the staff rule and loads the held phases once.
func (h *PhasesHook) ensureLoaded(ctx context.Context, action string) error {
	if err := requireStaff(h.caller, action); err != nil {
		return err
	}
	if h.isLoaded() {
		return nil
	}
	items, err := h.load(ctx)
	if err != nil {
		return err
	}
	h.succeed(items)
	h.begin()
	return nil
}

func (h *PhasesHook) checkMember(ctx context.Context, phaseID, action string) error {
	if err := h.ensureLoaded(ctx, action); err != nil {
		return err
	}
	if _, ok := h.Item(phaseID); !ok {
		return &domain.ErrNotFound{Resource: "phase", ID: phaseID}
	}
	return nil
}
