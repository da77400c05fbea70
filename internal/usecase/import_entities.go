package usecase

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/engine"
	"github.com/lollopanta/Projex-sub000/internal/usecase/shared"
)

// ImportDocument is the YAML shape accepted by ImportEntities.
// References may be plain ids or populated mappings with an "_id" or "id" key.
type ImportDocument struct {
	Users    []*domain.UserRecord    `yaml:"users"`
	Projects []*domain.ProjectRecord `yaml:"projects"`
	Tasks    []*domain.TaskRecord    `yaml:"tasks"`
}

// ImportEntitiesInput contains the parameters for importing entities.
type ImportEntitiesInput struct {
	Content []byte // YAML document
	DryRun  bool   // If true, validate without writing
}

// ImportEntitiesOutput contains the ids of the imported entities.
type ImportEntitiesOutput struct {
	Users    []string `json:"users"`
	Projects []string `json:"projects"`
	Tasks    []string `json:"tasks"`
}

// ImportEntities is the use case for bulk-loading users, projects and tasks.
type ImportEntities struct {
	repo   domain.Repository
	clock  domain.Clock
	logger domain.Logger
}

// NewImportEntities creates a new ImportEntities use case.
func NewImportEntities(repo domain.Repository, clock domain.Clock, logger domain.Logger) *ImportEntities {
	return &ImportEntities{repo: repo, clock: clock, logger: logger}
}

// Execute parses the document and writes it in one critical section.
// Every task's dependencies are validated against the existing tasks plus the
// imported ones; any failure aborts the whole import.
func (uc *ImportEntities) Execute(_ context.Context, in ImportEntitiesInput) (*ImportEntitiesOutput, error) {
	var doc ImportDocument
	if err := yaml.Unmarshal(in.Content, &doc); err != nil {
		return nil, fmt.Errorf("parse import document: %w", err)
	}
	doc.Users = slices.DeleteFunc(doc.Users, func(u *domain.UserRecord) bool { return u == nil })
	doc.Projects = slices.DeleteFunc(doc.Projects, func(p *domain.ProjectRecord) bool { return p == nil })
	doc.Tasks = slices.DeleteFunc(doc.Tasks, func(t *domain.TaskRecord) bool { return t == nil })

	now := uc.clock.Now()
	out := &ImportEntitiesOutput{}
	for _, u := range doc.Users {
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		if _, err := domain.ToUserSnapshot(u); err != nil {
			return nil, err
		}
		out.Users = append(out.Users, u.ID)
	}
	for _, p := range doc.Projects {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if _, err := domain.ToProjectSnapshot(p); err != nil {
			return nil, err
		}
		out.Projects = append(out.Projects, p.ID)
	}
	imported := make([]domain.TaskSnapshot, 0, len(doc.Tasks))
	for _, t := range doc.Tasks {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if t.UpdatedAt.IsZero() {
			t.UpdatedAt = t.CreatedAt
		}
		if _, err := t.Priority.Resolve(); err != nil {
			return nil, &domain.InvalidSnapshotError{Kind: "task", ID: t.ID, Field: "priority", Reason: err.Error()}
		}
		snap, err := domain.ToTaskSnapshot(t)
		if err != nil {
			return nil, err
		}
		imported = append(imported, snap)
		out.Tasks = append(out.Tasks, t.ID)
	}

	err := uc.repo.Atomic(func(tx domain.EntityStore) error {
		if err := uc.checkReferences(tx, doc); err != nil {
			return err
		}

		existing, err := shared.LoadGraph(tx)
		if err != nil {
			return err
		}
		shared.WarnSkipped(uc.logger, existing.Skipped())
		resolver := engine.NewResolver(shared.NewGraph(append(existing.Tasks(), imported...)))
		for _, t := range doc.Tasks {
			deps, err := resolver.ValidateDependencies(t.ID, t.DependencyIDs())
			if err != nil {
				return fmt.Errorf("task %s: %w", t.ID, err)
			}
			t.Dependencies = domain.Refs(deps...)
		}

		if in.DryRun {
			return nil
		}
		return uc.write(tx, doc)
	})
	if err != nil {
		return nil, err
	}

	if uc.logger != nil && !in.DryRun {
		uc.logger.Info("", "import", fmt.Sprintf("imported %d users, %d projects, %d tasks",
			len(out.Users), len(out.Projects), len(out.Tasks)))
	}
	return out, nil
}

// checkReferences ensures assignees and projects resolve to stored or imported entities.
func (uc *ImportEntities) checkReferences(tx domain.EntityStore, doc ImportDocument) error {
	users := make(map[string]bool, len(doc.Users))
	for _, u := range doc.Users {
		users[u.ID] = true
	}
	projects := make(map[string]bool, len(doc.Projects))
	for _, p := range doc.Projects {
		projects[p.ID] = true
	}

	for _, t := range doc.Tasks {
		for _, a := range t.Assignees {
			if users[a.ID] {
				continue
			}
			if _, err := shared.GetUser(tx, a.ID); err != nil {
				return fmt.Errorf("task %s: %w", t.ID, err)
			}
			users[a.ID] = true
		}
		if t.Project == nil || t.Project.ID == "" || projects[t.Project.ID] {
			continue
		}
		if _, err := shared.GetProject(tx, t.Project.ID); err != nil {
			return fmt.Errorf("task %s: %w", t.ID, err)
		}
		projects[t.Project.ID] = true
	}
	return nil
}

func (uc *ImportEntities) write(tx domain.EntityStore, doc ImportDocument) error {
	for _, u := range doc.Users {
		if err := tx.SaveUser(u); err != nil {
			return fmt.Errorf("save user %s: %w", u.ID, err)
		}
	}
	for _, p := range doc.Projects {
		if err := tx.SaveProject(p); err != nil {
			return fmt.Errorf("save project %s: %w", p.ID, err)
		}
	}
	for _, t := range doc.Tasks {
		if err := tx.SaveTask(t); err != nil {
			return fmt.Errorf("save task %s: %w", t.ID, err)
		}
		if t.Project != nil && t.Project.ID != "" {
			if err := attachToProject(tx, t.Project.ID, t.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
