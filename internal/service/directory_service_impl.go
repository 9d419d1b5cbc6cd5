package service

import (
	"context"
	"strings"

	"github.com/alexanderramin/foreman/internal/domain"
	"github.com/alexanderramin/foreman/internal/repository"
)

type directoryService struct {
	projects  repository.ProjectRepo
	resources repository.ResourceRepo
	clock     Clock
}

func NewDirectoryService(projects repository.ProjectRepo, resources repository.ResourceRepo, clock Clock) DirectoryService {
	return &directoryService{projects: projects, resources: resources, clock: clock}
}

func (s *directoryService) AddProject(ctx context.Context, name string) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Validationf("project name is required")
	}
	p := &domain.Project{ID: newID(), Name: name, CreatedAt: s.clock.now()}
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *directoryService) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	return s.projects.GetByID(ctx, id)
}

func (s *directoryService) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	return s.projects.List(ctx)
}

func (s *directoryService) ProjectExists(ctx context.Context, id string) (bool, error) {
	_, err := s.projects.GetByID(ctx, id)
	if isNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (s *directoryService) AddResource(ctx context.Context, ref domain.ResourceRef, name, unit string) (*domain.Resource, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Validationf("resource name is required")
	}
	r := &domain.Resource{
		ID:        ref.ID(),
		Kind:      ref.Kind(),
		Name:      name,
		Unit:      strings.TrimSpace(unit),
		CreatedAt: s.clock.now(),
	}
	if err := s.resources.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *directoryService) ListResources(ctx context.Context, kind domain.ResourceKind) ([]*domain.Resource, error) {
	return s.resources.List(ctx, kind)
}

func (s *directoryService) ResourceExists(ctx context.Context, ref domain.ResourceRef) (bool, error) {
	if err := ref.Validate(); err != nil {
		return false, err
	}
	_, err := s.resources.Get(ctx, ref)
	if isNotFound(err) {
		return false, nil
	}
	return err == nil, err
}
