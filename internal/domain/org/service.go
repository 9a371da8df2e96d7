package org

import (
	"context"
	"strings"

	"ems/internal/domain/auth"
	"ems/internal/domain/record"
)

type DepartmentStore interface {
	ListDepartments(ctx context.Context, includeInactive bool) ([]Department, error)
	GetDepartment(ctx context.Context, id string) (Department, error)
	CreateDepartment(ctx context.Context, d Department) (Department, error)
	UpdateDepartment(ctx context.Context, d Department) error
	SetDepartmentStatus(ctx context.Context, id string, status record.Status) error
	DeleteDepartment(ctx context.Context, id string) error
	CountDepartments(ctx context.Context) (int, error)
}

type PositionStore interface {
	ListPositions(ctx context.Context, includeInactive bool) ([]Position, error)
	GetPosition(ctx context.Context, id string) (Position, error)
	CreatePosition(ctx context.Context, p Position) (Position, error)
	UpdatePosition(ctx context.Context, p Position) error
	SetPositionStatus(ctx context.Context, id string, status record.Status) error
	DeletePosition(ctx context.Context, id string) error
	CountPositions(ctx context.Context) (int, error)
}

type DepartmentService struct {
	Store DepartmentStore
}

func NewDepartmentService(store DepartmentStore) *DepartmentService {
	return &DepartmentService{Store: store}
}

// List returns active departments by name; HR may include inactive ones.
func (s *DepartmentService) List(ctx context.Context, actor auth.Actor, includeInactive bool) ([]Department, error) {
	return s.Store.ListDepartments(ctx, includeInactive && actor.IsHR())
}

func (s *DepartmentService) Get(ctx context.Context, id string) (Department, error) {
	return s.Store.GetDepartment(ctx, id)
}

func (s *DepartmentService) Create(ctx context.Context, actor auth.Actor, d Department) (Department, error) {
	if !actor.IsHR() {
		return Department{}, ErrForbidden
	}
	d.Name = strings.TrimSpace(d.Name)
	d.Status = record.StatusActive
	return s.Store.CreateDepartment(ctx, d)
}

func (s *DepartmentService) Update(ctx context.Context, actor auth.Actor, d Department) error {
	if !actor.IsHR() {
		return ErrForbidden
	}
	if !d.Status.Valid() {
		d.Status = record.StatusActive
	}
	d.Name = strings.TrimSpace(d.Name)
	return s.Store.UpdateDepartment(ctx, d)
}

// Deactivate is the soft delete; it succeeds even while employees reference the row.
func (s *DepartmentService) Deactivate(ctx context.Context, actor auth.Actor, id string) error {
	if !actor.IsHR() {
		return ErrForbidden
	}
	return s.Store.SetDepartmentStatus(ctx, id, record.StatusInactive)
}

// Delete removes the row and fails with ErrInUse while employees reference it.
func (s *DepartmentService) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if !actor.IsHR() {
		return ErrForbidden
	}
	return s.Store.DeleteDepartment(ctx, id)
}

func (s *DepartmentService) Count(ctx context.Context) (int, error) {
	return s.Store.CountDepartments(ctx)
}

type PositionService struct {
	Store PositionStore
}

func NewPositionService(store PositionStore) *PositionService {
	return &PositionService{Store: store}
}

func (s *PositionService) List(ctx context.Context, actor auth.Actor, includeInactive bool) ([]Position, error) {
	return s.Store.ListPositions(ctx, includeInactive && actor.IsHR())
}

func (s *PositionService) Get(ctx context.Context, id string) (Position, error) {
	return s.Store.GetPosition(ctx, id)
}

func (s *PositionService) Create(ctx context.Context, actor auth.Actor, p Position) (Position, error) {
	if !actor.IsHR() {
		return Position{}, ErrForbidden
	}
	p.Title = strings.TrimSpace(p.Title)
	p.Status = record.StatusActive
	return s.Store.CreatePosition(ctx, p)
}

func (s *PositionService) Update(ctx context.Context, actor auth.Actor, p Position) error {
	if !actor.IsHR() {
		return ErrForbidden
	}
	if !p.Status.Valid() {
		p.Status = record.StatusActive
	}
	p.Title = strings.TrimSpace(p.Title)
	return s.Store.UpdatePosition(ctx, p)
}

func (s *PositionService) Deactivate(ctx context.Context, actor auth.Actor, id string) error {
	if !actor.IsHR() {
		return ErrForbidden
	}
	return s.Store.SetPositionStatus(ctx, id, record.StatusInactive)
}

func (s *PositionService) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if !actor.IsHR() {
		return ErrForbidden
	}
	return s.Store.DeletePosition(ctx, id)
}

func (s *PositionService) Count(ctx context.Context) (int, error) {
	return s.Store.CountPositions(ctx)
}
