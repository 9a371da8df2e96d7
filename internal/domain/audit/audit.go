// Package audit keeps the append-only trail of who changed which record.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"ems/internal/platform/querier"
	"ems/internal/requestctx"
)

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

// Filter narrows a listing. Zero fields match everything; Until is exclusive.
type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorUser  string
	Since      time.Time
	Until      time.Time
}

type Service struct {
	DB querier.Querier
}

func New(db querier.Querier) *Service {
	return &Service{DB: db}
}

// Record appends one event. The request id and client ip are taken from ctx,
// and the insert joins any transaction carried there.
func (s *Service) Record(ctx context.Context, actorID, action, entityType, entityID string, before, after any) error {
	snapshots := make([][]byte, 2)
	for i, v := range []any{before, after} {
		if v == nil {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("audit: snapshot %s %s: %w", entityType, entityID, err)
		}
		snapshots[i] = raw
	}

	var actor any
	if actorID != "" {
		actor = actorID
	}
	_, err := querier.FromContext(ctx, s.DB).Exec(ctx, `
    INSERT INTO audit_events (actor_user_id, action, entity_type, entity_id, before_json, after_json, request_id, ip)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
  `, actor, action, entityType, entityID, snapshots[0], snapshots[1],
		requestctx.GetRequestID(ctx), requestctx.GetClientIP(ctx))
	return err
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	clause, args := filter.where()
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM audit_events"+clause, args...).Scan(&total)
	return total, err
}

const summaryColumns = "id, COALESCE(actor_user_id::text, ''), action, entity_type, COALESCE(entity_id, ''), COALESCE(request_id, ''), COALESCE(ip, ''), created_at"

// List returns events newest first. Snapshots are only loaded when
// includeDetails is set.
func (s *Service) List(ctx context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Event, error) {
	clause, args := filter.where()
	cols := summaryColumns
	if includeDetails {
		cols += ", before_json, after_json"
	}
	query := fmt.Sprintf("SELECT %s FROM audit_events%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		cols, clause, len(args)+1, len(args)+2)

	rows, err := s.DB.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	return collect(rows, includeDetails)
}

// History is the full trail of one record, oldest first, with snapshots.
func (s *Service) History(ctx context.Context, entityType, entityID string) ([]Event, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+summaryColumns+", before_json, after_json FROM audit_events"+
		" WHERE entity_type = $1 AND entity_id = $2 ORDER BY created_at ASC", entityType, entityID)
	if err != nil {
		return nil, err
	}
	return collect(rows, true)
}

func collect(rows pgx.Rows, withSnapshots bool) ([]Event, error) {
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var evt Event
		dest := []any{&evt.ID, &evt.ActorID, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &evt.CreatedAt}
		if withSnapshots {
			dest = append(dest, &evt.Before, &evt.After)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

// where renders the filter as a WHERE clause with numbered placeholders.
func (f Filter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Action != "" {
		add("action = $%d", f.Action)
	}
	if f.EntityType != "" {
		add("entity_type = $%d", f.EntityType)
	}
	if f.EntityID != "" {
		add("entity_id = $%d", f.EntityID)
	}
	if f.ActorUser != "" {
		add("actor_user_id::text = $%d", f.ActorUser)
	}
	if !f.Since.IsZero() {
		add("created_at >= $%d", f.Since)
	}
	if !f.Until.IsZero() {
		add("created_at < $%d", f.Until)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
