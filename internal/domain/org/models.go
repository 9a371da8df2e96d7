package org

import (
	"time"

	"ems/internal/domain/record"
)

type Department struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      record.Status `json:"status"`
	DateCreated time.Time     `json:"dateCreated"`
}

type Position struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Status      record.Status `json:"status"`
	DateCreated time.Time     `json:"dateCreated"`
}
