// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// SchemaField describes one field of a blueprint schema.
type SchemaField struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// BlueprintSchema is the field list a blueprint constrains component data with.
type BlueprintSchema struct {
	Fields []SchemaField `json:"fields"`
}

// RequiredFields returns the names of all required fields in declaration order.
func (s BlueprintSchema) RequiredFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// Blueprint is a named, versioned schema definition. WorkingSchema is the
// editable draft; components never bind to it directly, only to versions.
type Blueprint struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Handle        string          `json:"handle"`
	Category      string          `json:"category"`
	Status        string          `json:"status"`
	WorkingSchema BlueprintSchema `json:"working_schema"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// BlueprintVersion is an immutable snapshot of a blueprint's schema. New
// versions never modify earlier ones, so components bound to an old version
// keep validating against the schema they were authored with.
type BlueprintVersion struct {
	ID          int64           `json:"id"`
	BlueprintID int64           `json:"blueprint_id"`
	Version     int             `json:"version"`
	Schema      BlueprintSchema `json:"schema"`
	CreatedAt   time.Time       `json:"created_at"`
}
