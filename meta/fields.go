package meta

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ConnectionFields carries the user supplied fields of a connection. Nil
// fields are left untouched by updates.
type ConnectionFields struct {
	Alias            *string        `json:"alias,omitempty" yaml:"alias,omitempty"`
	Type             *string        `json:"type,omitempty" yaml:"type,omitempty"`
	IsMeta           *bool          `json:"is_meta,omitempty" yaml:"is_meta,omitempty"`
	Config           map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	InflectionColumn *string        `json:"inflection_column,omitempty" yaml:"inflection_column,omitempty"`
	InflectionTable  *string        `json:"inflection_table,omitempty" yaml:"inflection_table,omitempty"`
	Order            *int           `json:"order,omitempty" yaml:"order,omitempty"`
	Enabled          *bool          `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

func (f ConnectionFields) validate(creating bool) error {
	isMeta := f.IsMeta != nil && *f.IsMeta
	return validation.ValidateStruct(&f,
		validation.Field(&f.Type,
			validation.When(creating, validation.Required),
			validation.In(connectionTypes...),
		),
		validation.Field(&f.Config,
			validation.When(creating && !isMeta, validation.Required),
		),
		validation.Field(&f.InflectionColumn, validation.In(inflectionModes...)),
		validation.Field(&f.InflectionTable, validation.In(inflectionModes...)),
		validation.Field(&f.Order, validation.Min(1)),
	)
}

// ModelFields carries the user supplied fields of a model.
type ModelFields struct {
	TableName *string `json:"table_name,omitempty"`
	Title     *string `json:"title,omitempty"`
	Type      *string `json:"type,omitempty"`
	Order     *int    `json:"order,omitempty"`
	Enabled   *bool   `json:"enabled,omitempty"`
}

func (f ModelFields) validate(creating bool) error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.TableName,
			validation.When(creating, validation.Required),
			validation.Length(1, 255),
		),
		validation.Field(&f.Type, validation.In(ModelTable, ModelView)),
		validation.Field(&f.Order, validation.Min(1)),
	)
}

func stringValue(p *string, fallback string) string {
	if p == nil || *p == "" {
		return fallback
	}
	return *p
}

func boolValue(p *bool, fallback bool) bool {
	if p == nil {
		return fallback
	}
	return *p
}

func intValue(p *int, fallback int) int {
	if p == nil {
		return fallback
	}
	return *p
}
