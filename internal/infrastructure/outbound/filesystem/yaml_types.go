package filesystem

import "github.com/sophialabs/mockdeck/internal/domain/definition"

// yamlDefinition is the YAML deserialization target for definition files.
type yamlDefinition struct {
	ID          string       `yaml:"id"`
	Description string       `yaml:"description,omitempty"`
	Method      string       `yaml:"method,omitempty"`
	Route       string       `yaml:"route"`
	Query       string       `yaml:"query,omitempty"`
	ExpectBody  string       `yaml:"expect_body,omitempty"`
	Active      *bool        `yaml:"active,omitempty"`
	Sequential  bool         `yaml:"sequential,omitempty"`
	Response    yamlResponse `yaml:"response"`
	Rules       []yamlRule   `yaml:"rules,omitempty"`
	Steps       []yamlStep   `yaml:"steps,omitempty"`
}

type yamlResponse struct {
	Status      int               `yaml:"status,omitempty"`
	ContentType string            `yaml:"content_type,omitempty"`
	Body        string            `yaml:"body,omitempty"`
	BodyFile    string            `yaml:"body_file,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	DelayMs     int               `yaml:"delay_ms,omitempty"`
}

type yamlRule struct {
	Field       string            `yaml:"field"`
	Operator    string            `yaml:"operator"`
	Value       string            `yaml:"value,omitempty"`
	Priority    int               `yaml:"priority,omitempty"`
	Status      int               `yaml:"status,omitempty"`
	Body        string            `yaml:"body,omitempty"`
	ContentType string            `yaml:"content_type,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
}

type yamlStep struct {
	Order       int               `yaml:"order"`
	Status      int               `yaml:"status,omitempty"`
	Body        string            `yaml:"body,omitempty"`
	ContentType string            `yaml:"content_type,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	DelayMs     *int              `yaml:"delay_ms,omitempty"`
}

func (yd *yamlDefinition) toDefinition() *definition.Definition {
	d := &definition.Definition{
		ID:          yd.ID,
		Description: yd.Description,
		Method:      yd.Method,
		Route:       yd.Route,
		Query:       yd.Query,
		ExpectBody:  yd.ExpectBody,
		Status:      yd.Response.Status,
		Body:        yd.Response.Body,
		BodyFile:    yd.Response.BodyFile,
		ContentType: yd.Response.ContentType,
		Headers:     yd.Response.Headers,
		DelayMs:     yd.Response.DelayMs,
		Active:      yd.Active == nil || *yd.Active,
		Sequential:  yd.Sequential,
	}

	for _, r := range yd.Rules {
		d.Rules = append(d.Rules, definition.Rule{
			Field:       r.Field,
			Operator:    r.Operator,
			Value:       r.Value,
			Priority:    r.Priority,
			Status:      r.Status,
			Body:        r.Body,
			ContentType: r.ContentType,
			Headers:     r.Headers,
		})
	}

	for _, s := range yd.Steps {
		d.Steps = append(d.Steps, definition.Step{
			Order:       s.Order,
			Status:      s.Status,
			Body:        s.Body,
			ContentType: s.ContentType,
			Headers:     s.Headers,
			DelayMs:     s.DelayMs,
		})
	}

	return d
}
