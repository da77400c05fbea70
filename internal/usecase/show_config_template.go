package usecase

import (
	"context"
	"fmt"
)

// ShowConfigTemplateOutput contains the output of the ShowConfigTemplate use case.
type ShowConfigTemplateOutput struct {
	Template string // Configuration template content
}

// ShowConfigTemplate renders the default configuration file without writing it.
type ShowConfigTemplate struct {
	render func() (string, error)
}

// NewShowConfigTemplate creates a new ShowConfigTemplate use case.
// render produces the template text, normally config.RenderTemplate.
func NewShowConfigTemplate(render func() (string, error)) *ShowConfigTemplate {
	return &ShowConfigTemplate{render: render}
}

// Execute generates and returns the configuration template.
func (uc *ShowConfigTemplate) Execute(_ context.Context) (*ShowConfigTemplateOutput, error) {
	template, err := uc.render()
	if err != nil {
		return nil, fmt.Errorf("render config template: %w", err)
	}
	return &ShowConfigTemplateOutput{Template: template}, nil
}
