package instructions

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/xeipuuv/gojsonschema"

	"resume-feedback/internal/pipeline"
)

var (
	//go:embed prompt.tmpl
	promptText string
	//go:embed format.txt
	formatText string
	//go:embed feedback.schema.json
	schemaText string

	promptTemplate = template.Must(template.New("prompt").Parse(promptText))
)

// Build renders the instruction payload for a job title and description.
func Build(jobTitle, jobDescription string) string {
	var b strings.Builder
	data := struct {
		JobTitle       string
		JobDescription string
		Format         string
	}{
		JobTitle:       strings.TrimSpace(jobTitle),
		JobDescription: strings.TrimSpace(jobDescription),
		Format:         strings.TrimSpace(formatText),
	}
	if err := promptTemplate.Execute(&b, data); err != nil {
		// The template is static; a failure here is a programming error.
		panic(fmt.Sprintf("render instructions: %v", err))
	}
	return b.String()
}

var _ pipeline.InstructionsFunc = Build

// SchemaValidator checks feedback against the embedded response schema.
type SchemaValidator struct {
	schema *gojsonschema.Schema
}

// NewSchemaValidator compiles the embedded schema.
func NewSchemaValidator() (*SchemaValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaText))
	if err != nil {
		return nil, fmt.Errorf("compile feedback schema: %w", err)
	}
	return &SchemaValidator{schema: schema}, nil
}

// Validate implements pipeline.FeedbackValidator.
func (v *SchemaValidator) Validate(feedback pipeline.Feedback) error {
	res, err := v.schema.Validate(gojsonschema.NewBytesLoader(feedback))
	if err != nil {
		return fmt.Errorf("validate feedback: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
}
