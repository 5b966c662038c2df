package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/svcgen.schema.json
var schemaBytes []byte

const schemaURL = "svcgen.schema.json"

var printer = message.NewPrinter(language.English)

var loadSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
	if err != nil {
		return nil, fmt.Errorf("decoding embedded schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, err
	}
	return c.Compile(schemaURL)
})

// ValidationResult is the outcome of checking a manifest against the schema.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Issues []ValidationIssue `json:"issues"`
}

// ValidationIssue is one schema violation.
type ValidationIssue struct {
	Path    string `json:"path"` // JSON pointer into the document, "" for the root
	Message string `json:"message"`
	Keyword string `json:"keyword"`
}

func (i ValidationIssue) String() string {
	if i.Path == "" {
		return "(root): " + i.Message
	}
	return i.Path + ": " + i.Message
}

// Validate checks raw YAML against the manifest schema. Schema violations are
// reported in the result; the error is reserved for unreadable YAML.
func Validate(data []byte) (*ValidationResult, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}

	inst, err := toInstance(data)
	if err != nil {
		return nil, err
	}

	var ve *jsonschema.ValidationError
	switch err := schema.Validate(inst); {
	case err == nil:
		return &ValidationResult{Valid: true}, nil
	case errors.As(err, &ve):
		return &ValidationResult{Issues: issuesOf(ve)}, nil
	default:
		return nil, fmt.Errorf("validating manifest: %w", err)
	}
}

// ValidateFile reads path and validates its content.
func ValidateFile(path string) (*ValidationResult, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return Validate(data)
}

// toInstance decodes YAML into the JSON value model the validator expects.
// An empty document is an empty object.
func toInstance(data []byte) (any, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	buf, err := json.Marshal(jsonCompatible(doc))
	if err != nil {
		return nil, fmt.Errorf("converting manifest to JSON: %w", err)
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(buf))
}

// issuesOf flattens the error tree into its leaves, skipping the wrapper
// keywords, and drops duplicates while keeping order.
func issuesOf(ve *jsonschema.ValidationError) []ValidationIssue {
	var issues []ValidationIssue
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}
		issue, ok := leafIssue(e)
		if ok && !slices.Contains(issues, issue) {
			issues = append(issues, issue)
		}
	}
	walk(ve)

	if len(issues) == 0 {
		return []ValidationIssue{{Message: ve.Error()}}
	}
	return issues
}

func leafIssue(e *jsonschema.ValidationError) (ValidationIssue, bool) {
	if e.ErrorKind == nil {
		return ValidationIssue{}, false
	}
	kw := e.ErrorKind.KeywordPath()
	if len(kw) == 0 {
		return ValidationIssue{}, false
	}
	keyword := kw[len(kw)-1]
	if keyword == "allOf" || keyword == "$ref" {
		return ValidationIssue{}, false
	}
	var path string
	if len(e.InstanceLocation) > 0 {
		path = "/" + strings.Join(e.InstanceLocation, "/")
	}
	return ValidationIssue{
		Path:    path,
		Message: e.ErrorKind.LocalizedString(printer),
		Keyword: keyword,
	}, true
}

// jsonCompatible rewrites YAML maps with non-string keys so encoding/json
// accepts them.
func jsonCompatible(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, e := range val {
			val[k] = jsonCompatible(e)
		}
		return val
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, e := range val {
			m[fmt.Sprint(k)] = jsonCompatible(e)
		}
		return m
	case []any:
		for i, e := range val {
			val[i] = jsonCompatible(e)
		}
		return val
	default:
		return val
	}
}
