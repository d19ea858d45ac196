// Package profile loads and defaults the publish profile (spec §6): the
// policy knobs controlling which destructive delta operations the
// publish executor is allowed to emit. Schema validation mirrors
// internal/project's "validate then strict-decode" approach.
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/psqlpack/psqlpack/internal/blobstore"
	"github.com/psqlpack/psqlpack/internal/perrors"
)

// Toggle is spec §4.6/§6's Allow/Ignore/Error policy knob.
type Toggle int

const (
	Allow Toggle = iota
	Ignore
	Error
)

func (t Toggle) String() string {
	switch t {
	case Allow:
		return "Allow"
	case Ignore:
		return "Ignore"
	default:
		return "Error"
	}
}

func (t Toggle) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Toggle) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "Allow":
		*t = Allow
	case "Ignore":
		*t = Ignore
	case "Error", "":
		*t = Error
	default:
		return fmt.Errorf("unknown toggle %q", s)
	}
	return nil
}

// GenerationOptions mirrors original_source/psqlpack/src/model/profiles.rs's
// GenerationOptions, including its Default impl's exact defaults: every
// drop* toggle defaults to Error except dropForeignKeyConstraints and
// dropIndexes, which default to Allow; forceConcurrentIndexes defaults to
// true.
type GenerationOptions struct {
	AlwaysRecreateDatabase    bool   `json:"alwaysRecreateDatabase"`
	DropEnumValues            Toggle `json:"dropEnumValues"`
	DropTables                Toggle `json:"dropTables"`
	DropColumns               Toggle `json:"dropColumns"`
	DropPrimaryKeyConstraints Toggle `json:"dropPrimaryKeyConstraints"`
	DropForeignKeyConstraints Toggle `json:"dropForeignKeyConstraints"`
	DropFunctions             Toggle `json:"dropFunctions"`
	DropIndexes               Toggle `json:"dropIndexes"`
	ForceConcurrentIndexes    bool   `json:"forceConcurrentIndexes"`
}

// DefaultGenerationOptions matches profiles.rs's Default impl.
func DefaultGenerationOptions() GenerationOptions {
	return GenerationOptions{
		AlwaysRecreateDatabase:    false,
		DropEnumValues:            Error,
		DropTables:                Error,
		DropColumns:               Error,
		DropPrimaryKeyConstraints: Error,
		DropForeignKeyConstraints: Allow,
		DropFunctions:             Error,
		DropIndexes:               Allow,
		ForceConcurrentIndexes:    true,
	}
}

// PackageParameter substitutes $(name) references at publish time only
// (spec §6, SPEC_FULL.md §D.3), never at build time.
type PackageParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Profile is spec §6's PublishProfile.
type Profile struct {
	Version            string             `json:"version"`
	GenerationOptions  GenerationOptions  `json:"generationOptions"`
	PackageParameters  []PackageParameter `json:"packageParameters"`
}

const schemaDoc = `{
  "type": "object",
  "required": ["version"],
  "properties": {
    "version": {"type": "string"},
    "generationOptions": {
      "type": "object",
      "properties": {
        "alwaysRecreateDatabase": {"type": "boolean"},
        "dropEnumValues": {"enum": ["Allow", "Ignore", "Error"]},
        "dropTables": {"enum": ["Allow", "Ignore", "Error"]},
        "dropColumns": {"enum": ["Allow", "Ignore", "Error"]},
        "dropPrimaryKeyConstraints": {"enum": ["Allow", "Ignore", "Error"]},
        "dropForeignKeyConstraints": {"enum": ["Allow", "Ignore", "Error"]},
        "dropFunctions": {"enum": ["Allow", "Ignore", "Error"]},
        "dropIndexes": {"enum": ["Allow", "Ignore", "Error"]},
        "forceConcurrentIndexes": {"type": "boolean"}
      }
    },
    "packageParameters": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "value"],
        "properties": {"name": {"type": "string"}, "value": {"type": "string"}}
      }
    }
  }
}`

// Load reads a publish profile, defaulting GenerationOptions' unspecified
// toggles the same way the zero-valued JSON object would in the original:
// this implementation fills in DefaultGenerationOptions() first, then lets
// present JSON fields in the source override it.
func Load(ctx context.Context, store blobstore.Store, path string) (*Profile, error) {
	data, err := store.Read(ctx, path)
	if err != nil {
		return nil, perrors.NewPublishProfileReadError(path, err)
	}

	schemaLoader := gojsonschema.NewStringLoader(schemaDoc)
	docLoader := gojsonschema.NewBytesLoader(data)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, perrors.NewPublishProfileParseError(path, err)
	}
	if !result.Valid() {
		msg := ""
		for i, e := range result.Errors() {
			if i > 0 {
				msg += "; "
			}
			msg += e.String()
		}
		return nil, perrors.NewPublishProfileParseError(path, fmt.Errorf("%s", msg))
	}

	var raw struct {
		Version           string                 `json:"version"`
		GenerationOptions map[string]interface{} `json:"generationOptions"`
		PackageParameters []PackageParameter      `json:"packageParameters"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, perrors.NewPublishProfileParseError(path, err)
	}

	profile := &Profile{Version: raw.Version, GenerationOptions: DefaultGenerationOptions(), PackageParameters: raw.PackageParameters}
	if len(raw.GenerationOptions) > 0 {
		optsJSON, _ := json.Marshal(raw.GenerationOptions)
		defaults := profile.GenerationOptions
		optsDec := json.NewDecoder(bytes.NewReader(optsJSON))
		optsDec.DisallowUnknownFields()
		if err := optsDec.Decode(&defaults); err != nil {
			return nil, perrors.NewPublishProfileParseError(path, err)
		}
		profile.GenerationOptions = defaults
	}

	return profile, nil
}

// Substitute replaces every $(name) occurrence in text with the matching
// package parameter's value. Unknown names are left untouched — the
// caller decides whether that is an error.
func (p *Profile) Substitute(text string) string {
	out := text
	for _, param := range p.PackageParameters {
		out = strings.ReplaceAll(out, "$("+param.Name+")", param.Value)
	}
	return out
}
