// Package format defines the records cargo writes with --message-format=json,
// the rustc diagnostics embedded in them, and the events a libtest harness
// writes with --format json.
//
// Each record is a JSON object on its own line. The "reason" field selects
// the variant. Decode accepts reasons it does not know as *Unknown so that
// newer cargo releases do not break callers; DecodeStrict rejects them, and
// also rejects fields the schema does not declare.
package format

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Reason is the discriminator of a cargo message.
type Reason string

// Reasons cargo emits.
const (
	ReasonBuildFinished       Reason = "build-finished"
	ReasonCompilerArtifact    Reason = "compiler-artifact"
	ReasonCompilerMessage     Reason = "compiler-message"
	ReasonBuildScriptExecuted Reason = "build-script-executed"
)

// DefaultEdition is assumed for targets that do not report an edition.
const DefaultEdition = "2015"

// Message is one decoded cargo record. The concrete type is one of
// *BuildFinished, *Artifact, *FromCompiler, *BuildScript or *Unknown.
type Message interface {
	Reason() Reason
	isMessage()
}

// BuildFinished is the last record of a build. Nothing after it should be parsed.
type BuildFinished struct {
	Success bool `json:"success"`
}

// PackageID is the opaque package identifier cargo reports.
type PackageID string

// Artifact reports files the compiler generated for one target.
type Artifact struct {
	PackageID    PackageID       `json:"package_id"`
	ManifestPath *string         `json:"manifest_path,omitempty"`
	Target       Target          `json:"target"`
	Profile      ArtifactProfile `json:"profile"`
	Features     []string        `json:"features"`
	Filenames    []string        `json:"filenames"`
	Executable   *string         `json:"executable,omitempty"`
	// Fresh is true when the files were already up to date.
	Fresh bool `json:"fresh"`
}

// Target is one buildable unit of a package: lib, bin, example, test or bench.
type Target struct {
	Name string   `json:"name"`
	Kind []string `json:"kind"`
	// CrateTypes matches Kind except for examples built as libraries, where
	// it holds values like "rlib" or "dylib" while Kind is "example".
	CrateTypes       []string `json:"crate_types"`
	Doctest          *bool    `json:"doctest,omitempty"`
	Doc              *bool    `json:"doc,omitempty"`
	Test             bool     `json:"test"`
	RequiredFeatures []string `json:"required-features,omitempty"`
	SrcPath          string   `json:"src_path"`
	Edition          string   `json:"edition"`
}

// ArtifactProfile holds the profile settings an artifact was compiled with.
type ArtifactProfile struct {
	// OptLevel is "0".."3", "s" or "z".
	OptLevel string `json:"opt_level"`
	// Debuginfo is 0 for none, 1 for limited, 2 for full.
	Debuginfo       *int `json:"debuginfo"`
	DebugAssertions bool `json:"debug_assertions"`
	OverflowChecks  bool `json:"overflow_checks"`
	Test            bool `json:"test"`
}

// FromCompiler carries a diagnostic the compiler wants displayed.
type FromCompiler struct {
	PackageID    PackageID  `json:"package_id"`
	ManifestPath *string    `json:"manifest_path,omitempty"`
	Target       Target     `json:"target"`
	Message      Diagnostic `json:"message"`
}

// BuildScript is the output of a build script run.
type BuildScript struct {
	PackageID   PackageID   `json:"package_id"`
	OutDir      *string     `json:"out_dir,omitempty"`
	LinkedLibs  []string    `json:"linked_libs"`
	LinkedPaths []string    `json:"linked_paths"`
	Cfgs        []string    `json:"cfgs"`
	Env         [][2]string `json:"env"`
}

// Unknown is a record whose reason this package does not recognize.
// Raw holds the record unchanged.
type Unknown struct {
	Discriminator Reason
	Raw           json.RawMessage
}

func (*BuildFinished) Reason() Reason { return ReasonBuildFinished }
func (*Artifact) Reason() Reason      { return ReasonCompilerArtifact }
func (*FromCompiler) Reason() Reason  { return ReasonCompilerMessage }
func (*BuildScript) Reason() Reason   { return ReasonBuildScriptExecuted }
func (u *Unknown) Reason() Reason     { return u.Discriminator }

func (*BuildFinished) isMessage() {}
func (*Artifact) isMessage()      {}
func (*FromCompiler) isMessage()  {}
func (*BuildScript) isMessage()   {}
func (*Unknown) isMessage()       {}

var (
	targetShape = shape{required: []string{"name", "kind", "src_path"}}

	profileShape = shape{required: []string{"opt_level", "debug_assertions", "overflow_checks", "test"}}

	diagnosticShape = shape{required: []string{"message", "level", "spans", "children"}}

	buildFinishedShape = shape{required: []string{"success"}}

	artifactShape = shape{
		required: []string{"package_id", "target", "profile", "features", "filenames", "fresh"},
		nested:   map[string]shape{"target": targetShape, "profile": profileShape},
	}

	fromCompilerShape = shape{
		required: []string{"package_id", "target", "message"},
		nested:   map[string]shape{"target": targetShape, "message": diagnosticShape},
	}

	buildScriptShape = shape{
		required: []string{"package_id", "linked_libs", "linked_paths", "cfgs", "env"},
	}
)

// Decode parses one cargo record. Unrecognized reasons yield *Unknown and
// undeclared fields are ignored.
func Decode(data []byte) (Message, error) {
	return decodeMessage(data, false)
}

// DecodeStrict parses one cargo record, rejecting unrecognized reasons,
// undeclared fields and unknown diagnostic levels.
func DecodeStrict(data []byte) (Message, error) {
	return decodeMessage(data, true)
}

func decodeMessage(data []byte, strict bool) (Message, error) {
	obj, err := parseObject(data)
	if err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	reason, err := stringField(obj, "reason")
	if err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	var msg Message
	switch Reason(reason) {
	case ReasonBuildFinished:
		var m BuildFinished
		err = decodeVariant(obj, buildFinishedShape, strict, &m, "reason")
		msg = &m
	case ReasonCompilerArtifact:
		var m Artifact
		err = decodeVariant(obj, artifactShape, strict, &m, "reason")
		m.Target.applyDefaults()
		msg = &m
	case ReasonCompilerMessage:
		var m FromCompiler
		err = decodeVariant(obj, fromCompilerShape, strict, &m, "reason")
		m.Target.applyDefaults()
		if err == nil && strict && !m.Message.Level.Known() {
			err = fmt.Errorf("unknown diagnostic level %q", m.Message.Level)
		}
		msg = &m
	case ReasonBuildScriptExecuted:
		var m BuildScript
		err = decodeVariant(obj, buildScriptShape, strict, &m, "reason")
		msg = &m
	default:
		if strict {
			return nil, fmt.Errorf("decode message: unknown reason %q", reason)
		}
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return &Unknown{Discriminator: Reason(reason), Raw: raw}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", reason, err)
	}
	return msg, nil
}

func (t *Target) applyDefaults() {
	t.CrateTypes = orEmpty(t.CrateTypes)
	t.RequiredFeatures = orEmpty(t.RequiredFeatures)
	if t.Edition == "" {
		t.Edition = DefaultEdition
	}
}

// Encode renders msg as one JSON object carrying its reason. Decoding the
// result yields a value equal to msg, with nil slices read back as empty.
func Encode(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case *BuildFinished:
		return encodeTagged(m, "reason", string(m.Reason()))
	case *Artifact:
		v := *m
		v.Target = v.Target.normalized()
		v.Features = orEmpty(v.Features)
		v.Filenames = orEmpty(v.Filenames)
		return encodeTagged(&v, "reason", string(m.Reason()))
	case *FromCompiler:
		v := *m
		v.Target = v.Target.normalized()
		v.Message = v.Message.normalized()
		return encodeTagged(&v, "reason", string(m.Reason()))
	case *BuildScript:
		v := *m
		v.LinkedLibs = orEmpty(v.LinkedLibs)
		v.LinkedPaths = orEmpty(v.LinkedPaths)
		v.Cfgs = orEmpty(v.Cfgs)
		if v.Env == nil {
			v.Env = [][2]string{}
		}
		return encodeTagged(&v, "reason", string(m.Reason()))
	case *Unknown:
		if len(m.Raw) == 0 {
			return nil, errors.New("encode unknown message: no raw record")
		}
		return append([]byte(nil), m.Raw...), nil
	default:
		return nil, fmt.Errorf("encode message: unsupported type %T", msg)
	}
}

func (t Target) normalized() Target {
	t.Kind = orEmpty(t.Kind)
	t.CrateTypes = orEmpty(t.CrateTypes)
	return t
}
