package config

import (
	"bytes"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/bootloader/errors"
	"github.com/wippyai/bootloader/selection"
)

// Provider kinds accepted in a manifest.
const (
	ProviderConstant  = "constant"
	ProviderQuery     = "query"
	ProviderUserAgent = "user_agent"
	ProviderMeta      = "meta"
)

// Manifest describes a module's deferred-binding properties and compiled
// permutations.
type Manifest struct {
	Module       string            `yaml:"module"`
	Properties   []PropertySpec    `yaml:"properties"`
	Permutations []PermutationSpec `yaml:"permutations"`
	Scripts      []string          `yaml:"scripts,omitempty"`
	Styles       []string          `yaml:"styles,omitempty"`
}

// PropertySpec is one property in selection order.
type PropertySpec struct {
	Name     string       `yaml:"name"`
	Values   []string     `yaml:"values"`
	Provider ProviderSpec `yaml:"provider"`
}

// ProviderSpec selects how a property value is computed.
//
//	constant:   value
//	query:      key, default
//	user_agent: rules, default
//	meta:       key (defaults to the property name), fallback
type ProviderSpec struct {
	Kind     string        `yaml:"kind"`
	Key      string        `yaml:"key,omitempty"`
	Value    string        `yaml:"value,omitempty"`
	Default  string        `yaml:"default,omitempty"`
	Rules    []RuleSpec    `yaml:"rules,omitempty"`
	Fallback *ProviderSpec `yaml:"fallback,omitempty"`
}

// RuleSpec maps a user agent substring to a value.
type RuleSpec struct {
	Contains string `yaml:"contains"`
	Value    string `yaml:"value"`
}

// PermutationSpec binds one value per property to a strong name.
type PermutationSpec struct {
	Values     []string `yaml:"values"`
	StrongName string   `yaml:"strong_name"`
}

// ParseManifest decodes a manifest. Unknown fields are rejected.
func ParseManifest(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindConfigParse).
			Subject("manifest").
			Cause(err).
			Detail("decode manifest").
			Build()
	}
	return &m, nil
}

// LoadManifest reads and decodes the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read manifest")
	}
	return ParseManifest(bytes.NewReader(data))
}

// Build converts the manifest into a selection module.
func (m *Manifest) Build() (*selection.Module, error) {
	if m.Module == "" {
		return nil, errors.InvalidInput(errors.PhaseConfig, "manifest has no module name")
	}

	mod := &selection.Module{
		Name:    m.Module,
		Scripts: append([]string(nil), m.Scripts...),
		Styles:  append([]string(nil), m.Styles...),
	}
	for _, p := range m.Properties {
		provider, err := p.Provider.build(p.Name)
		if err != nil {
			return nil, err
		}
		mod.Properties = append(mod.Properties, selection.PropertyDef{
			Name:     p.Name,
			Values:   append([]string(nil), p.Values...),
			Provider: provider,
		})
	}
	for _, p := range m.Permutations {
		mod.Permutations = append(mod.Permutations, selection.Permutation{
			Values:     append([]string(nil), p.Values...),
			StrongName: p.StrongName,
		})
	}
	return mod, nil
}

func (s ProviderSpec) build(property string) (selection.ProviderFunc, error) {
	switch s.Kind {
	case ProviderConstant:
		return selection.Constant(s.Value), nil
	case ProviderQuery:
		key := s.Key
		if key == "" {
			key = property
		}
		return selection.Query(key, s.Default), nil
	case ProviderUserAgent:
		rules := make([]selection.UARule, len(s.Rules))
		for i, r := range s.Rules {
			rules[i] = selection.UARule{Contains: r.Contains, Value: r.Value}
		}
		return selection.UserAgent(rules, s.Default), nil
	case ProviderMeta:
		key := s.Key
		if key == "" {
			key = property
		}
		fallback := selection.Constant(s.Default)
		if s.Fallback != nil {
			fb, err := s.Fallback.build(property)
			if err != nil {
				return nil, err
			}
			fallback = fb
		}
		return selection.MetaOverride(key, fallback), nil
	default:
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidValue).
			Subject(property).
			Value(s.Kind).
			Detail("unknown provider kind %q", s.Kind).
			Build()
	}
}
