// Package replace implements the Replacement Engine (spec.md §4.10):
// deterministic, coref-stable replacement text generation in smart, mask,
// structured, and custom modes. Grounded on `redactor.py`'s
// `RedactionContext` (exact Chinese label/mask-rule/tag-template tables
// ported verbatim).
package replace

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/rezonia/pii-redactor/internal/model"
)

// Engine maintains the CorefTable and per-type counters needed to
// generate stable replacement text across an entire document.
type Engine struct {
	mode               model.ReplacementMode
	entityMap          map[string]string // original text -> replacement
	corefMap           map[string]string // coref_id or text -> replacement
	typeCounters       map[string]int
	customReplacements map[string]string
	structuredTagMap   map[string]string // original text -> tag, from a hide-mode mapping
	tagTemplates       map[string]string // entity type -> taxonomy tag_template
}

// NewEngine builds an Engine for one document/job, generating
// replacements in the given mode.
func NewEngine(mode model.ReplacementMode) *Engine {
	return &Engine{
		mode:               mode,
		entityMap:          map[string]string{},
		corefMap:           map[string]string{},
		typeCounters:       map[string]int{},
		customReplacements: map[string]string{},
		structuredTagMap:   map[string]string{},
		tagTemplates:       map[string]string{},
	}
}

// SetTaxonomy installs each configured type's tag_template (§4.2's
// taxonomy registry), consulted by structured mode ahead of the built-in
// fallback table.
func (e *Engine) SetTaxonomy(types []model.EntityTypeConfig) {
	for _, t := range types {
		if t.TagTemplate != "" {
			e.tagTemplates[t.ID] = t.TagTemplate
		}
	}
}

// SetCustomReplacements installs the caller-provided verbatim
// text->replacement map the custom mode consults first.
func (e *Engine) SetCustomReplacements(replacements map[string]string) {
	e.customReplacements = replacements
}

// SetStructuredMapping seeds the structured mode's tag table from a
// hide-mode {tag -> [originals]} mapping (spec.md §4.3's pair/hide
// output), so structured mode can reuse the model's own tag assignment
// instead of minting a fresh one.
func (e *Engine) SetStructuredMapping(mapping map[string][]string) {
	for tag, originals := range mapping {
		for _, o := range originals {
			if o == "" {
				continue
			}
			if _, exists := e.structuredTagMap[o]; !exists {
				e.structuredTagMap[o] = tag
			}
		}
	}
}

// Replacement returns the replacement string for entity, generating one
// deterministically by mode on first sight and returning the same string
// for every subsequent entity sharing its coref_id (or, absent one, its
// exact text) — spec.md §4.10's stability invariant.
func (e *Engine) Replacement(entity model.Entity) string {
	key := entity.CorefID
	if key == "" {
		key = entity.Text
	}
	if existing, ok := e.corefMap[key]; ok {
		return existing
	}

	var replacement string
	switch e.mode {
	case model.ReplacementCustom:
		if r, ok := e.customReplacements[entity.Text]; ok {
			replacement = r
		} else if entity.Replacement != "" {
			replacement = entity.Replacement
		} else {
			replacement = e.smartReplacement(entity)
		}
	case model.ReplacementMask:
		replacement = maskReplacement(entity)
	case model.ReplacementStructured:
		replacement = e.structuredReplacement(entity)
	default:
		replacement = e.smartReplacement(entity)
	}

	e.corefMap[key] = replacement
	if _, exists := e.entityMap[entity.Text]; !exists {
		e.entityMap[entity.Text] = replacement
	}
	return replacement
}

// EntityMap returns the final original_text -> replacement map writers
// consume to perform the actual substitution, defensively cloned so
// callers can't mutate the Engine's internal state.
func (e *Engine) EntityMap() map[string]string {
	return lo.Assign(map[string]string{}, e.entityMap)
}

func (e *Engine) smartReplacement(entity model.Entity) string {
	e.typeCounters[entity.Type]++
	count := e.typeCounters[entity.Type]

	label, ok := typeLabels[entity.Type]
	if !ok {
		label = defaultSmartLabel
	}

	var numeral string
	if count <= 10 {
		numeral = chineseNumerals[count]
	} else {
		numeral = strconv.Itoa(count)
	}
	return fmt.Sprintf("[%s%s]", label, numeral)
}

// maskReplacement implements `_generate_mask_replacement`'s type-specific,
// length-preserving masking rules. Lengths are measured in runes to match
// the Python original's codepoint-based `len(text)`.
func maskReplacement(entity model.Entity) string {
	runes := []rune(entity.Text)
	length := len(runes)

	switch entity.Type {
	case "PERSON":
		if length >= 2 {
			return string(runes[0]) + strings.Repeat("*", length-1)
		}
		return "*"
	case "PHONE":
		if length >= 11 {
			return string(runes[:3]) + strings.Repeat("*", length-7) + string(runes[length-4:])
		}
		return strings.Repeat("*", length)
	case "ID_CARD":
		if length >= 18 {
			return string(runes[:6]) + strings.Repeat("*", length-10) + string(runes[length-4:])
		}
		return strings.Repeat("*", length)
	case "BANK_CARD":
		if length >= 16 {
			return strings.Repeat("*", length-4) + string(runes[length-4:])
		}
		return strings.Repeat("*", length)
	default:
		return strings.Repeat("*", length)
	}
}

// structuredReplacement implements `_generate_structured_replacement`:
// an already-tag-shaped coref_id wins outright, then a hide-mode tag for
// the same text, then a taxonomy tag_template, then the built-in per-type
// template, then an unknown-type fallback.
func (e *Engine) structuredReplacement(entity model.Entity) string {
	if strings.HasPrefix(entity.CorefID, "<") && strings.HasSuffix(entity.CorefID, ">") {
		return entity.CorefID
	}
	if tag, ok := e.structuredTagMap[entity.Text]; ok {
		return tag
	}
	if template, ok := e.tagTemplates[entity.Type]; ok && template != "" {
		e.typeCounters[entity.Type]++
		index := e.typeCounters[entity.Type]
		return strings.ReplaceAll(template, "{index}", fmt.Sprintf("%03d", index))
	}

	e.typeCounters[entity.Type]++
	index := e.typeCounters[entity.Type]

	if info, ok := structuredDefaults[entity.Type]; ok {
		return fmt.Sprintf("<%s[%03d].%s>", info.category, index, info.path)
	}
	return fmt.Sprintf("<%s[%03d].完整名称>", entity.Type, index)
}
