// Package codeblock extracts fenced code blocks from model output.
package codeblock

import (
	"regexp"
	"strings"

	"github.com/lexcodex/codeagent/framework"
)

// fencePattern matches a tagged opener, the body and the nearest closer.
// Untagged and dangling fences do not match and are skipped.
var fencePattern = regexp.MustCompile("(?s)```(\\w+)\\n(.*?)```")

// Block is a single extracted snippet.
type Block struct {
	Language string
	Code     string
}

// Map groups extracted code by lowercased language tag. Tags keep the order
// in which they first appeared and blocks keep source order.
type Map struct {
	order  []string
	blocks map[string][]string
}

// Extract scans text for fenced blocks.
func Extract(text string) Map {
	m := Map{blocks: map[string][]string{}}
	for _, match := range fencePattern.FindAllStringSubmatch(text, -1) {
		m.add(strings.ToLower(match[1]), strings.TrimSpace(match[2]))
	}
	return m
}

func (m *Map) add(lang, code string) {
	if m.blocks == nil {
		m.blocks = map[string][]string{}
	}
	if _, ok := m.blocks[lang]; !ok {
		m.order = append(m.order, lang)
	}
	m.blocks[lang] = append(m.blocks[lang], code)
}

// Len returns the number of distinct language tags.
func (m Map) Len() int { return len(m.order) }

// Languages returns the tags in first-appearance order.
func (m Map) Languages() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Blocks returns the code blocks for a tag.
func (m Map) Blocks(lang string) []string {
	blocks := m.blocks[strings.ToLower(lang)]
	out := make([]string, len(blocks))
	copy(out, blocks)
	return out
}

// All returns every block in source order grouped by first appearance of the
// tag.
func (m Map) All() []Block {
	var out []Block
	for _, lang := range m.order {
		for _, code := range m.blocks[lang] {
			out = append(out, Block{Language: lang, Code: code})
		}
	}
	return out
}

// AsMap returns a plain map copy, convenient for comparisons.
func (m Map) AsMap() map[string][]string {
	out := make(map[string][]string, len(m.blocks))
	for lang := range m.blocks {
		out[lang] = m.Blocks(lang)
	}
	return out
}

// First returns the first block of the first tag.
func (m Map) First() (lang, code string, ok bool) {
	if len(m.order) == 0 {
		return "", "", false
	}
	lang = m.order[0]
	return lang, m.blocks[lang][0], true
}

// Lookup returns the first block whose tag normalizes to lang.
func (m Map) Lookup(lang framework.Language) (string, bool) {
	_, code, ok := m.lookup(lang)
	return code, ok
}

func (m Map) lookup(lang framework.Language) (tag, code string, ok bool) {
	if !lang.Known() {
		return "", "", false
	}
	for _, tag := range m.order {
		if framework.ParseLanguage(tag) == lang {
			return tag, m.blocks[tag][0], true
		}
	}
	return "", "", false
}

// Choice is the code Choose picked. Tag is the fence tag and is empty when
// the fallback text was used.
type Choice struct {
	Code   string
	Tag    string
	Fenced bool
}

// Language is the language the fence tag names. Unfenced text and
// unrecognised tags yield LanguageUnknown.
func (c Choice) Language() framework.Language {
	if !c.Fenced {
		return framework.LanguageUnknown
	}
	return framework.ParseLanguage(c.Tag)
}

// Choose picks the block to hand back to the caller: the requested
// language's first block, else the first block in insertion order, else the
// fallback text verbatim.
func Choose(m Map, lang framework.Language, fallback string) Choice {
	if tag, code, ok := m.lookup(lang); ok {
		return Choice{Code: code, Tag: tag, Fenced: true}
	}
	if tag, code, ok := m.First(); ok {
		return Choice{Code: code, Tag: tag, Fenced: true}
	}
	return Choice{Code: fallback}
}

// Select returns only the code of Choose.
func Select(m Map, lang framework.Language, fallback string) string {
	return Choose(m, lang, fallback).Code
}
