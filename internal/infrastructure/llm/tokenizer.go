// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package llm

import (
	"strings"
	"unicode/utf8"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// heuristicBytesPerToken approximates English text with the cl100k and
// o200k encodings.
const heuristicBytesPerToken = 4

// Tokenizer counts and trims text in model tokens. When the BPE ranks cannot
// be loaded (offline hosts) it falls back to a byte based estimate.
type Tokenizer struct {
	encoder      *tiktoken.Tiktoken
	encodingName string
}

// NewTokenizer loads the named encoding.
func NewTokenizer(encodingName string) *Tokenizer {
	t := &Tokenizer{encodingName: encodingName}
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return t
	}
	t.encoder = enc
	return t
}

// NewTokenizerForModel picks the encoding used by model.
func NewTokenizerForModel(model string) *Tokenizer {
	return NewTokenizer(modelToEncoding(model))
}

// NewHeuristicTokenizer returns a tokenizer that never loads BPE ranks.
func NewHeuristicTokenizer() *Tokenizer {
	return &Tokenizer{encodingName: "heuristic"}
}

// IsPrecise reports whether counts come from the real encoding.
func (t *Tokenizer) IsPrecise() bool {
	return t.encoder != nil
}

// EncodingName returns the encoding in use.
func (t *Tokenizer) EncodingName() string {
	return t.encodingName
}

// Count returns the number of tokens in text.
func (t *Tokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	if t.encoder == nil {
		return heuristicTokenCount(text)
	}
	return len(t.encoder.Encode(text, nil, nil))
}

// Truncate cuts text down to at most maxTokens tokens and reports whether
// anything was removed. A non-positive budget leaves text untouched.
func (t *Tokenizer) Truncate(text string, maxTokens int) (string, bool) {
	if maxTokens <= 0 || text == "" {
		return text, false
	}
	if t.encoder == nil {
		limit := maxTokens * heuristicBytesPerToken
		if len(text) <= limit {
			return text, false
		}
		for limit > 0 && !utf8.RuneStart(text[limit]) {
			limit--
		}
		return text[:limit], true
	}
	tokens := t.encoder.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text, false
	}
	return t.encoder.Decode(tokens[:maxTokens]), true
}

func heuristicTokenCount(text string) int {
	n := (len(text) + heuristicBytesPerToken - 1) / heuristicBytesPerToken
	if n < 1 {
		n = 1
	}
	return n
}

func modelToEncoding(model string) string {
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(m, "gpt-4o"), strings.HasPrefix(m, "chatgpt-4o"),
		strings.HasPrefix(m, "o1"), strings.HasPrefix(m, "o3"), strings.HasPrefix(m, "gpt-4.1"):
		return "o200k_base"
	default:
		return "cl100k_base"
	}
}
