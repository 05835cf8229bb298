// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Speaker labels used when a transcript speaker id cannot be resolved.
const (
	UnknownSpeakerName     = "Unknown"
	UnknownUserSpeakerName = "Unknown User"
)

// TranscriptItem is one line of a provider transcript artifact (JSONL).
type TranscriptItem struct {
	SpeakerID string `json:"speaker_id" msgpack:"speaker_id"`
	Type      string `json:"type" msgpack:"type"`
	Text      string `json:"text" msgpack:"text"`
	StartTs   int64  `json:"start_ts" msgpack:"start_ts"`
	StopTs    int64  `json:"stop_ts" msgpack:"stop_ts"`
}

// Speaker is the resolved identity attached to a transcript item.
type Speaker struct {
	ID   string `json:"id,omitempty" msgpack:"id,omitempty"`
	Name string `json:"name" msgpack:"name"`
}

// SpeakerTranscriptItem is a transcript item decorated with its speaker.
type SpeakerTranscriptItem struct {
	TranscriptItem
	User Speaker `json:"user" msgpack:"user"`
}

// ErrEmptyTranscript is returned when an artifact holds no transcript lines.
var ErrEmptyTranscript = errors.New("transcript is empty")

// ParseTranscriptJSONL decodes a JSON-lines transcript. Blank lines are
// skipped; any other line that is not a JSON object fails the whole parse.
func ParseTranscriptJSONL(data []byte) ([]TranscriptItem, error) {
	items := []TranscriptItem{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if raw[0] != '{' {
			return nil, fmt.Errorf("transcript line %d: not a JSON object", line)
		}
		var item TranscriptItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("transcript line %d: %w", line, err)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}
	return items, nil
}

// SpeakerIDs returns the distinct speaker ids in first-seen order.
func SpeakerIDs(items []TranscriptItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := []string{}
	for _, item := range items {
		if _, ok := seen[item.SpeakerID]; ok {
			continue
		}
		seen[item.SpeakerID] = struct{}{}
		ids = append(ids, item.SpeakerID)
	}
	return ids
}

// AttachSpeakers decorates items with the names in speakers, using
// fallback for ids missing from the map.
func AttachSpeakers(items []TranscriptItem, speakers map[string]Speaker, fallback string) []SpeakerTranscriptItem {
	out := make([]SpeakerTranscriptItem, 0, len(items))
	for _, item := range items {
		speaker, ok := speakers[item.SpeakerID]
		if !ok {
			speaker = Speaker{Name: fallback}
		}
		out = append(out, SpeakerTranscriptItem{TranscriptItem: item, User: speaker})
	}
	return out
}
