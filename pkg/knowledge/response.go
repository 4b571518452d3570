package knowledge

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/duynguyendang/kpextract/pkg/common/errors"
	"github.com/mvdan/xurls"
)

// parseKnowledgePoints decodes a model reply. Reasoning models prefix the
// answer with a <think> block, and replies may wrap the JSON in a Markdown
// fence or surround it with prose. Both an object with a "knowledge_points"
// array and a bare array are accepted. JSON values of another shape are
// skipped whole, so lists nested inside them are never taken for the answer.
func parseKnowledgePoints(reply string) ([]KnowledgePoint, error) {
	reply = stripReasoning(reply)

	sources := []string{reply}
	if fenced, ok := lastFencedBlock(reply); ok {
		sources = []string{fenced, reply}
	}

	var shapeErr, syntaxErr error
	for _, src := range sources {
		for off := 0; off < len(src); {
			i := strings.IndexAny(src[off:], "{[")
			if i < 0 {
				break
			}
			start := off + i

			var raw json.RawMessage
			dec := json.NewDecoder(strings.NewReader(src[start:]))
			if err := dec.Decode(&raw); err != nil {
				if syntaxErr == nil {
					syntaxErr = err
				}
				off = start + 1
				continue
			}
			points, err := decodePoints(raw)
			if err == nil {
				return cleanPoints(points), nil
			}
			if shapeErr == nil {
				shapeErr = err
			}
			off = start + int(dec.InputOffset())
		}
	}

	switch {
	case shapeErr != nil:
		return nil, shapeErr
	case syntaxErr != nil:
		return nil, fmt.Errorf("%w: invalid JSON in model reply: %v", apperrors.ErrExtraction, syntaxErr)
	default:
		return nil, fmt.Errorf("%w: model reply contains no JSON", apperrors.ErrExtraction)
	}
}

// stripReasoning drops everything up to the last </think>. Some distilled
// models omit the opening tag.
func stripReasoning(reply string) string {
	if i := strings.LastIndex(reply, "</think>"); i >= 0 {
		return reply[i+len("</think>"):]
	}
	return reply
}

// lastFencedBlock returns the body of the last ``` fence in reply.
func lastFencedBlock(reply string) (string, bool) {
	end := strings.LastIndex(reply, "```")
	if end < 0 {
		return "", false
	}
	open := strings.LastIndex(reply[:end], "```")
	if open < 0 {
		return "", false
	}
	body := reply[open+3 : end]
	// skip the language tag
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	}
	return body, true
}

func decodePoints(raw json.RawMessage) ([]KnowledgePoint, error) {
	var points []KnowledgePoint
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &points); err != nil {
			return nil, fmt.Errorf("%w: unexpected knowledge point list: %v", apperrors.ErrExtraction, err)
		}
		return points, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: unexpected reply object: %v", apperrors.ErrExtraction, err)
	}
	list, ok := envelope["knowledge_points"]
	if !ok {
		return nil, fmt.Errorf("%w: model reply has no knowledge_points", apperrors.ErrExtraction)
	}
	if err := json.Unmarshal(list, &points); err != nil {
		return nil, fmt.Errorf("%w: unexpected knowledge_points value: %v", apperrors.ErrExtraction, err)
	}
	return points, nil
}

func cleanPoints(points []KnowledgePoint) []KnowledgePoint {
	cleaned := make([]KnowledgePoint, 0, len(points))
	for _, kp := range points {
		kp.Name = strings.TrimSpace(kp.Name)
		if kp.Name == "" {
			continue
		}
		kp.Description = strings.TrimSpace(kp.Description)
		kp.Parent = strings.TrimSpace(kp.Parent)
		if strings.EqualFold(kp.Parent, kp.Name) {
			kp.Parent = ""
		}
		kp.Sources = nil
		cleaned = append(cleaned, kp)
	}
	return cleaned
}

// findReferences lists the distinct URLs in text, in order of appearance.
func findReferences(text string) []string {
	var refs []string
	seen := make(map[string]bool)
	for _, u := range xurls.Strict.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:")
		if !seen[u] {
			seen[u] = true
			refs = append(refs, u)
		}
	}
	return refs
}
