package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/cloo-solutions/aqacs/internal/domain"
	"github.com/cloo-solutions/aqacs/internal/telemetry"
)

// Manifest document fields that make up the embedded text.
const (
	manifestCitation = "citation"
	manifestHeading  = "heading"
	manifestText     = "text"

	maxManifestLine = 16 << 20
)

// IndexManifest embeds a regulation manifest (one JSON document per line)
// into the label's manifest collection, "us_ecfr_<label>" by default. Each
// document is embedded as "citation heading" followed by its text and keeps
// its own fields, in document order, as the payload. Blank lines are skipped.
func (ix *Indexer) IndexManifest(ctx context.Context, label domain.SnapshotID, manifest io.Reader) (*IndexStats, error) {
	if err := domain.ValidateSnapshotID(label); err != nil {
		return nil, err
	}
	collection := label.Collection(ix.cfg.ManifestPrefix)

	ctx, span := telemetry.StartSpan(ctx, "indexer.index_manifest", telemetry.SpanAttributes{
		SnapshotID: label.String(),
		Collection: collection,
		Operation:  "index",
	})
	defer span.End()

	embedder, err := ix.embedder.Get(ctx)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to load embedding model: %w", err)
	}

	run, err := ix.startRun(ctx, embedder, label, collection)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	run.stats.Files = 1

	scanner := bufio.NewScanner(manifest)
	scanner.Buffer(make([]byte, 0, 64*1024), maxManifestLine)
	line, doc := 0, 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		fields, err := decodeOrderedObject(raw)
		if err != nil {
			span.SetError(err)
			return nil, fmt.Errorf("manifest line %d: %w", line, err)
		}

		payload := domain.NewPayload(
			domain.Field{Key: domain.PayloadSnapshotID, Value: label.String()},
			domain.Field{Key: domain.PayloadRowIndex, Value: doc},
		)
		for _, f := range fields {
			payload.Set(f.Key, f.Value)
		}

		if err := run.add(ctx, pendingPoint{
			id:      ManifestPointID(label, doc),
			text:    PassagePrefix + ManifestText(payload),
			payload: payload,
		}); err != nil {
			span.SetError(err)
			return nil, err
		}
		doc++
	}
	if err := scanner.Err(); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := run.flush(ctx); err != nil {
		span.SetError(err)
		return nil, err
	}

	span.SetCount("points", run.stats.Points)

	log.Printf("Indexed manifest %s into %s: points=%d", label, collection, run.stats.Points)
	return run.stats, nil
}

// ManifestText is the embedded text of a manifest document.
func ManifestText(p domain.Payload) string {
	get := func(key string) string {
		v, _ := p.Get(key)
		return strings.TrimSpace(domain.StringValue(v))
	}
	head := strings.TrimSpace(get(manifestCitation) + " " + get(manifestHeading))
	return strings.TrimSpace(head + "\n\n" + get(manifestText))
}

// ManifestPointID is the deterministic id of the n-th manifest document.
func ManifestPointID(label domain.SnapshotID, n int) string {
	name := fmt.Sprintf("%s:manifest:%d", label, n)
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name)).String()
}

// decodeOrderedObject decodes a JSON object keeping its key order.
func decodeOrderedObject(raw []byte) ([]domain.Field, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("expected a JSON object")
	}

	var fields []domain.Field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		key, _ := tok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("invalid value for %q: %w", key, err)
		}
		fields = append(fields, domain.Field{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return fields, nil
}
