package repo

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/logging"
)

// maxResolveDepth bounds reference walks. Catalog data occasionally forms
// cycles (class <-> subclass <-> feature); anything deeper than this is
// treated as one.
const maxResolveDepth = 10

// Resolver follows APIReference triples to their target entities through
// the hub. Reference URLs carry the kind ("/api/magic-schools/evocation"),
// so resolution needs no hints.
type Resolver struct {
	hub *Hub
}

func NewResolver(hub *Hub) *Resolver {
	return &Resolver{hub: hub}
}

// Resolve returns the entity a reference points at.
func (r *Resolver) Resolve(ctx context.Context, ref domain.APIReference, packPriority ...string) (domain.Entity, error) {
	return r.resolveAt(ctx, ref, 0, packPriority)
}

func (r *Resolver) resolveAt(ctx context.Context, ref domain.APIReference, depth int, packPriority []string) (domain.Entity, error) {
	kind, idx, err := splitRefURL(ref.URL)
	if err != nil {
		return nil, err
	}
	kr, ok := r.hub.Kind(kind)
	if !ok {
		return nil, &domain.InvalidArgumentError{Arg: "ref.url", Value: ref.URL,
			Reason: "URL does not name a catalog kind"}
	}
	e, err := kr.GetByIndex(ctx, idx, packPriority...)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, &domain.ReferenceNotFoundError{Ref: ref, Depth: depth}
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ResolveDeep resolves a reference and everything reachable from it,
// returning resolved entities keyed by URL. The walk fails with
// CircularReferenceError when it revisits a URL already on the current path
// or exceeds the depth bound, and with ReferenceNotFoundError when a triple
// points at nothing visible.
func (r *Resolver) ResolveDeep(ctx context.Context, ref domain.APIReference, packPriority ...string) (map[string]domain.Entity, error) {
	out := make(map[string]domain.Entity)
	if err := r.walk(ctx, ref, 0, nil, out, packPriority); err != nil {
		return nil, err
	}
	logging.RepoDebug("ResolveDeep(%s): %d entities", ref.URL, len(out))
	return out, nil
}

func (r *Resolver) walk(ctx context.Context, ref domain.APIReference, depth int, path []string, out map[string]domain.Entity, packPriority []string) error {
	if depth >= maxResolveDepth {
		return &domain.CircularReferenceError{URL: ref.URL, Path: append(path, ref.URL)}
	}
	for _, seen := range path {
		if seen == ref.URL {
			return &domain.CircularReferenceError{URL: ref.URL, Path: append(path, ref.URL)}
		}
	}
	if _, done := out[ref.URL]; done {
		return nil
	}

	e, err := r.resolveAt(ctx, ref, depth, packPriority)
	if err != nil {
		return err
	}
	out[ref.URL] = e

	children, err := referencesOf(e)
	if err != nil {
		return err
	}
	childPath := append(path, ref.URL)
	for _, child := range children {
		if err := r.walk(ctx, child, depth+1, childPath, out, packPriority); err != nil {
			return err
		}
	}
	return nil
}

// referencesOf collects every reference triple inside an entity's document,
// in URL order so walks are deterministic.
func referencesOf(e domain.Entity) ([]domain.APIReference, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	seen := make(map[string]domain.APIReference)
	// The document's own top-level index/url fields would match the triple
	// shape; only its children are references.
	if m, ok := doc.(map[string]any); ok {
		for _, child := range m {
			collectRefs(child, seen)
		}
	} else {
		collectRefs(doc, seen)
	}

	out := make([]domain.APIReference, 0, len(seen))
	for _, ref := range seen {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, nil
}

func collectRefs(node any, out map[string]domain.APIReference) {
	switch v := node.(type) {
	case map[string]any:
		idx, iok := v["index"].(string)
		url, uok := v["url"].(string)
		if iok && uok && idx != "" && url != "" {
			name, _ := v["name"].(string)
			out[url] = domain.APIReference{Index: idx, Name: name, URL: url}
		}
		for _, child := range v {
			collectRefs(child, out)
		}
	case []any:
		for _, child := range v {
			collectRefs(child, out)
		}
	}
}

// splitRefURL maps a reference URL onto (kind, index). The kind segment uses
// hyphens where table names use underscores; both the bare "/api/<kind>/<idx>"
// form and versioned forms like "/api/2014/<kind>/<idx>" parse.
func splitRefURL(url string) (kind, idx string, err error) {
	segs := strings.Split(strings.Trim(url, "/"), "/")
	if len(segs) < 2 {
		return "", "", &domain.InvalidArgumentError{Arg: "ref.url", Value: url,
			Reason: "expected /api/<kind>/<index>"}
	}
	idx = segs[len(segs)-1]
	kind = strings.ReplaceAll(segs[len(segs)-2], "-", "_")
	if idx == "" || !domain.IsKind(kind) {
		return "", "", &domain.InvalidArgumentError{Arg: "ref.url", Value: url,
			Reason: "URL does not name a catalog kind"}
	}
	return kind, idx, nil
}
