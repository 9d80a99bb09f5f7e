// Package bridge wires the notation codec, the graph cleaner, and the
// repository client into the two operations users actually run: pull a
// project into textual form and push textual sources as a new commit.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mbsekit/flexo-bridge/internal/cache"
	"github.com/mbsekit/flexo-bridge/internal/clean"
	"github.com/mbsekit/flexo-bridge/internal/flexo"
	"github.com/mbsekit/flexo-bridge/internal/logger"
	"github.com/mbsekit/flexo-bridge/internal/model"
	"github.com/mbsekit/flexo-bridge/internal/notation"
	"github.com/mbsekit/flexo-bridge/internal/syside"
	"github.com/mbsekit/flexo-bridge/internal/workspace"
)

var log = logger.ForComponent("bridge")

var ErrParseFailed = errors.New("source has syntax errors")

// Converter turns textual models into repository payloads and element
// graphs back into text, without touching the network.
type Converter struct {
	Printer  notation.PrinterConfig
	Clean    clean.Options
	Encoding notation.EncodeOptions
}

func NewConverter() *Converter {
	return &Converter{
		Printer: notation.DefaultPrinterConfig(),
		Clean:   clean.DefaultOptions(),
	}
}

// TextToElements parses source text and serializes it into an element
// graph. Diagnostics are returned even on success so callers can surface
// warnings.
func (c *Converter) TextToElements(src string) ([]model.Element, *notation.Diagnostics, error) {
	m, diags, err := notation.Parse(src)
	if err != nil {
		return nil, diags, fmt.Errorf("%w: %s", ErrParseFailed, firstError(diags))
	}
	return notation.Encode(m, c.Encoding), diags, nil
}

// TextToPayload parses source text and produces the change entries a
// commit request expects.
func (c *Converter) TextToPayload(src string) ([]model.ChangeEntry, *notation.Diagnostics, error) {
	elements, diags, err := c.TextToElements(src)
	if err != nil {
		return nil, diags, err
	}
	return model.WrapPayload(elements), diags, nil
}

// FileToPayload reads a source file, normalizing its encoding first.
func (c *Converter) FileToPayload(path string) ([]model.ChangeEntry, *notation.Diagnostics, error) {
	src, _, err := workspace.ReadFileAsUTF8(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return c.TextToPayload(src)
}

// ElementsToText cleans a fetched element graph and renders it as text.
// The graph must contain exactly one root namespace.
func (c *Converter) ElementsToText(elements []model.Element) (string, error) {
	cleaned := clean.Elements(elements, c.Clean)

	ordered, err := model.RootNamespaceFirst(cleaned)
	if err != nil {
		return "", err
	}

	m, err := notation.Decode(ordered)
	if err != nil {
		return "", fmt.Errorf("decode element graph: %w", err)
	}

	return notation.Print(m, c.Printer), nil
}

// JSONToText accepts a raw element graph document, as returned by the
// elements endpoint or saved to disk, and renders it as text.
func (c *Converter) JSONToText(data []byte) (string, error) {
	cleaned, err := clean.JSON(data, c.Clean)
	if err != nil {
		return "", err
	}

	var elements []model.Element
	if err := json.Unmarshal(cleaned, &elements); err != nil {
		// A single cleaned object still decodes as a one-element graph.
		var single model.Element
		if err := json.Unmarshal(cleaned, &single); err != nil {
			return "", fmt.Errorf("parse cleaned graph: %w", err)
		}
		elements = []model.Element{single}
	}

	ordered, err := model.RootNamespaceFirst(elements)
	if err != nil {
		return "", err
	}

	m, err := notation.Decode(ordered)
	if err != nil {
		return "", fmt.Errorf("decode element graph: %w", err)
	}

	return notation.Print(m, c.Printer), nil
}

// Bridge runs pulls and pushes against one repository.
type Bridge struct {
	client    *flexo.Client
	converter *Converter
	store     *cache.Store
	checker   *syside.Checker
}

// New builds a bridge. The store and checker are optional; nil disables
// caching and semantic validation respectively.
func New(client *flexo.Client, store *cache.Store, checker *syside.Checker) *Bridge {
	return &Bridge{
		client:    client,
		converter: NewConverter(),
		store:     store,
		checker:   checker,
	}
}

func (b *Bridge) Converter() *Converter {
	return b.converter
}

type PullResult struct {
	Project   flexo.Project
	Commit    flexo.Commit
	Elements  []model.Element
	Textual   string
	FromCache bool
}

// Pull fetches the latest commit of a project and renders it as text.
// When the commit is already cached the network fetch of elements is
// skipped.
func (b *Bridge) Pull(ctx context.Context, projectName string) (*PullResult, error) {
	project, err := b.client.GetProjectByName(ctx, projectName)
	if err != nil {
		return nil, fmt.Errorf("resolve project %q: %w", projectName, err)
	}

	commit, err := b.client.LatestCommit(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("latest commit of %q: %w", projectName, err)
	}

	if b.store != nil {
		snap, err := b.store.GetSnapshot(project.ID, commit.ID)
		if err != nil {
			log.Debug("cache lookup failed", "error", err)
		} else if snap != nil {
			log.Debug("serving pull from cache",
				"project", projectName, "commit", commit.ID)
			return &PullResult{
				Project:   project,
				Commit:    commit,
				Elements:  snap.Elements,
				Textual:   snap.Textual,
				FromCache: true,
			}, nil
		}
	}

	elements, err := b.client.ListElements(ctx, project.ID, commit.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch elements: %w", err)
	}

	textual, err := b.converter.ElementsToText(elements)
	if err != nil {
		return nil, err
	}

	if b.store != nil {
		err := b.store.PutSnapshot(&cache.Snapshot{
			ProjectID:   project.ID,
			CommitID:    commit.ID,
			ProjectName: project.Name,
			Elements:    elements,
			Textual:     textual,
			FetchedAt:   time.Now().UTC(),
		})
		if err != nil {
			log.Debug("cache write failed", "error", err)
		}
	}

	return &PullResult{
		Project:  project,
		Commit:   commit,
		Elements: elements,
		Textual:  textual,
	}, nil
}

type PushResult struct {
	Project        flexo.Project
	Commit         flexo.Commit
	CreatedProject bool
	Diagnostics    *notation.Diagnostics
	Check          *syside.CheckResult
}

// Push parses source text and commits it to the named project, creating
// the project when it does not exist yet.
func (b *Bridge) Push(ctx context.Context, projectName, source, description string) (*PushResult, error) {
	result := &PushResult{}

	payload, diags, err := b.converter.TextToPayload(source)
	result.Diagnostics = diags
	if err != nil {
		return result, err
	}

	if b.checker != nil && b.checker.Enabled() {
		check, err := b.checker.Check(ctx, "untitled:push", source)
		if err != nil {
			log.Debug("semantic check unavailable", "error", err)
		} else {
			result.Check = check
			if check.ErrorCount() > 0 {
				return result, fmt.Errorf("semantic check found %d errors", check.ErrorCount())
			}
		}
	}

	project, err := b.client.GetProjectByName(ctx, projectName)
	if errors.Is(err, flexo.ErrNotFound) {
		log.Info("creating project", "name", projectName)
		project, err = b.client.CreateProject(ctx, projectName, "")
		if err != nil {
			return result, fmt.Errorf("create project %q: %w", projectName, err)
		}
		result.CreatedProject = true
	} else if err != nil {
		return result, fmt.Errorf("resolve project %q: %w", projectName, err)
	}
	result.Project = project

	commit, err := b.client.CommitChanges(ctx, project.ID, payload, description)
	if err != nil {
		return result, fmt.Errorf("commit to %q: %w", projectName, err)
	}
	result.Commit = commit

	log.Info("pushed commit",
		"project", projectName, "commit", commit.ID, "elements", len(payload))
	return result, nil
}

// PushFile reads a source file and pushes it.
func (b *Bridge) PushFile(ctx context.Context, projectName, path, description string) (*PushResult, error) {
	src, _, err := workspace.ReadFileAsUTF8(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b.Push(ctx, projectName, src, description)
}

func firstError(diags *notation.Diagnostics) string {
	if diags == nil {
		return "unknown error"
	}
	for _, d := range diags.Items {
		if d.Severity == notation.SeverityError {
			return d.String()
		}
	}
	return "unknown error"
}
