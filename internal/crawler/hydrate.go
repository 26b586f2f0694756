package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"tourcatalog/internal/model"
)

// SkipFunc reports whether a folder branch should be left out before any
// upstream call is made for it.
type SkipFunc func(model.FolderNode) bool

// SkipTitles skips folders whose title contains any of the given words,
// ignoring case.
func SkipTitles(titles ...string) SkipFunc {
	var words []string
	for _, t := range titles {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			words = append(words, t)
		}
	}
	if len(words) == 0 {
		return nil
	}
	return func(f model.FolderNode) bool {
		title := strings.ToLower(f.Title)
		for _, w := range words {
			if strings.Contains(title, w) {
				return true
			}
		}
		return false
	}
}

type HydrationFailure struct {
	Path     string
	FolderID string
	Err      error
}

// PartialHydrationError lists the folders whose items could not be fetched.
// The tree returned alongside it is still usable.
type PartialHydrationError struct {
	Failures []HydrationFailure
}

func (e *PartialHydrationError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s (%s): %v", f.Path, f.FolderID, f.Err))
	}
	return fmt.Sprintf("hydration failed for %d folder(s): %s", len(e.Failures), strings.Join(parts, "; "))
}

func (e *PartialHydrationError) Paths() []string {
	out := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f.Path)
	}
	return out
}

type Hydrator struct {
	client CatalogClient
	sem    *semaphore.Weighted
}

// NewHydrator bounds the number of concurrent folder fetches to concurrency.
func NewHydrator(client CatalogClient, concurrency int) *Hydrator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Hydrator{client: client, sem: semaphore.NewWeighted(int64(concurrency))}
}

// FetchRoot loads the folder tree and returns it under a synthetic root folder.
func (h *Hydrator) FetchRoot(ctx context.Context) (model.FolderNode, error) {
	b, err := h.client.Get(ctx, "/folder-list")
	if err != nil {
		return model.FolderNode{}, errors.Wrap(err, "fetch folder list")
	}
	children, err := parseFolderTree(b)
	if err != nil {
		return model.FolderNode{}, err
	}
	return model.FolderNode{Children: children}, nil
}

// Hydrate attaches the product items of every folder that declares items but
// has none yet. Sibling branches are hydrated concurrently; a folder is done
// only once all of its branches are. Folders matched by skip are pruned. When
// some fetches fail the rebuilt tree is returned with a *PartialHydrationError.
func (h *Hydrator) Hydrate(ctx context.Context, root model.FolderNode, skip SkipFunc) (model.FolderNode, error) {
	out, failures := h.hydrateFolder(ctx, root, "", skip)
	if len(failures) > 0 {
		return out, &PartialHydrationError{Failures: failures}
	}
	return out, nil
}

type childResult struct {
	node     model.Node
	keep     bool
	failures []HydrationFailure
}

func (h *Hydrator) hydrateFolder(ctx context.Context, f model.FolderNode, parentPath string, skip SkipFunc) (model.FolderNode, []HydrationFailure) {
	path := joinPath(parentPath, f.Title)

	if f.NeedsHydration() {
		items, err := h.fetchItems(ctx, f.ID)
		if err != nil {
			return f, []HydrationFailure{{Path: path, FolderID: f.ID, Err: err}}
		}
		f.Children = items
		return f, nil
	}
	if len(f.Children) == 0 {
		return f, nil
	}

	results := make([]childResult, len(f.Children))
	var g errgroup.Group
	for i, child := range f.Children {
		if child.Kind != model.KindFolder {
			results[i] = childResult{node: child, keep: true}
			continue
		}
		if skip != nil && skip(*child.Folder) {
			continue
		}
		g.Go(func() error {
			hydrated, failures := h.hydrateFolder(ctx, *child.Folder, path, skip)
			results[i] = childResult{node: model.FolderEntry(hydrated), keep: true, failures: failures}
			return nil
		})
	}
	_ = g.Wait()

	children := make([]model.Node, 0, len(results))
	var failures []HydrationFailure
	for _, r := range results {
		if !r.keep {
			continue
		}
		children = append(children, r.node)
		failures = append(failures, r.failures...)
	}
	f.Children = children
	return f, failures
}

func (h *Hydrator) fetchItems(ctx context.Context, folderID string) ([]model.Node, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer h.sem.Release(1)

	b, err := h.client.Get(ctx, "/folder-list/"+url.PathEscape(folderID))
	if err != nil {
		return nil, err
	}
	return parseItems(b)
}

func joinPath(parent, title string) string {
	if parent == "" {
		return title
	}
	return parent + "/" + title
}
