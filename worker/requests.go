package worker

import (
	"context"

	"webide/store"
	"webide/tree"
)

// Every store operation that crosses into the worker is one of the
// request types below. The union is sealed by the unexported execute
// method: a new variant that forgets its implementation does not
// compile, there is no silent default branch to fall into.
type Request interface {
	execute(ctx context.Context, w *Worker) (any, error)
}

type (
	// InitRequest opens the schema, builds the first tree snapshot and
	// mounts the full record set into the sandbox.
	InitRequest struct{}

	// ListRequest returns the current tree.
	ListRequest struct{}

	GetContentRequest struct {
		ID string
	}

	SaveContentRequest struct {
		ID      string
		Content string
	}

	CreateRequest struct {
		Name     string
		ParentID *string
		Kind     string
		Content  string
	}

	DeleteRequest struct {
		ID string
	}

	RenameRequest struct {
		ID      string
		NewName string
	}

	MoveRequest struct {
		ID          string
		NewParentID *string
	}

	// ResetRequest drops every record and empties the tree.
	ResetRequest struct{}
)

// TreeResult is the response to anything that changes or reads the
// tree; mutations piggyback the rebuilt tree so the caller never has
// to issue a follow-up list.
type TreeResult struct {
	Roots     []*tree.Node `json:"tree"`
	Ephemeral bool         `json:"ephemeral,omitempty"`
}

type ContentResult struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

type CreateResult struct {
	ID    string       `json:"id"`
	Roots []*tree.Node `json:"tree"`
}

func (InitRequest) execute(ctx context.Context, w *Worker) (any, error) {
	if err := w.store.Init(ctx); err != nil {
		return nil, err
	}
	records, err := w.store.List(ctx)
	if err != nil {
		return nil, err
	}
	w.cache.Rebuild(records)
	w.mirror.MountAll(records)
	return TreeResult{Roots: w.cache.Roots(), Ephemeral: w.store.Ephemeral()}, nil
}

func (ListRequest) execute(ctx context.Context, w *Worker) (any, error) {
	roots, err := w.refresh(ctx)
	if err != nil {
		return nil, err
	}
	return TreeResult{Roots: roots}, nil
}

func (r GetContentRequest) execute(ctx context.Context, w *Worker) (any, error) {
	content, err := w.store.GetContent(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	return ContentResult{ID: r.ID, Content: content}, nil
}

func (r SaveContentRequest) execute(ctx context.Context, w *Worker) (any, error) {
	if err := w.store.SaveContent(ctx, r.ID, r.Content); err != nil {
		return nil, err
	}
	roots, err := w.refresh(ctx)
	if err != nil {
		return nil, err
	}
	w.mirror.Write(r.ID, r.Content)
	return TreeResult{Roots: roots}, nil
}

func (r CreateRequest) execute(ctx context.Context, w *Worker) (any, error) {
	id, err := w.store.Create(ctx, r.Name, r.ParentID, r.Kind, r.Content)
	if err != nil {
		return nil, err
	}
	roots, err := w.refresh(ctx)
	if err != nil {
		return nil, err
	}
	if r.Kind == store.KindFile && r.Content != "" {
		w.mirror.Write(id, r.Content)
	} else {
		w.mirror.Create(id, r.Kind)
	}
	return CreateResult{ID: id, Roots: roots}, nil
}

func (r DeleteRequest) execute(ctx context.Context, w *Worker) (any, error) {
	// 路径要在删除前解析, 删完 id 就查不到了
	oldPath := w.cache.ResolvePath(r.ID)
	if err := w.store.Delete(ctx, r.ID); err != nil {
		return nil, err
	}
	roots, err := w.refresh(ctx)
	if err != nil {
		return nil, err
	}
	w.mirror.Remove(oldPath)
	return TreeResult{Roots: roots}, nil
}

func (r RenameRequest) execute(ctx context.Context, w *Worker) (any, error) {
	oldPath := w.cache.ResolvePath(r.ID)
	if err := w.store.Rename(ctx, r.ID, r.NewName); err != nil {
		return nil, err
	}
	roots, err := w.refresh(ctx)
	if err != nil {
		return nil, err
	}
	w.mirror.Relocate(oldPath, r.ID)
	return TreeResult{Roots: roots}, nil
}

func (r MoveRequest) execute(ctx context.Context, w *Worker) (any, error) {
	oldPath := w.cache.ResolvePath(r.ID)
	if err := w.store.Move(ctx, r.ID, r.NewParentID); err != nil {
		return nil, err
	}
	roots, err := w.refresh(ctx)
	if err != nil {
		return nil, err
	}
	w.mirror.Relocate(oldPath, r.ID)
	return TreeResult{Roots: roots}, nil
}

func (ResetRequest) execute(ctx context.Context, w *Worker) (any, error) {
	if err := w.store.Reset(ctx); err != nil {
		return nil, err
	}
	roots, err := w.refresh(ctx)
	if err != nil {
		return nil, err
	}
	return TreeResult{Roots: roots}, nil
}
