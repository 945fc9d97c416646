package workspace

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"webide/worker"
	ws "webide/websocket"
)

const (
	actionInit        = "init"
	actionList        = "list"
	actionGetContent  = "get_content"
	actionSaveContent = "save_content"
	actionCreate      = "create"
	actionDelete      = "delete"
	actionRename      = "rename"
	actionMove        = "move"
	actionReset       = "reset"
)

type createData struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
	Kind     string  `json:"kind"`
	Content  string  `json:"content"`
}
type nodeData struct {
	ID string `json:"id"`
}
type saveData struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}
type renameData struct {
	ID      string `json:"id"`
	NewName string `json:"newName"`
}
type moveData struct {
	ID          string  `json:"id"`
	NewParentID *string `json:"newParentId"`
}

// WorkspaceService is the wire surface of the file store: every action
// goes through the storage worker and replies with either the result
// (mutations piggyback the rebuilt tree) or an error message carrying
// the same correlation id.
type WorkspaceService struct {
	conn   ws.MessageConn
	worker *worker.Worker

	*log.Logger
}

func NewService(w *worker.Worker) *WorkspaceService {
	return &WorkspaceService{
		worker: w,
		Logger: log.New(os.Stdout, "[workspace] ", log.LstdFlags),
	}
}

func (s *WorkspaceService) Name() string {
	return "workspace"
}

func (s *WorkspaceService) Register(conn *ws.Conn) {
	s.conn = conn
}

func (s *WorkspaceService) Cleanup(err error) {}

func (s *WorkspaceService) HandleMessage(id string, action string, data json.RawMessage) {
	switch action {
	case actionInit:
		go s.dispatch(id, action, worker.InitRequest{})
	case actionList:
		go s.dispatch(id, action, worker.ListRequest{})
	case actionGetContent:
		go s.handleGetContent(id, data)
	case actionSaveContent:
		go s.handleSaveContent(id, data)
	case actionCreate:
		go s.handleCreate(id, data)
	case actionDelete:
		go s.handleDelete(id, data)
	case actionRename:
		go s.handleRename(id, data)
	case actionMove:
		go s.handleMove(id, data)
	case actionReset:
		go s.dispatch(id, action, worker.ResetRequest{})
	default:
		s.Printf("(id: %s) unknown action %q", id, action)
	}
}

func (s *WorkspaceService) handleGetContent(id string, data json.RawMessage) {
	var d nodeData
	if err := json.Unmarshal(data, &d); err != nil {
		s.Printf("(id: %s) error unmarshalling get_content payload: %v", id, err)
		return
	}
	s.dispatch(id, actionGetContent, worker.GetContentRequest{ID: d.ID})
}

func (s *WorkspaceService) handleSaveContent(id string, data json.RawMessage) {
	var d saveData
	if err := json.Unmarshal(data, &d); err != nil {
		s.Printf("(id: %s) error unmarshalling save_content payload: %v", id, err)
		return
	}
	s.dispatch(id, actionSaveContent, worker.SaveContentRequest{ID: d.ID, Content: d.Content})
}

func (s *WorkspaceService) handleCreate(id string, data json.RawMessage) {
	var d createData
	if err := json.Unmarshal(data, &d); err != nil {
		s.Printf("(id: %s) error unmarshalling create payload: %v", id, err)
		return
	}
	s.dispatch(id, actionCreate, worker.CreateRequest{
		Name:     d.Name,
		ParentID: d.ParentID,
		Kind:     d.Kind,
		Content:  d.Content,
	})
}

func (s *WorkspaceService) handleDelete(id string, data json.RawMessage) {
	var d nodeData
	if err := json.Unmarshal(data, &d); err != nil {
		s.Printf("(id: %s) error unmarshalling delete payload: %v", id, err)
		return
	}
	s.dispatch(id, actionDelete, worker.DeleteRequest{ID: d.ID})
}

func (s *WorkspaceService) handleRename(id string, data json.RawMessage) {
	var d renameData
	if err := json.Unmarshal(data, &d); err != nil {
		s.Printf("(id: %s) error unmarshalling rename payload: %v", id, err)
		return
	}
	s.dispatch(id, actionRename, worker.RenameRequest{ID: d.ID, NewName: d.NewName})
}

func (s *WorkspaceService) handleMove(id string, data json.RawMessage) {
	var d moveData
	if err := json.Unmarshal(data, &d); err != nil {
		s.Printf("(id: %s) error unmarshalling move payload: %v", id, err)
		return
	}
	s.dispatch(id, actionMove, worker.MoveRequest{ID: d.ID, NewParentID: d.NewParentID})
}

// dispatch pushes a request through the worker and writes the answer
// back with the caller's correlation id.
func (s *WorkspaceService) dispatch(id string, action string, req worker.Request) {
	result, err := s.worker.Do(context.Background(), req)
	if err != nil {
		s.handleError(id, action, err)
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		s.Printf("(id: %s) error marshalling %s response: %v", id, action, err)
		return
	}

	s.conn.WriteJSON(&ws.ServiceMessage{
		Service: s.Name(),
		Id:      id,
		Action:  action,
		Data:    data,
	})
}

func (s *WorkspaceService) handleError(id, action string, err error) {
	s.Println(err)

	s.conn.WriteJSON(&ws.ServiceMessage{
		Service: s.Name(),
		Id:      id,
		Action:  action,
		Error:   err.Error(),
	})
}
