package session

import (
	"context"
	"errors"

	"github.com/inkwelllabs/corkboard/internal/board"
	"github.com/inkwelllabs/corkboard/internal/store"
)

var (
	errEditorOpen     = errors.New("session: another text editor is open")
	errNotTextBearing = errors.New("session: object type holds no text")
	errUnknownObject  = errors.New("session: object not found")
)

// TextEditor is a single-owner guard over one object's text. While it is
// held, keyboard shortcuts are suppressed so typed characters never turn
// into deletions. Exactly one of Commit or Discard releases it; both are
// safe to call again afterwards.
type TextEditor struct {
	session  *Session
	objectID string
	column   string
	original string
	text     string
	released bool
}

// BeginTextEdit opens the text editor for a text-bearing object. Frames
// edit their title; sticky notes and text objects edit their content.
func (s *Session) BeginTextEdit(objectID string) (*TextEditor, error) {
	obj, ok := s.lookup(objectID)
	if !ok {
		return nil, errUnknownObject
	}
	descriptor := board.DescriptorFor(board.ObjectType(obj.Type))
	if !descriptor.TextBearing {
		return nil, errNotTextBearing
	}

	column := "text"
	original := obj.Text
	if board.ObjectType(obj.Type) == board.ObjectTypeFrame {
		column = "title"
		original = obj.Title
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editor != nil && !s.editor.released {
		return nil, errEditorOpen
	}
	editor := &TextEditor{
		session:  s,
		objectID: objectID,
		column:   column,
		original: original,
		text:     original,
	}
	s.editor = editor
	return editor, nil
}

// TextEditing reports whether a text editor currently holds focus.
func (s *Session) TextEditing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor != nil && !s.editor.released
}

// Text returns the working buffer.
func (e *TextEditor) Text() string {
	return e.text
}

// SetText replaces the working buffer.
func (e *TextEditor) SetText(text string) {
	e.text = text
}

// Released reports whether the editor has already been committed or
// discarded.
func (e *TextEditor) Released() bool {
	return e.released
}

// Commit persists the buffer if it changed and releases the editor. An
// unchanged buffer writes nothing, so idle click-in click-out cycles do
// not advance the object's timestamp.
func (e *TextEditor) Commit(ctx context.Context) error {
	if e.released {
		return nil
	}
	e.release()
	if e.text == e.original {
		return nil
	}

	s := e.session
	s.mu.Lock()
	if obj, ok := s.objects[e.objectID]; ok {
		if e.column == "title" {
			obj.Title = e.text
		} else {
			obj.Text = e.text
		}
		s.objects[e.objectID] = obj
	}
	s.mu.Unlock()

	err := s.store.UpdateMany(ctx, s.boardID, []store.FieldUpdate{{
		ObjectID: e.objectID,
		Fields:   map[string]any{e.column: e.text},
	}}, s.actorID)
	if err != nil {
		s.logWriteError("session.commit_text", err)
	}
	return err
}

// Discard releases the editor without writing.
func (e *TextEditor) Discard() {
	if e.released {
		return
	}
	e.release()
}

func (e *TextEditor) release() {
	e.released = true
	s := e.session
	s.mu.Lock()
	if s.editor == e {
		s.editor = nil
	}
	s.mu.Unlock()
}
