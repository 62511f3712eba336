// Package actions applies an externally proposed list of create, update,
// and delete actions against a board. Actions are partitioned so that
// connector creates, which reference ids produced moments earlier, run
// after the objects they point at exist.
package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/inkwelllabs/corkboard/internal/board"
	"github.com/inkwelllabs/corkboard/internal/geometry"
	"github.com/inkwelllabs/corkboard/internal/store"
)

// ActionType enumerates the verbs an interpreter may propose.
type ActionType string

const (
	ActionTypeCreate ActionType = "create"
	ActionTypeUpdate ActionType = "update"
	ActionTypeDelete ActionType = "delete"
)

// Action is one structured step from the external command interpreter.
type Action struct {
	Type       ActionType     `json:"type"`
	ObjectType string         `json:"objectType,omitempty"`
	ObjectID   string         `json:"objectId,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Result summarizes one executed action list. A failed partition counts
// all of its actions as errors but never aborts the other partitions.
type Result struct {
	SuccessCount int
	ErrorCount   int
	CreatedIDs   []string
}

// ExecutionError wraps a failed partition. It is counted, never fatal.
type ExecutionError struct {
	partition string
	err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("actions.%s: %v", e.partition, e.err)
}

func (e *ExecutionError) Unwrap() error {
	return e.err
}

// Executor funnels action lists through the store client.
type Executor struct {
	client *store.Client
	logger *zap.Logger
}

// NewExecutor returns an executor over the given store client.
func NewExecutor(client *store.Client, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{client: client, logger: logger}
}

// Execute applies the ordered action list. Processing order: non-connector
// creates as one atomic batch, connector creates sequentially against an
// id map augmented with the new ids, then updates and deletes as one
// atomic batch each.
func (e *Executor) Execute(ctx context.Context, boardID string, actionList []Action, actorID string) Result {
	currentObjects, err := e.client.List(ctx, boardID)
	if err != nil {
		e.logger.Error("action list aborted, board state unavailable", zap.Error(err))
		return Result{ErrorCount: len(actionList)}
	}
	objectMap := make(map[string]board.Object, len(currentObjects))
	for _, obj := range currentObjects {
		objectMap[obj.ObjectID] = obj
	}
	currentCount := int64(len(currentObjects))

	var creates, connectorCreates, updates, deletes []Action
	for _, action := range actionList {
		switch action.Type {
		case ActionTypeCreate:
			if board.ObjectType(action.ObjectType) == board.ObjectTypeConnector {
				connectorCreates = append(connectorCreates, action)
			} else {
				creates = append(creates, action)
			}
		case ActionTypeUpdate:
			updates = append(updates, action)
		case ActionTypeDelete:
			deletes = append(deletes, action)
		}
	}

	var result Result

	if len(creates) > 0 {
		objects := make([]board.Object, 0, len(creates))
		for i, action := range creates {
			objectType := board.ObjectType(action.ObjectType)
			obj := objectFromProperties(objectType, action.Properties)
			if board.DescriptorFor(objectType).PinsZIndexZero {
				obj.ZIndex = 0
			} else {
				obj.ZIndex = currentCount + int64(i) + 1
			}
			objects = append(objects, obj)
		}
		newIDs, err := e.client.CreateMany(ctx, boardID, objects, actorID)
		if err != nil {
			e.logger.Warn("create partition failed", zap.Error(err), zap.Int("actions", len(creates)))
			result.ErrorCount += len(creates)
		} else {
			for i, id := range newIDs {
				objects[i].ObjectID = id
				objectMap[id] = objects[i]
				result.CreatedIDs = append(result.CreatedIDs, id)
			}
			result.SuccessCount += len(newIDs)
		}
	}

	for _, action := range connectorCreates {
		id, err := e.createConnector(ctx, boardID, action, objectMap, result.CreatedIDs, currentCount+int64(len(result.CreatedIDs)), actorID)
		if err != nil {
			e.logger.Warn("connector create failed", zap.Error(err))
			result.ErrorCount++
			continue
		}
		result.CreatedIDs = append(result.CreatedIDs, id)
		result.SuccessCount++
	}

	if len(updates) > 0 {
		fieldUpdates := make([]store.FieldUpdate, 0, len(updates))
		for _, action := range updates {
			fieldUpdates = append(fieldUpdates, store.FieldUpdate{ObjectID: action.ObjectID, Fields: action.Properties})
		}
		if err := e.client.UpdateMany(ctx, boardID, fieldUpdates, actorID); err != nil {
			e.logger.Warn("update partition failed", zap.Error(err), zap.Int("actions", len(updates)))
			result.ErrorCount += len(updates)
		} else {
			result.SuccessCount += len(updates)
		}
	}

	if len(deletes) > 0 {
		ids := make([]string, 0, len(deletes))
		for _, action := range deletes {
			ids = append(ids, action.ObjectID)
		}
		if err := e.client.DeleteMany(ctx, boardID, ids); err != nil {
			e.logger.Warn("delete partition failed", zap.Error(err), zap.Int("actions", len(deletes)))
			result.ErrorCount += len(deletes)
		} else {
			result.SuccessCount += len(deletes)
		}
	}

	return result
}

func (e *Executor) createConnector(ctx context.Context, boardID string, action Action, objectMap map[string]board.Object, createdIDs []string, currentCount int64, actorID string) (string, error) {
	obj := objectFromProperties(board.ObjectTypeConnector, action.Properties)
	obj.ZIndex = currentCount + 1
	obj.FromID = resolveIndexRef(obj.FromID, createdIDs)
	obj.ToID = resolveIndexRef(obj.ToID, createdIDs)

	from, fromOK := objectMap[obj.FromID]
	to, toOK := objectMap[obj.ToID]
	if fromOK && toOK {
		fromCenter := geometry.Center(from)
		toCenter := geometry.Center(to)
		obj.FromX = fromCenter.X
		obj.FromY = fromCenter.Y
		obj.ToX = toCenter.X
		obj.ToY = toCenter.Y
	}

	id, err := e.client.Create(ctx, boardID, obj, actorID)
	if err != nil {
		return "", &ExecutionError{partition: "connector_create", err: err}
	}
	obj.ObjectID = id
	objectMap[id] = obj
	return id, nil
}

// resolveIndexRef maps a "$N" endpoint reference to the id of the Nth
// object created earlier in the same action list. Anything else passes
// through untouched.
func resolveIndexRef(ref string, createdIDs []string) string {
	if !strings.HasPrefix(ref, "$") {
		return ref
	}
	index, err := strconv.Atoi(ref[1:])
	if err != nil || index < 0 || index >= len(createdIDs) {
		return ref
	}
	return createdIDs[index]
}

// objectFromProperties builds a typed object from loose interpreter
// properties, falling back to the type defaults for everything absent.
func objectFromProperties(objectType board.ObjectType, properties map[string]any) board.Object {
	obj := board.NewObject(objectType, numberProp(properties, "x"), numberProp(properties, "y"), stringProp(properties, "color"), 0)
	if v, ok := properties["width"]; ok {
		obj.Width = toFloat(v)
	}
	if v, ok := properties["height"]; ok {
		obj.Height = toFloat(v)
	}
	if v, ok := properties["radius"]; ok {
		obj.Radius = toFloat(v)
	}
	if v, ok := properties["rotation"]; ok {
		obj.Rotation = toFloat(v)
	}
	if v, ok := properties["fontSize"]; ok {
		obj.FontSize = toFloat(v)
	}
	if v, ok := properties["strokeWidth"]; ok {
		obj.StrokeWidth = toFloat(v)
	}
	if v, ok := properties["text"]; ok {
		obj.Text = fmt.Sprint(v)
	}
	if v, ok := properties["title"]; ok {
		obj.Title = fmt.Sprint(v)
	}
	if v, ok := properties["strokeColor"]; ok {
		obj.StrokeColor = fmt.Sprint(v)
	}
	if v, ok := properties["arrowEnd"]; ok {
		if b, isBool := v.(bool); isBool {
			obj.ArrowEnd = b
		}
	}
	if v, ok := properties["fromId"]; ok {
		obj.FromID = fmt.Sprint(v)
	}
	if v, ok := properties["toId"]; ok {
		obj.ToID = fmt.Sprint(v)
	}
	return obj
}

func numberProp(properties map[string]any, key string) float64 {
	if v, ok := properties[key]; ok {
		return toFloat(v)
	}
	return 0
}

func stringProp(properties map[string]any, key string) string {
	if v, ok := properties[key]; ok {
		return fmt.Sprint(v)
	}
	return ""
}

func toFloat(v any) float64 {
	switch value := v.(type) {
	case float64:
		return value
	case float32:
		return float64(value)
	case int:
		return float64(value)
	case int64:
		return float64(value)
	case json.Number:
		f, _ := value.Float64()
		return f
	default:
		return 0
	}
}
