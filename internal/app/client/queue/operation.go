package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"tejanitos/internal/domain/student"
)

// Kind тип отложенной операции в сохраненном виде.
type Kind string

const (
	KindAdd         Kind = "add"
	KindUpdate      Kind = "update"
	KindDelete      Kind = "delete"
	KindBatchUpdate Kind = "batch_update"
	KindImport      Kind = "import"
)

// Operation закрытое объединение операций. Реализации только в этом пакете.
type Operation interface {
	Kind() Kind
	isOperation()
}

type AddOp struct {
	Record student.Student
}

type UpdateOp struct {
	Record student.Student
}

type DeleteOp struct {
	Record student.Student
	Reason string
}

type BatchUpdateOp struct {
	Records []student.Student
}

type ImportOp struct {
	Records []student.Student
}

func (AddOp) Kind() Kind         { return KindAdd }
func (UpdateOp) Kind() Kind      { return KindUpdate }
func (DeleteOp) Kind() Kind      { return KindDelete }
func (BatchUpdateOp) Kind() Kind { return KindBatchUpdate }
func (ImportOp) Kind() Kind      { return KindImport }

func (AddOp) isOperation()         {}
func (UpdateOp) isOperation()      {}
func (DeleteOp) isOperation()      {}
func (BatchUpdateOp) isOperation() {}
func (ImportOp) isOperation()      {}

// Pending операция в очереди. После создания не изменяется.
type Pending struct {
	ID        string
	Op        Operation
	Timestamp time.Time
}

type envelope struct {
	ID        string          `json:"id"`
	Type      Kind            `json:"type"`
	Data      json.RawMessage `json:"data"`
	Reason    string          `json:"reason,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (p Pending) MarshalJSON() ([]byte, error) {
	env := envelope{
		ID:        p.ID,
		Timestamp: p.Timestamp.UTC().Format(time.RFC3339Nano),
	}

	var (
		data any
		err  error
	)
	switch op := p.Op.(type) {
	case AddOp:
		data = op.Record
	case UpdateOp:
		data = op.Record
	case DeleteOp:
		data = op.Record
		env.Reason = op.Reason
	case BatchUpdateOp:
		data = records(op.Records)
	case ImportOp:
		data = records(op.Records)
	default:
		return nil, fmt.Errorf("marshal pending %s: unknown operation %T", p.ID, p.Op)
	}
	env.Type = p.Op.Kind()

	if env.Data, err = json.Marshal(data); err != nil {
		return nil, fmt.Errorf("marshal pending %s: %w", p.ID, err)
	}
	return json.Marshal(env)
}

func (p *Pending) UnmarshalJSON(b []byte) error {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return fmt.Errorf("unmarshal pending: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, env.Timestamp)
	if err != nil {
		return fmt.Errorf("unmarshal pending %s timestamp: %w", env.ID, err)
	}

	var op Operation
	switch env.Type {
	case KindAdd, KindUpdate, KindDelete:
		var rec student.Student
		if err := json.Unmarshal(env.Data, &rec); err != nil {
			return fmt.Errorf("unmarshal pending %s data: %w", env.ID, err)
		}
		switch env.Type {
		case KindAdd:
			op = AddOp{Record: rec}
		case KindUpdate:
			op = UpdateOp{Record: rec}
		default:
			op = DeleteOp{Record: rec, Reason: env.Reason}
		}
	case KindBatchUpdate, KindImport:
		var list []student.Student
		if err := json.Unmarshal(env.Data, &list); err != nil {
			return fmt.Errorf("unmarshal pending %s data: %w", env.ID, err)
		}
		if env.Type == KindImport {
			op = ImportOp{Records: list}
		} else {
			op = BatchUpdateOp{Records: list}
		}
	default:
		return fmt.Errorf("unmarshal pending %s: unknown type %q", env.ID, env.Type)
	}

	*p = Pending{ID: env.ID, Op: op, Timestamp: ts}
	return nil
}

func records(list []student.Student) []student.Student {
	if list == nil {
		return []student.Student{}
	}
	return list
}
