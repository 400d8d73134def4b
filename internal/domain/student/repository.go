package student

import (
	"context"
)

// Collection коллекция документов хранилища.
type Collection string

const (
	Active   Collection = "students"
	Inactive Collection = "inactive_students"
)

func (c Collection) Valid() bool {
	return c == Active || c == Inactive
}

// WriteKind вид записи в пакетной фиксации.
type WriteKind int

const (
	WritePut WriteKind = iota + 1
	WriteDelete
)

// Write одна операция пакета. Для WritePut используется Student, для WriteDelete - ID.
type Write struct {
	Kind       WriteKind
	Collection Collection
	ID         string
	Student    Student
}

func PutWrite(c Collection, s Student) Write {
	return Write{Kind: WritePut, Collection: c, ID: s.ID, Student: s}
}

func DeleteWrite(c Collection, id string) Write {
	return Write{Kind: WriteDelete, Collection: c, ID: id}
}

// Repository хранилище документов с двумя коллекциями
type Repository interface {
	Get(ctx context.Context, c Collection, id string) (*Student, error)
	List(ctx context.Context, c Collection) ([]Student, error)
	// FindByKey ищет по нормализованному Documento, возвращает первое совпадение
	FindByKey(ctx context.Context, c Collection, key string) (*Student, error)
	FindByHexID(ctx context.Context, c Collection, hexID string) (*Student, error)
	// Commit атомарно применяет пакет записей
	Commit(ctx context.Context, writes []Write) error
}
