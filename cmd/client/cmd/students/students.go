package students

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tejanitos/internal/domain/student"
)

// StudentsCmd - родительская команда для операций с активными учениками
var StudentsCmd = &cobra.Command{
	Use:     "students",
	Aliases: []string{"st"},
	Short:   "Управление учениками",
	Long:    `Просмотр, добавление, изменение и выбытие учеников.`,
}

// parseFields разбирает аргументы вида Поле=значение.
func parseFields(args []string) (map[string]string, error) {
	fields := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("ожидается Поле=значение, получено %q", a)
		}
		fields[strings.TrimSpace(k)] = v
	}
	return fields, nil
}

// find ищет активную запись по id, hexId или документу.
func find(list []student.Student, ref string) (student.Student, bool) {
	key := student.NormalizeKey(ref)
	for _, s := range list {
		if s.ID == ref || s.HexID == ref || (key != "" && s.Key() == key) {
			return s, true
		}
	}
	return student.Student{}, false
}

func init() {
	StudentsCmd.AddCommand(ListCmd)
	StudentsCmd.AddCommand(AddCmd)
	StudentsCmd.AddCommand(UpdateCmd)
	StudentsCmd.AddCommand(DeleteCmd)
}
