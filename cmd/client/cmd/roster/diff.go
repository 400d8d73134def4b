package roster

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tejanitos/cmd/client/cmd/output"
	"tejanitos/cmd/client/cmd/types"
	"tejanitos/internal/app/client"
	"tejanitos/internal/app/client/data"
	"tejanitos/internal/domain/student"
)

var DiffCmd = &cobra.Command{
	Use:   "diff <файл>",
	Short: "Показать отличия ведомости от списка",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		out, _, err := process(cmd, app, args[0], false)
		if err != nil {
			return err
		}

		if output.JSON {
			return output.PrintJSON(out.ChangeSet)
		}
		printChangeSet(os.Stdout, out.ChangeSet)
		return nil
	},
}

// process читает файл и сверяет его с полным набором записей.
func process(cmd *cobra.Command, app *client.App, path string, apply bool) (data.RosterOutcome, []student.Student, error) {
	f, err := os.Open(path)
	if err != nil {
		return data.RosterOutcome{}, nil, fmt.Errorf("ошибка открытия ведомости: %w", err)
	}
	defer f.Close()

	current, err := app.Data().LoadAll(cmd.Context(), true)
	if err != nil && !errors.Is(err, data.ErrNoData) {
		return data.RosterOutcome{}, nil, fmt.Errorf("ошибка загрузки данных: %w", err)
	}

	out, err := app.Data().ProcessRosterFile(cmd.Context(), filepath.Base(path), f, current, apply)
	if err != nil {
		return data.RosterOutcome{}, nil, err
	}
	return out, current, nil
}
